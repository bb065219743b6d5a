package accounts

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-router/flash"
)

type Middleware interface {
	ProtectedRoute(cfg Config, errorHandler func(router.Context, error) error) router.MiddlewareFunc
}

// ResetSessionCookie carries the signed pending-reset token between the
// reset link validation and the new password form.
const ResetSessionCookie = "reset_session"

func GetRouterSession(c router.Context, key string) (*SessionObject, error) {
	cookie := c.Locals(key)
	if cookie == nil {
		return nil, ErrUnableToFindSession
	}

	user, ok := cookie.(*jwt.Token)
	if user == nil || !ok {
		return nil, ErrUnableToDecodeSession
	}

	claims, ok := user.Claims.(jwt.MapClaims)
	if claims == nil || !ok {
		return nil, ErrUnableToMapClaims
	}

	return sessionFromClaims(claims)
}

func RegisterAccountRoutes[T any](app router.Router[T], opts ...AccountsControllerOption) {

	controller := NewAccountsController(opts...)

	app.
		Get(controller.Routes.Login,
			controller.LoginShow,
		).
		SetName("sign-in.get")

	app.
		Post(
			controller.Routes.Login,
			controller.LoginPost,
		).
		SetName("sign-in.post")

	app.Get(controller.Routes.Logout, controller.LogOut).SetName("sign-out.get")

	app.Get(controller.Routes.Register, controller.RegistrationShow).
		SetName("register.get")
	app.Post(controller.Routes.Register, controller.RegistrationCreate).
		SetName("register.post")

	app.Get(fmt.Sprintf("%s/:uid/:token", controller.Routes.Activate), controller.ActivateAccount).
		SetName("activate.get")

	app.Get(controller.Routes.ForgotPassword, controller.ForgotPasswordShow).
		SetName("pwd-forgot.get")
	app.Post(controller.Routes.ForgotPassword, controller.ForgotPasswordPost).
		SetName("pwd-forgot.post")

	app.Get(fmt.Sprintf("%s/:uid/:token", controller.Routes.ResetPassword), controller.ResetPasswordValidate).
		SetName("pwd-reset-validate.get")

	app.Get(controller.Routes.ResetPassword, controller.ResetPasswordShow).
		SetName("pwd-reset.get")
	app.Post(controller.Routes.ResetPassword, controller.ResetPasswordExecute).
		SetName("pwd-reset.post")
}

type AccountsControllerRoutes struct {
	Login          string
	Logout         string
	Register       string
	Activate       string
	ForgotPassword string
	ResetPassword  string
	Dashboard      string
}

type AccountsControllerViews struct {
	Login          string
	Register       string
	ForgotPassword string
	ResetPassword  string
}

type AccountsController struct {
	Debug        bool
	Logger       Logger
	Repo         RepositoryManager
	Tokens       ActionTokens
	Mailer       Mailer
	BaseURL      string
	SiteName     string
	Routes       *AccountsControllerRoutes
	Views        *AccountsControllerViews
	Auther       HTTPAuthenticator
	ErrorHandler router.ErrorHandler
}

type AccountsControllerOption func(*AccountsController) *AccountsController

func NewAccountsController(opts ...AccountsControllerOption) *AccountsController {
	c := &AccountsController{
		Logger:       defLogger{},
		ErrorHandler: defaultErrHandler,
		SiteName:     "Storefront",
		Routes: &AccountsControllerRoutes{
			Login:          "/login",
			Logout:         "/logout",
			Register:       "/register",
			Activate:       "/activate",
			ForgotPassword: "/forgot-password",
			ResetPassword:  "/reset-password",
			Dashboard:      "/dashboard",
		},
		Views: &AccountsControllerViews{
			Login:          "login",
			Register:       "register",
			ForgotPassword: "forgot_password",
			ResetPassword:  "reset_password",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in accounts controller...")
	}

	if c.Tokens == nil {
		panic("Missing ActionTokens in accounts controller...")
	}

	if c.Mailer == nil {
		panic("Missing Mailer in accounts controller...")
	}

	if c.Auther == nil {
		panic("Missing HTTPAuthenticator in accounts controller...")
	}

	return c
}

// WithLogger overrides the controller logger
func (a *AccountsController) WithLogger(logger Logger) *AccountsController {
	if logger != nil {
		a.Logger = logger
	}
	return a
}

func (a *AccountsController) LoginShow(ctx router.Context) error {
	return ctx.Render(a.Views.Login, router.ViewContext{
		"errors":  nil,
		"record":  nil,
		"command": ctx.Query("command", ""),
		"email":   ctx.Query("email", ""),
	})
}

// LoginRequest payload
type LoginRequest struct {
	Identifier string `form:"identifier" json:"identifier"`
	Password   string `form:"password" json:"password"`
	RememberMe bool   `form:"remember_me" json:"remember_me"`
}

// GetIdentifier returns the identifier
func (r LoginRequest) GetIdentifier() string {
	return r.Identifier
}

// GetPassword will return the password
func (r LoginRequest) GetPassword() string {
	return r.Password
}

// GetExtendedSession will return the password
func (r LoginRequest) GetExtendedSession() bool {
	return r.RememberMe
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Identifier,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

func (a *AccountsController) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)
	errs := map[string]string{}

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return ctx.Render(a.Views.Login, router.ViewContext{
			"record":     payload,
			"validation": FormatValidationErrorToMap(err),
		})
	}

	if a.Debug {
		fmt.Println("======= ACCOUNTS LOGIN ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("=============================")
	}

	if err := a.Auther.Login(ctx, payload); err != nil {
		if errors.Is(err, ErrAccountNotVerified) {
			errs["authentication"] = "Please confirm your email address before logging in"
		} else if errors.Is(err, ErrTooManyLoginAttempts) {
			errs["authentication"] = "Too many failed attempts, try again later"
		} else {
			errs["authentication"] = "Invalid email or password"
		}

		return ctx.Render(a.Views.Login, router.ViewContext{
			"errors": errs,
			"record": payload,
		})
	}

	redirect := a.Auther.GetRedirect(ctx, a.Routes.Dashboard)

	return ctx.Redirect(redirect, router.StatusSeeOther)
}

func (a *AccountsController) LogOut(ctx router.Context) error {
	a.Auther.Logout(ctx)
	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "You have been logged out",
	}).Redirect(a.Routes.Login, fiber.StatusSeeOther)
}

func (a *AccountsController) RegistrationShow(ctx router.Context) error {
	return ctx.Render(a.Views.Register, router.ViewContext{
		"errors": map[string]string{},
		"record": RegisterAccountMessage{},
	})
}

// RegistrationCreatePayload is the form payload
type RegistrationCreatePayload struct {
	FirstName       string `form:"first_name" json:"first_name"`
	LastName        string `form:"last_name" json:"last_name"`
	Email           string `form:"email" json:"email"`
	Phone           string `form:"phone_number" json:"phone_number"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will validate the payload
func (r RegistrationCreatePayload) Validate() error {

	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.LastName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Phone, validation.Length(10, 11), is.Digit),
		validation.Field(&r.Password, validation.Required, validation.Length(10, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.Length(10, 100),
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *AccountsController) RegistrationCreate(ctx router.Context) error {
	payload := new(RegistrationCreatePayload)

	if err := ctx.Bind(payload); err != nil {
		errs := map[string]string{}
		errs["form"] = "Failed to parse form"
		a.Logger.Error("register account parse payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(a.Views.Register, router.ViewContext{
			"errors": errs,
			"record": payload,
		})
	}

	if err := payload.Validate(); err != nil {
		errs := FormatValidationErrorToMap(err)
		a.Logger.Error("register account validate payload: ", "error", err)

		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error validating payload",
		}).Render(a.Views.Register, router.ViewContext{
			"record":     payload,
			"validation": errs,
		})
	}

	req := RegisterAccountMessage{
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Email:     payload.Email,
		Phone:     payload.Phone,
		Password:  payload.Password,
	}

	registerAccount := NewRegisterAccountHandler(a.Repo, a.Tokens, a.Mailer, a.BaseURL, a.SiteName)
	if err := registerAccount.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("register account error: ", "error", err)

		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error creating account",
		}).Render(a.Views.Register, router.ViewContext{
			"record": payload,
			"errors": []string{err.Error()},
		})
	}

	query := url.Values{}
	query.Set("command", "verification")
	query.Set("email", payload.Email)
	redirect := fmt.Sprintf("%s?%s", a.Routes.Login, query.Encode())

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Please confirm your email address to complete the registration",
	}).Redirect(redirect, fiber.StatusSeeOther)
}

func (a *AccountsController) ActivateAccount(ctx router.Context) error {
	uid := ctx.Param("uid", "")
	token := ctx.Param("token", "")

	var res *ActivateAccountResponse
	input := ActivateAccountMessage{
		UID:   uid,
		Token: token,
		OnResponse: func(r *ActivateAccountResponse) {
			res = r
		},
	}

	activate := NewActivateAccountHandler(a.Repo, a.Tokens)

	if err := activate.Execute(ctx.Context(), input); err != nil {
		a.Logger.Error("account activation error: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Activation link is invalid!",
		}).Redirect(a.Routes.Register, fiber.StatusSeeOther)
	}

	if res == nil || !res.Activated {
		return flash.WithError(ctx, router.ViewContext{
			"system_message": "Activation link is invalid!",
		}).Redirect(a.Routes.Register, fiber.StatusSeeOther)
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Thank you for your email confirmation. Now you can login your account.",
	}).Redirect(a.Routes.Login, fiber.StatusSeeOther)
}

func (a *AccountsController) ForgotPasswordShow(ctx router.Context) error {
	return ctx.Render(a.Views.ForgotPassword, router.ViewContext{
		"errors": nil,
		"record": nil,
	})
}

// ForgotPasswordPayload holds the email requesting a reset
type ForgotPasswordPayload struct {
	Email string `form:"email" json:"email"`
}

// Validate will validate the payload
func (r ForgotPasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
	)
}

func (a *AccountsController) ForgotPasswordPost(ctx router.Context) error {
	errs := map[string]string{}
	payload := new(ForgotPasswordPayload)

	if err := ctx.Bind(payload); err != nil {
		errs["form"] = "Failed to parse form"
		a.Logger.Error("forgot password parse payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(a.Views.ForgotPassword, router.ViewContext{
			"errors": errs,
			"record": payload,
		})
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("forgot password validate payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error validating payload",
		}).Render(a.Views.ForgotPassword, router.ViewContext{
			"record":     payload,
			"validation": FormatValidationErrorToMap(err),
		})
	}

	var res *RequestPasswordResetResponse

	req := RequestPasswordResetMessage{
		Email: payload.Email,
		OnResponse: func(resp *RequestPasswordResetResponse) {
			res = resp
		},
	}

	requestReset := NewRequestPasswordResetHandler(a.Repo, a.Tokens, a.Mailer, a.BaseURL, a.SiteName)

	if err := requestReset.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("forgot password error: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error requesting password reset",
		}).Render(a.Views.ForgotPassword, router.ViewContext{
			"record": payload,
			"errors": []string{err.Error()},
		})
	}

	if a.Debug {
		fmt.Println("================")
		fmt.Println(print.MaybePrettyJSON(res))
		fmt.Println("================")
	}

	if res == nil || !res.Found {
		errs["email"] = "Email does not exist"
		return ctx.Render(a.Views.ForgotPassword, router.ViewContext{
			"errors": errs,
			"record": payload,
		})
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "We have emailed you instructions for setting your password",
	}).Redirect(a.Routes.Login, fiber.StatusSeeOther)
}

func (a *AccountsController) ResetPasswordValidate(ctx router.Context) error {
	uid := ctx.Param("uid", "")
	token := ctx.Param("token", "")

	var res *ValidatePasswordResetResponse
	input := ValidatePasswordResetMessage{
		UID:   uid,
		Token: token,
		OnResponse: func(r *ValidatePasswordResetResponse) {
			res = r
		},
	}

	validate := NewValidatePasswordResetHandler(a.Repo, a.Tokens)

	if err := validate.Execute(ctx.Context(), input); err != nil {
		a.Logger.Error("password reset validation error: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Something went wrong",
		}).Redirect(a.Routes.Login, fiber.StatusSeeOther)
	}

	if res == nil || !res.Valid {
		return flash.WithError(ctx, router.ViewContext{
			"system_message": "Link is invalid or has expired, please request a new one",
		}).Redirect(a.Routes.Login, fiber.StatusSeeOther)
	}

	ctx.Cookie(&router.Cookie{
		Name:     ResetSessionCookie,
		Value:    res.Session,
		Expires:  time.Now().Add(time.Hour),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Please reset your password",
	}).Redirect(a.Routes.ResetPassword, fiber.StatusSeeOther)
}

func (a *AccountsController) ResetPasswordShow(ctx router.Context) error {
	return ctx.Render(a.Views.ResetPassword, router.ViewContext{
		"errors": nil,
		"record": nil,
	})
}

// ResetPasswordPayload holds values for the new password form
type ResetPasswordPayload struct {
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will validate the payload
func (r ResetPasswordPayload) Validate() error {

	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Password,
			validation.Required,
			validation.Length(10, 100),
		),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.Length(10, 100),
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *AccountsController) ResetPasswordExecute(ctx router.Context) error {
	errs := map[string]string{}
	payload := new(ResetPasswordPayload)

	if err := ctx.Bind(payload); err != nil {
		errs["form"] = "Failed to parse form"
		a.Logger.Error("reset password parse payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(a.Views.ResetPassword, router.ViewContext{
			"errors": errs,
			"record": payload,
		})
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("reset password validate payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error validating payload",
		}).Render(a.Views.ResetPassword, router.ViewContext{
			"record":     payload,
			"validation": FormatValidationErrorToMap(err),
		})
	}

	session := ctx.Cookies(ResetSessionCookie)
	if session == "" {
		return flash.WithError(ctx, router.ViewContext{
			"system_message": "Your reset session has expired, please request a new link",
		}).Redirect(a.Routes.ForgotPassword, fiber.StatusSeeOther)
	}

	input := FinalizePasswordResetMessage{
		Session:  session,
		Password: payload.Password,
	}

	finalize := NewFinalizePasswordResetHandler(a.Repo, a.Tokens)

	if err := finalize.Execute(ctx.Context(), input); err != nil {
		errs["validation"] = err.Error()
		return ctx.Render(a.Views.ResetPassword, router.ViewContext{
			"errors": errs,
			"record": payload,
		})
	}

	ctx.Cookie(&router.Cookie{
		Name:     ResetSessionCookie,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Password reset successfully",
	}).Redirect(a.Routes.Login, fiber.StatusSeeOther)
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("values must match")
		}
		return nil
	}
}

func defaultErrHandler(c router.Context, err error) error {
	return c.Render("errors/500", router.ViewContext{
		"message": err.Error(),
	})
}
