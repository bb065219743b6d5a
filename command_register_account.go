package accounts

import (
	"context"
	"fmt"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/nyaruka/phonenumbers"
	"github.com/uptrace/bun"
)

type RegisterAccountMessage struct {
	FirstName  string `json:"first_name" example:"Jane" doc:"Customer first name."`
	LastName   string `json:"last_name" example:"Rone" doc:"Customer last name."`
	Email      string `json:"email" example:"jane@example.com" doc:"Customer email, also the login identifier."`
	Phone      string `json:"phone" example:"+15551234567" doc:"Customer phone number."`
	Password   string `json:"password" example:"secret" doc:"Plain text password, hashed before storage."`
	UseHashid  bool
	OnResponse func(r *RegisterAccountResponse)
}

func (e RegisterAccountMessage) Type() string { return "account.register" }

type RegisterAccountResponse struct {
	Account       *Account `json:"-"`
	UID           string   `json:"uid" doc:"URL safe encoded account identifier."`
	Token         string   `json:"token" doc:"Single purpose activation token."`
	ActivationURL string   `json:"activation_url" doc:"Absolute link included in the activation email."`
}

type RegisterAccountHandler struct {
	repo     RepositoryManager
	tokens   ActionTokens
	mailer   Mailer
	renderer *TemplateRenderer
	baseURL  string
	siteName string
}

func NewRegisterAccountHandler(repo RepositoryManager, tokens ActionTokens, mailer Mailer, baseURL, siteName string) *RegisterAccountHandler {
	return &RegisterAccountHandler{
		repo:     repo,
		tokens:   tokens,
		mailer:   mailer,
		renderer: NewTemplateRenderer(),
		baseURL:  baseURL,
		siteName: siteName,
	}
}

func (h *RegisterAccountHandler) Execute(ctx context.Context, event RegisterAccountMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterAccountHandler) execute(ctx context.Context, event RegisterAccountMessage) error {
	account := &Account{}
	resp := &RegisterAccountResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		hash, err := HashPassword(event.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		account.PasswordHash = hash
		account.Email = event.Email
		account.Phone = normalizePhone(event.Phone)
		account.FirstName = event.FirstName
		account.LastName = event.LastName
		account.Username = UsernameFromEmail(event.Email)
		account.Active = false
		if event.UseHashid {
			if id, err := hashid.NewUUID(event.Email); err == nil {
				account.ID = id
			}
		}

		if account, err = h.repo.Accounts().RegisterTx(ctx, tx, account); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create account")
		}

		token, err := h.tokens.Issue(account, TokenPurposeActivate)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue activation token")
		}

		resp.Account = account
		resp.UID = EncodeAccountID(account.ID)
		resp.Token = token
		resp.ActivationURL = fmt.Sprintf("%s/activate/%s/%s", h.baseURL, resp.UID, resp.Token)

		if err := h.sendActivationEmail(ctx, account, resp.ActivationURL); err != nil {
			return err
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "account registration transaction failed")
	}

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

func (h *RegisterAccountHandler) sendActivationEmail(ctx context.Context, account *Account, activationURL string) error {
	data := map[string]any{
		"first_name":     account.FirstName,
		"activation_url": activationURL,
		"site_name":      h.siteName,
	}

	html, err := h.renderer.Render("data/templates/activation_email.html", data)
	if err != nil {
		return err
	}

	text, err := h.renderer.Render("data/templates/activation_email.txt", data)
	if err != nil {
		return err
	}

	email := Email{
		To:      account.Email,
		Subject: "Activate your account",
		HTML:    html,
		Text:    text,
	}

	if err := h.mailer.Send(ctx, email); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to send activation email").
			WithMetadata(map[string]any{
				"email": account.Email,
			})
	}

	return nil
}

func normalizePhone(phone string) string {
	if phone == "" {
		return ""
	}

	parsed, err := phonenumbers.Parse(phone, "US")
	if err != nil {
		return phone
	}

	return phonenumbers.Format(parsed, phonenumbers.E164)
}
