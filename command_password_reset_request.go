package accounts

import (
	"context"
	"fmt"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type RequestPasswordResetMessage struct {
	Email      string `json:"email" example:"pepe.rone@example.com" doc:"Customer email."`
	OnResponse func(resp *RequestPasswordResetResponse)
}

func (p RequestPasswordResetMessage) Type() string { return "account.password_reset_request" }

type RequestPasswordResetResponse struct {
	Account  *Account `json:"-"`
	Found    bool     `json:"found" example:"true" doc:"Did the email resolve to an account?"`
	UID      string   `json:"uid" doc:"URL safe encoded account identifier."`
	Token    string   `json:"token" doc:"Single purpose reset token."`
	ResetURL string   `json:"reset_url" doc:"Absolute link included in the reset email."`
}

type RequestPasswordResetHandler struct {
	repo     RepositoryManager
	tokens   ActionTokens
	mailer   Mailer
	renderer *TemplateRenderer
	baseURL  string
	siteName string
}

func NewRequestPasswordResetHandler(repo RepositoryManager, tokens ActionTokens, mailer Mailer, baseURL, siteName string) *RequestPasswordResetHandler {
	return &RequestPasswordResetHandler{
		repo:     repo,
		tokens:   tokens,
		mailer:   mailer,
		renderer: NewTemplateRenderer(),
		baseURL:  baseURL,
		siteName: siteName,
	}
}

func (h *RequestPasswordResetHandler) Execute(ctx context.Context, event RequestPasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset request",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RequestPasswordResetHandler) execute(ctx context.Context, event RequestPasswordResetMessage) error {
	resp := &RequestPasswordResetResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		account, err := h.repo.Accounts().GetByIdentifier(ctx, event.Email)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				// unknown emails are part of the expected flow
				resp.Found = false
				return nil
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account for password reset")
		}

		resp.Found = true
		resp.Account = account

		token, err := h.tokens.Issue(account, TokenPurposeReset)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue password reset token")
		}

		resp.UID = EncodeAccountID(account.ID)
		resp.Token = token
		resp.ResetURL = fmt.Sprintf("%s/reset-password/%s/%s", h.baseURL, resp.UID, resp.Token)

		return h.sendResetEmail(ctx, account, resp.ResetURL)
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to initialize password reset")
	}

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

func (h *RequestPasswordResetHandler) sendResetEmail(ctx context.Context, account *Account, resetURL string) error {
	data := map[string]any{
		"first_name": account.FirstName,
		"reset_url":  resetURL,
		"site_name":  h.siteName,
	}

	html, err := h.renderer.Render("data/templates/password_reset_email.html", data)
	if err != nil {
		return err
	}

	text, err := h.renderer.Render("data/templates/password_reset_email.txt", data)
	if err != nil {
		return err
	}

	email := Email{
		To:      account.Email,
		Subject: "Reset your password",
		HTML:    html,
		Text:    text,
	}

	if err := h.mailer.Send(ctx, email); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to send password reset email").
			WithMetadata(map[string]any{
				"email": account.Email,
			})
	}

	return nil
}
