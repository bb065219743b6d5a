package accounts

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type ValidatePasswordResetMessage struct {
	UID        string `json:"uid" example:"MzUwMzk5YmM" doc:"URL safe encoded account identifier."`
	Token      string `json:"token" example:"eyJhbGci..." doc:"Single purpose reset token."`
	OnResponse func(resp *ValidatePasswordResetResponse)
}

func (p ValidatePasswordResetMessage) Type() string { return "account.password_reset_validate" }

type ValidatePasswordResetResponse struct {
	Account *Account `json:"-"`
	Found   bool     `json:"found" example:"true" doc:"Did the identifier resolve to an account?"`
	Valid   bool     `json:"valid" example:"true" doc:"Is the reset link usable?"`
	Expired bool     `json:"expired" example:"false" doc:"Has the reset link expired?"`
	// Session is handed to the browser so the follow up form submit can
	// prove it went through link validation first.
	Session string `json:"session" doc:"Signed token carried between validation and the new password form."`
}

type ValidatePasswordResetHandler struct {
	repo   RepositoryManager
	tokens ActionTokens
}

func NewValidatePasswordResetHandler(repo RepositoryManager, tokens ActionTokens) *ValidatePasswordResetHandler {
	return &ValidatePasswordResetHandler{
		repo:   repo,
		tokens: tokens,
	}
}

func (h *ValidatePasswordResetHandler) Execute(ctx context.Context, event ValidatePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset validation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ValidatePasswordResetHandler) execute(ctx context.Context, event ValidatePasswordResetMessage) error {
	resp := &ValidatePasswordResetResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	id, err := DecodeAccountID(event.UID)
	if err != nil {
		// a garbled identifier is part of the expected flow, not an
		// application error
		if event.OnResponse != nil {
			event.OnResponse(resp)
		}
		return nil
	}

	account, err := h.repo.Accounts().GetByID(ctx, id.String())
	if err != nil {
		if goerrors.IsNotFound(err) {
			if event.OnResponse != nil {
				event.OnResponse(resp)
			}
			return nil
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account for password reset")
	}

	resp.Found = true
	resp.Account = account

	if err := h.tokens.Verify(account, event.Token, TokenPurposeReset); err != nil {
		if IsTokenExpiredError(err) {
			resp.Expired = true
		}
		if event.OnResponse != nil {
			event.OnResponse(resp)
		}
		return nil
	}

	session, err := h.tokens.Issue(account, TokenPurposeResetSession)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue reset session token")
	}

	resp.Valid = true
	resp.Session = session

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}
