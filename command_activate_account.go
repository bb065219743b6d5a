package accounts

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type ActivateAccountMessage struct {
	UID        string `json:"uid" example:"MzUwMzk5YmM" doc:"URL safe encoded account identifier."`
	Token      string `json:"token" example:"eyJhbGci..." doc:"Single purpose activation token."`
	OnResponse func(r *ActivateAccountResponse)
}

func (e ActivateAccountMessage) Type() string { return "account.activate" }

type ActivateAccountResponse struct {
	Account   *Account `json:"-"`
	Found     bool     `json:"found" example:"true" doc:"Did the identifier resolve to an account?"`
	Activated bool     `json:"activated" example:"true" doc:"Is the account active after this request?"`
	Expired   bool     `json:"expired" example:"false" doc:"Has the activation link expired?"`
}

type ActivateAccountHandler struct {
	repo   RepositoryManager
	tokens ActionTokens
}

func NewActivateAccountHandler(repo RepositoryManager, tokens ActionTokens) *ActivateAccountHandler {
	return &ActivateAccountHandler{
		repo:   repo,
		tokens: tokens,
	}
}

func (h *ActivateAccountHandler) Execute(ctx context.Context, event ActivateAccountMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account activation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ActivateAccountHandler) execute(ctx context.Context, event ActivateAccountMessage) error {
	resp := &ActivateAccountResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		id, err := DecodeAccountID(event.UID)
		if err != nil {
			// a garbled identifier is part of the expected flow, not an
			// application error
			resp.Found = false
			return nil
		}

		account, err := h.repo.Accounts().GetByID(ctx, id.String())
		if err != nil {
			if goerrors.IsNotFound(err) {
				resp.Found = false
				return nil
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account")
		}

		resp.Found = true
		resp.Account = account

		if err := h.tokens.Verify(account, event.Token, TokenPurposeActivate); err != nil {
			if IsTokenExpiredError(err) {
				resp.Expired = true
			}
			return nil
		}

		if !account.Active {
			if err := h.repo.Accounts().ActivateTx(ctx, tx, account.ID); err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to activate account")
			}
			account.Active = true
		}

		resp.Activated = true
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "account activation transaction failed")
	}

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}
