package accounts_test

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"

	accounts "github.com/goliatone/go-storefront-accounts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRegisterAccountHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("Successful registration", func(t *testing.T) {
		repo := new(MockRepositoryManager)
		store := new(MockAccounts)
		tokens := new(MockActionTokens)
		mailer := new(MockMailer)

		accountID := uuid.New()
		stored := &accounts.Account{
			ID:        accountID,
			Email:     "jane@example.com",
			Username:  "jane",
			FirstName: "Jane",
			LastName:  "Rone",
			Role:      accounts.RoleCustomer,
			Active:    false,
		}

		repo.On("Accounts").Return(store)
		repo.On("RunInTx", mock.Anything, (*sql.TxOptions)(nil), mock.Anything).Return(nil)

		store.On("RegisterTx", mock.Anything, mock.Anything, mock.MatchedBy(func(a *accounts.Account) bool {
			if a.Active {
				return false
			}
			if a.Username != "jane" {
				return false
			}
			if a.Phone != "+15552345678" {
				return false
			}
			// plain text must never reach storage
			if a.PasswordHash == "supersecretpw" {
				return false
			}
			return accounts.ComparePasswordAndHash("supersecretpw", a.PasswordHash) == nil
		})).Return(stored, nil).Once()

		tokens.On("Issue", stored, accounts.TokenPurposeActivate).Return("activation-token", nil).Once()

		wantURL := fmt.Sprintf("http://localhost:8572/activate/%s/activation-token", accounts.EncodeAccountID(accountID))
		mailer.On("Send", mock.Anything, mock.MatchedBy(func(e accounts.Email) bool {
			return e.To == "jane@example.com" &&
				e.Subject == "Activate your account" &&
				strings.Contains(e.HTML, wantURL) &&
				strings.Contains(e.Text, wantURL)
		})).Return(nil).Once()

		handler := accounts.NewRegisterAccountHandler(repo, tokens, mailer, "http://localhost:8572", "Storefront")

		var resp *accounts.RegisterAccountResponse
		err := handler.Execute(ctx, accounts.RegisterAccountMessage{
			FirstName: "Jane",
			LastName:  "Rone",
			Email:     "jane@example.com",
			Phone:     "(555) 234-5678",
			Password:  "supersecretpw",
			OnResponse: func(r *accounts.RegisterAccountResponse) {
				resp = r
			},
		})

		require.NoError(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, stored, resp.Account)
		assert.Equal(t, accounts.EncodeAccountID(accountID), resp.UID)
		assert.Equal(t, "activation-token", resp.Token)
		assert.Equal(t, wantURL, resp.ActivationURL)

		repo.AssertExpectations(t)
		store.AssertExpectations(t)
		tokens.AssertExpectations(t)
		mailer.AssertExpectations(t)
	})

	t.Run("Duplicate email", func(t *testing.T) {
		repo := new(MockRepositoryManager)
		store := new(MockAccounts)
		tokens := new(MockActionTokens)
		mailer := new(MockMailer)

		repo.On("Accounts").Return(store)
		repo.On("RunInTx", mock.Anything, (*sql.TxOptions)(nil), mock.Anything).Return(nil)

		store.On("RegisterTx", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, fmt.Errorf("UNIQUE constraint failed: accounts.email")).Once()

		handler := accounts.NewRegisterAccountHandler(repo, tokens, mailer, "http://localhost:8572", "Storefront")

		called := false
		err := handler.Execute(ctx, accounts.RegisterAccountMessage{
			Email:    "jane@example.com",
			Password: "supersecretpw",
			OnResponse: func(r *accounts.RegisterAccountResponse) {
				called = true
			},
		})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "could not create account")
		assert.False(t, called)

		tokens.AssertNotCalled(t, "Issue", mock.Anything, mock.Anything)
		mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	})

	t.Run("Mailer failure aborts registration", func(t *testing.T) {
		repo := new(MockRepositoryManager)
		store := new(MockAccounts)
		tokens := new(MockActionTokens)
		mailer := new(MockMailer)

		stored := &accounts.Account{
			ID:    uuid.New(),
			Email: "jane@example.com",
		}

		repo.On("Accounts").Return(store)
		repo.On("RunInTx", mock.Anything, (*sql.TxOptions)(nil), mock.Anything).Return(nil)
		store.On("RegisterTx", mock.Anything, mock.Anything, mock.Anything).Return(stored, nil).Once()
		tokens.On("Issue", stored, accounts.TokenPurposeActivate).Return("activation-token", nil).Once()
		mailer.On("Send", mock.Anything, mock.Anything).Return(fmt.Errorf("smtp unavailable")).Once()

		handler := accounts.NewRegisterAccountHandler(repo, tokens, mailer, "http://localhost:8572", "Storefront")

		called := false
		err := handler.Execute(ctx, accounts.RegisterAccountMessage{
			Email:    "jane@example.com",
			Password: "supersecretpw",
			OnResponse: func(r *accounts.RegisterAccountResponse) {
				called = true
			},
		})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to send activation email")
		assert.False(t, called)
	})

	t.Run("Empty password rejected", func(t *testing.T) {
		repo := new(MockRepositoryManager)
		store := new(MockAccounts)

		repo.On("Accounts").Return(store)
		repo.On("RunInTx", mock.Anything, (*sql.TxOptions)(nil), mock.Anything).Return(nil)

		handler := accounts.NewRegisterAccountHandler(repo, new(MockActionTokens), new(MockMailer), "http://localhost:8572", "Storefront")

		err := handler.Execute(ctx, accounts.RegisterAccountMessage{
			Email:    "jane@example.com",
			Password: "",
		})

		require.Error(t, err)
		store.AssertNotCalled(t, "RegisterTx", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Cancelled context", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		handler := accounts.NewRegisterAccountHandler(new(MockRepositoryManager), new(MockActionTokens), new(MockMailer), "http://localhost:8572", "Storefront")

		err := handler.Execute(cancelled, accounts.RegisterAccountMessage{
			Email:    "jane@example.com",
			Password: "supersecretpw",
		})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "context cancelled")
	})
}
