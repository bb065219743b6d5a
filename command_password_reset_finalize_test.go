package accounts_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	accounts "github.com/goliatone/go-storefront-accounts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func sessionClaims(accountID uuid.UUID) *accounts.ActionTokenClaims {
	return &accounts.ActionTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: accountID.String(),
		},
		Purpose: accounts.TokenPurposeResetSession,
	}
}

func TestFinalizePasswordResetHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("Successful reset", func(t *testing.T) {
		repo := new(MockRepositoryManager)
		store := new(MockAccounts)
		tokens := new(MockActionTokens)
		sink := new(MockActivitySink)

		accountID := uuid.New()
		account := &accounts.Account{ID: accountID, Email: "jane@example.com"}

		tokens.On("Parse", "session-token", accounts.TokenPurposeResetSession).
			Return(sessionClaims(accountID), nil).Once()
		repo.On("Accounts").Return(store)
		repo.On("RunInTx", mock.Anything, (*sql.TxOptions)(nil), mock.Anything).Return(nil)
		store.On("GetByID", mock.Anything, accountID.String(), mock.Anything).Return(account, nil).Once()
		tokens.On("Verify", account, "session-token", accounts.TokenPurposeResetSession).Return(nil).Once()
		store.On("ResetPasswordTx", mock.Anything, mock.Anything, accountID, mock.MatchedBy(func(hash string) bool {
			return accounts.ComparePasswordAndHash("brand-new-password", hash) == nil
		})).Return(nil).Once()

		sink.On("Record", mock.Anything, mock.MatchedBy(func(e accounts.ActivityEvent) bool {
			return e.EventType == accounts.ActivityEventPasswordResetSuccess &&
				e.AccountID == accountID.String()
		})).Return(nil).Once()

		handler := accounts.NewFinalizePasswordResetHandler(repo, tokens).
			WithActivitySink(sink).
			WithLogger(testLogger{})

		var resp *accounts.FinalizePasswordResetResponse
		err := handler.Execute(ctx, accounts.FinalizePasswordResetMessage{
			Session:  "session-token",
			Password: "brand-new-password",
			OnResponse: func(r *accounts.FinalizePasswordResetResponse) {
				resp = r
			},
		})

		require.NoError(t, err)
		require.NotNil(t, resp)
		assert.True(t, resp.Success)
		assert.Equal(t, account, resp.Account)

		store.AssertExpectations(t)
		tokens.AssertExpectations(t)
		sink.AssertExpectations(t)
	})

	t.Run("Missing session", func(t *testing.T) {
		handler := accounts.NewFinalizePasswordResetHandler(new(MockRepositoryManager), new(MockActionTokens))

		err := handler.Execute(ctx, accounts.FinalizePasswordResetMessage{
			Session:  "",
			Password: "brand-new-password",
		})

		assert.Equal(t, accounts.ErrResetSessionMissing, err)
	})

	t.Run("Expired session", func(t *testing.T) {
		tokens := new(MockActionTokens)
		tokens.On("Parse", "stale-session", accounts.TokenPurposeResetSession).
			Return(nil, accounts.ErrTokenExpired).Once()

		handler := accounts.NewFinalizePasswordResetHandler(new(MockRepositoryManager), tokens)

		err := handler.Execute(ctx, accounts.FinalizePasswordResetMessage{
			Session:  "stale-session",
			Password: "brand-new-password",
		})

		require.Error(t, err)
		assert.True(t, accounts.IsTokenExpiredError(err))
		assert.Contains(t, err.Error(), "expired")
	})

	t.Run("Session already used", func(t *testing.T) {
		repo := new(MockRepositoryManager)
		store := new(MockAccounts)
		tokens := new(MockActionTokens)

		accountID := uuid.New()
		account := &accounts.Account{ID: accountID}

		tokens.On("Parse", "session-token", accounts.TokenPurposeResetSession).
			Return(sessionClaims(accountID), nil).Once()
		repo.On("Accounts").Return(store)
		repo.On("RunInTx", mock.Anything, (*sql.TxOptions)(nil), mock.Anything).Return(nil)
		store.On("GetByID", mock.Anything, accountID.String(), mock.Anything).Return(account, nil).Once()
		// the password changed since validation, the fingerprint no longer matches
		tokens.On("Verify", account, "session-token", accounts.TokenPurposeResetSession).
			Return(accounts.ErrTokenMismatch).Once()

		handler := accounts.NewFinalizePasswordResetHandler(repo, tokens)

		err := handler.Execute(ctx, accounts.FinalizePasswordResetMessage{
			Session:  "session-token",
			Password: "brand-new-password",
		})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "already been used")

		store.AssertNotCalled(t, "ResetPasswordTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Activity sink errors are not fatal", func(t *testing.T) {
		repo := new(MockRepositoryManager)
		store := new(MockAccounts)
		tokens := new(MockActionTokens)
		sink := new(MockActivitySink)

		accountID := uuid.New()
		account := &accounts.Account{ID: accountID, Email: "jane@example.com"}

		tokens.On("Parse", "session-token", accounts.TokenPurposeResetSession).
			Return(sessionClaims(accountID), nil).Once()
		repo.On("Accounts").Return(store)
		repo.On("RunInTx", mock.Anything, (*sql.TxOptions)(nil), mock.Anything).Return(nil)
		store.On("GetByID", mock.Anything, accountID.String(), mock.Anything).Return(account, nil).Once()
		tokens.On("Verify", account, "session-token", accounts.TokenPurposeResetSession).Return(nil).Once()
		store.On("ResetPasswordTx", mock.Anything, mock.Anything, accountID, mock.Anything).Return(nil).Once()
		sink.On("Record", mock.Anything, mock.Anything).Return(fmt.Errorf("sink unavailable")).Once()

		handler := accounts.NewFinalizePasswordResetHandler(repo, tokens).
			WithActivitySink(sink).
			WithLogger(testLogger{})

		var resp *accounts.FinalizePasswordResetResponse
		err := handler.Execute(ctx, accounts.FinalizePasswordResetMessage{
			Session:  "session-token",
			Password: "brand-new-password",
			OnResponse: func(r *accounts.FinalizePasswordResetResponse) {
				resp = r
			},
		})

		require.NoError(t, err)
		require.NotNil(t, resp)
		assert.True(t, resp.Success)
	})
}
