package accounts_test

import (
	"context"
	"testing"

	accounts "github.com/goliatone/go-storefront-accounts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type stubConfig struct{}

func (stubConfig) GetSigningKey() string           { return "test-signing-key" }
func (stubConfig) GetSigningMethod() string        { return "HS256" }
func (stubConfig) GetContextKey() string           { return "jwt" }
func (stubConfig) GetTokenExpiration() int         { return 24 }
func (stubConfig) GetExtendedTokenDuration() int   { return 24 * 7 }
func (stubConfig) GetTokenLookup() string          { return "cookie:jwt" }
func (stubConfig) GetAuthScheme() string           { return "Bearer" }
func (stubConfig) GetIssuer() string               { return "storefront" }
func (stubConfig) GetAudience() []string           { return []string{"web"} }
func (stubConfig) GetRejectedRouteKey() string     { return "rejected_route" }
func (stubConfig) GetRejectedRouteDefault() string { return "/" }

type stubProvider struct {
	identity accounts.Identity
	err      error
}

func (p stubProvider) VerifyIdentity(ctx context.Context, identifier, password string) (accounts.Identity, error) {
	return p.identity, p.err
}

func (p stubProvider) FindIdentityByIdentifier(ctx context.Context, identifier string) (accounts.Identity, error) {
	return p.identity, p.err
}

func TestAuthenticatorLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("Successful login yields a session token", func(t *testing.T) {
		identity := testIdentity{
			id:       "account-123",
			username: "jane",
			email:    "jane@example.com",
			role:     accounts.RoleCustomer,
		}

		sink := new(MockActivitySink)
		sink.On("Record", mock.Anything, mock.MatchedBy(func(e accounts.ActivityEvent) bool {
			return e.EventType == accounts.ActivityEventLoginSuccess && e.AccountID == "account-123"
		})).Return(nil).Once()

		auther := accounts.NewAuthenticator(stubProvider{identity: identity}, stubConfig{}).
			WithActivitySink(sink)

		token, err := auther.Login(ctx, "jane@example.com", "password123")
		require.NoError(t, err)
		require.NotEmpty(t, token)

		session, err := auther.SessionFromToken(token)
		require.NoError(t, err)
		assert.Equal(t, "account-123", session.GetAccountID())
		assert.Equal(t, "storefront", session.GetIssuer())

		sink.AssertExpectations(t)
	})

	t.Run("Failed login emits a failure event", func(t *testing.T) {
		sink := new(MockActivitySink)
		sink.On("Record", mock.Anything, mock.MatchedBy(func(e accounts.ActivityEvent) bool {
			return e.EventType == accounts.ActivityEventLoginFailure
		})).Return(nil).Once()

		auther := accounts.NewAuthenticator(stubProvider{err: accounts.ErrMismatchedHashAndPassword}, stubConfig{}).
			WithActivitySink(sink)

		token, err := auther.Login(ctx, "jane@example.com", "wrong")
		assert.Error(t, err)
		assert.Empty(t, token)

		sink.AssertExpectations(t)
	})
}

func TestAuthenticatorSessionFromToken(t *testing.T) {
	auther := accounts.NewAuthenticator(stubProvider{}, stubConfig{})

	_, err := auther.SessionFromToken("not-a-token")
	assert.Error(t, err)
}

func TestAuthenticatorIdentityFromSession(t *testing.T) {
	ctx := context.Background()

	identity := testIdentity{id: "account-123", role: accounts.RoleCustomer}
	auther := accounts.NewAuthenticator(stubProvider{identity: identity}, stubConfig{})

	got, err := auther.IdentityFromSession(ctx, &accounts.SessionObject{AccountID: "account-123"})
	require.NoError(t, err)
	assert.Equal(t, "account-123", got.ID())
}
