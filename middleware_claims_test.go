package accounts_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	accounts "github.com/goliatone/go-storefront-accounts"
	"github.com/goliatone/go-storefront-accounts/middleware/jwtware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Tokens minted at login pass through the middleware's fallback validator
// when no TokenValidator is configured. The claims it stores must satisfy
// the session claims interface or protected pages cannot read the session.
func TestMiddlewareFallbackClaimsSatisfySessionInterface(t *testing.T) {
	cfg := stubConfig{}

	svc := accounts.NewTokenService(
		[]byte(cfg.GetSigningKey()),
		cfg.GetTokenExpiration(),
		cfg.GetIssuer(),
		jwt.ClaimStrings(cfg.GetAudience()),
		nil,
	)

	identity := testIdentity{
		id:       "account-123",
		username: "jane",
		email:    "jane@example.com",
		role:     accounts.RoleCustomer,
	}

	token, err := svc.Generate(identity)
	require.NoError(t, err)

	mw := jwtware.GetDefaultConfig(jwtware.Config{
		SigningKey: jwtware.SigningKey{
			Key:    []byte(cfg.GetSigningKey()),
			JWTAlg: cfg.GetSigningMethod(),
		},
	})

	validated, err := mw.TokenValidator.Validate(token)
	require.NoError(t, err)

	claims, ok := validated.(accounts.AuthClaims)
	require.True(t, ok, "validated claims should carry the full session claim set")

	assert.Equal(t, "account-123", claims.AccountID())
	assert.Equal(t, accounts.RoleCustomer, claims.Role())
	assert.True(t, claims.Expires().After(time.Now()))
	assert.False(t, claims.IssuedAt().IsZero())
}
