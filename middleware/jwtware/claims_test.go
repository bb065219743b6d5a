package jwtware

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapClaims(t *testing.T) {
	claims := mapClaims{
		"sub":  "account-123",
		"uid":  "uid-456",
		"role": "staff",
	}

	assert.Equal(t, "account-123", claims.Subject())
	assert.Equal(t, "uid-456", claims.AccountID())
	assert.Equal(t, "staff", claims.Role())
	assert.True(t, claims.HasRole("staff"))
	assert.False(t, claims.HasRole("admin"))
	assert.True(t, claims.IsAtLeast("customer"))
	assert.True(t, claims.IsAtLeast("staff"))
	assert.False(t, claims.IsAtLeast("admin"))
}

func TestMapClaimsFallbacks(t *testing.T) {
	claims := mapClaims{"sub": "account-123"}

	// no uid claim falls back to the subject
	assert.Equal(t, "account-123", claims.AccountID())
	assert.Equal(t, "", claims.Role())
	assert.False(t, claims.IsAtLeast("customer"))

	empty := mapClaims{}
	assert.Equal(t, "", empty.Subject())
	assert.Equal(t, "", empty.AccountID())
}

func TestMapClaimsTimestamps(t *testing.T) {
	issued := time.Now().Add(-time.Minute).Truncate(time.Second)
	expires := time.Now().Add(time.Hour).Truncate(time.Second)

	claims := mapClaims{
		"iat": float64(issued.Unix()),
		"exp": float64(expires.Unix()),
	}

	assert.Equal(t, issued.Unix(), claims.IssuedAt().Unix())
	assert.Equal(t, expires.Unix(), claims.Expires().Unix())

	empty := mapClaims{}
	assert.True(t, empty.Expires().IsZero())
	assert.True(t, empty.IssuedAt().IsZero())
}

func TestLocalValidator(t *testing.T) {
	signingKey := []byte("test-signing-key")

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "account-123",
		"role": "customer",
	})
	signed, err := token.SignedString(signingKey)
	require.NoError(t, err)

	validator := localValidator{keyFunc: func(t *jwt.Token) (any, error) {
		return signingKey, nil
	}}

	claims, err := validator.Validate(signed)
	require.NoError(t, err)
	assert.Equal(t, "account-123", claims.Subject())
	assert.Equal(t, "customer", claims.Role())

	_, err = validator.Validate("not-a-token")
	assert.Error(t, err)

	wrongKey := localValidator{keyFunc: func(t *jwt.Token) (any, error) {
		return []byte("different-key"), nil
	}}
	_, err = wrongKey.Validate(signed)
	assert.Error(t, err)
}
