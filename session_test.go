package accounts_test

import (
	"testing"
	"time"

	accounts "github.com/goliatone/go-storefront-accounts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionObjectAccessors(t *testing.T) {
	accountID := uuid.New()
	issued := time.Now()

	session := &accounts.SessionObject{
		AccountID: accountID.String(),
		Audience:  []string{"web"},
		Issuer:    "storefront",
		IssuedAt:  &issued,
		Data:      map[string]any{"role": "staff"},
	}

	assert.Equal(t, accountID.String(), session.GetAccountID())
	assert.Equal(t, []string{"web"}, session.GetAudience())
	assert.Equal(t, "storefront", session.GetIssuer())
	assert.Equal(t, &issued, session.GetIssuedAt())

	parsed, err := session.GetAccountUUID()
	require.NoError(t, err)
	assert.Equal(t, accountID, parsed)
}

func TestSessionObjectGetAccountUUIDInvalid(t *testing.T) {
	session := &accounts.SessionObject{AccountID: "not-a-uuid"}

	_, err := session.GetAccountUUID()
	assert.Error(t, err)
}

func TestSessionObjectGetRole(t *testing.T) {
	tests := []struct {
		name     string
		data     map[string]any
		expected accounts.AccountRole
	}{
		{
			name:     "valid role",
			data:     map[string]any{"role": "admin"},
			expected: accounts.RoleAdmin,
		},
		{
			name:     "unknown role falls back to customer",
			data:     map[string]any{"role": "superuser"},
			expected: accounts.RoleCustomer,
		},
		{
			name:     "non string role falls back to customer",
			data:     map[string]any{"role": 42},
			expected: accounts.RoleCustomer,
		},
		{
			name:     "missing data falls back to customer",
			data:     nil,
			expected: accounts.RoleCustomer,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := &accounts.SessionObject{Data: tt.data}
			assert.Equal(t, tt.expected, session.GetRole())
		})
	}
}

func TestSessionObjectString(t *testing.T) {
	issued := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	session := accounts.SessionObject{
		AccountID: "abc",
		Issuer:    "storefront",
		IssuedAt:  &issued,
	}

	out := session.String()
	assert.Contains(t, out, "account=abc")
	assert.Contains(t, out, "iss=storefront")

	empty := accounts.SessionObject{}
	assert.Contains(t, empty.String(), "iat=<nil>")
}
