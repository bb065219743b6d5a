package accounts_test

import (
	"errors"
	"testing"

	validation "github.com/go-ozzo/ozzo-validation"
	accounts "github.com/goliatone/go-storefront-accounts"
	"github.com/stretchr/testify/assert"
)

func TestIsTokenExpiredError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "Structured token expired error",
			err:      accounts.ErrTokenExpired,
			expected: true,
		},
		{
			name:     "Legacy token expired error (string match)",
			err:      errors.New("some wrapper: token is expired"),
			expected: true,
		},
		{
			name:     "Different structured error",
			err:      accounts.ErrIdentityNotFound,
			expected: false,
		},
		{
			name:     "Different legacy error",
			err:      errors.New("invalid token"),
			expected: false,
		},
		{
			name:     "Nil error",
			err:      nil,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, accounts.IsTokenExpiredError(tt.err))
		})
	}
}

func TestIsMalformedError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "Legacy malformed error (string match)",
			err:      errors.New("token is malformed"),
			expected: true,
		},
		{
			name:     "Legacy missing JWT error (string match)",
			err:      errors.New("missing or malformed JWT"),
			expected: true,
		},
		{
			name:     "Different error",
			err:      errors.New("invalid token"),
			expected: false,
		},
		{
			name:     "Nil error",
			err:      nil,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, accounts.IsMalformedError(tt.err))
		})
	}
}

func TestFormatValidationErrorToMap(t *testing.T) {
	t.Run("Validation errors map to fields", func(t *testing.T) {
		verrs := validation.Errors{
			"email":    errors.New("must be a valid email address"),
			"password": errors.New("the length must be between 10 and 100"),
		}

		out := accounts.FormatValidationErrorToMap(verrs)

		assert.Equal(t, "must be a valid email address", out["email"])
		assert.Equal(t, "the length must be between 10 and 100", out["password"])
	})

	t.Run("Plain errors use a generic key", func(t *testing.T) {
		out := accounts.FormatValidationErrorToMap(errors.New("boom"))
		assert.Equal(t, map[string]string{"error": "boom"}, out)
	})

	t.Run("Nil error yields an empty map", func(t *testing.T) {
		out := accounts.FormatValidationErrorToMap(nil)
		assert.Empty(t, out)
	})
}
