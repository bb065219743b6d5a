package accounts_test

import (
	"testing"

	accounts "github.com/goliatone/go-storefront-accounts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestEncodeDecodeAccountID(t *testing.T) {
	id := uuid.New()

	encoded := accounts.EncodeAccountID(id)
	assert.NotEmpty(t, encoded)
	assert.NotContains(t, encoded, id.String(), "the raw id should not leak into the link")

	decoded, err := accounts.DecodeAccountID(encoded)
	assert.NoError(t, err)
	assert.Equal(t, id, decoded)
}

func TestDecodeAccountIDMalformed(t *testing.T) {
	tests := []struct {
		name    string
		encoded string
	}{
		{
			name:    "Not base64",
			encoded: "!!not-base64!!",
		},
		{
			name:    "Base64 but not a uuid",
			encoded: "bm90LWEtdXVpZA", // "not-a-uuid"
		},
		{
			name:    "Empty string",
			encoded: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := accounts.DecodeAccountID(tt.encoded)
			assert.Equal(t, accounts.ErrUnableToParseData, err)
			assert.Equal(t, uuid.Nil, id)
		})
	}
}
