package accounts

import (
	"encoding/base64"

	"github.com/google/uuid"
)

// EncodeAccountID wraps the account id in the urlsafe encoding carried
// by activation and reset links, so emails never expose raw ids.
func EncodeAccountID(id uuid.UUID) string {
	return base64.RawURLEncoding.EncodeToString([]byte(id.String()))
}

// DecodeAccountID reverses EncodeAccountID. Any malformed input, not
// just bad base64, reports ErrUnableToParseData; callers treat that as
// "no such account" rather than an application error.
func DecodeAccountID(encoded string) (uuid.UUID, error) {
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return uuid.Nil, ErrUnableToParseData
	}

	id, err := uuid.Parse(string(raw))
	if err != nil {
		return uuid.Nil, ErrUnableToParseData
	}

	return id, nil
}
