package accounts

import (
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

// TokenPurpose scopes an action token to a single workflow
type TokenPurpose = string

const (
	// TokenPurposeActivate is carried by account activation links
	TokenPurposeActivate TokenPurpose = "activate"
	// TokenPurposeReset is carried by password reset links
	TokenPurposeReset TokenPurpose = "password-reset"
	// TokenPurposeResetSession marks a browser that followed a valid
	// reset link and may submit the new-password form
	TokenPurposeResetSession TokenPurpose = "password-reset-session"
)

// DefaultActionTokenTTL is how long activation and reset links stay valid
const DefaultActionTokenTTL = 24 * time.Hour

// ActionTokenClaims is the payload of activation/reset link tokens
type ActionTokenClaims struct {
	jwt.RegisteredClaims
	Purpose string `json:"purpose"`
	State   string `json:"state"`
}

// ActionTokenService mints and verifies stateless action tokens. The
// token embeds a fingerprint of the account's mutable state, which is
// what makes a token single-useful: once the password or last login
// changes, every previously issued token stops verifying.
type ActionTokenService struct {
	signingKey []byte
	ttl        time.Duration
	issuer     string
	logger     Logger
}

var _ ActionTokens = (*ActionTokenService)(nil)

// NewActionTokenService creates an ActionTokens implementation backed by
// an HMAC signed payload. A zero ttl uses DefaultActionTokenTTL.
func NewActionTokenService(signingKey []byte, ttl time.Duration, issuer string, logger Logger) *ActionTokenService {
	if ttl == 0 {
		ttl = DefaultActionTokenTTL
	}
	if logger == nil {
		logger = defLogger{}
	}
	return &ActionTokenService{
		signingKey: signingKey,
		ttl:        ttl,
		issuer:     issuer,
		logger:     logger,
	}
}

// Issue creates a signed token for the given account and purpose
func (ts *ActionTokenService) Issue(account *Account, purpose TokenPurpose) (string, error) {
	if account == nil {
		return "", goerrors.New("account is required to issue a token", goerrors.CategoryBadInput)
	}

	now := time.Now()
	claims := &ActionTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   account.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.ttl)),
		},
		Purpose: purpose,
		State:   account.StateFingerprint(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign action token")
	}

	return signed, nil
}

// Verify checks that the token was issued for this exact account and
// purpose and that the bound account state has not changed since.
func (ts *ActionTokenService) Verify(account *Account, token string, purpose TokenPurpose) error {
	if account == nil {
		return ErrIdentityNotFound
	}

	claims, err := ts.parse(token)
	if err != nil {
		return err
	}

	if claims.Purpose != purpose {
		return ErrTokenMismatch
	}

	if claims.Subject != account.ID.String() {
		return ErrTokenMismatch
	}

	if subtle.ConstantTimeCompare([]byte(claims.State), []byte(account.StateFingerprint())) != 1 {
		return ErrTokenMismatch
	}

	return nil
}

// Parse decodes a token without binding it to an account. The reset
// session cookie uses this: the subject identifies the pending account.
func (ts *ActionTokenService) Parse(token string, purpose TokenPurpose) (*ActionTokenClaims, error) {
	claims, err := ts.parse(token)
	if err != nil {
		return nil, err
	}

	if claims.Purpose != purpose {
		return nil, ErrTokenMismatch
	}

	return claims, nil
}

func (ts *ActionTokenService) parse(raw string) (*ActionTokenClaims, error) {
	parserOptions := []jwt.ParserOption{}
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}

	token, err := jwt.ParseWithClaims(raw, &ActionTokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("action token has unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if goerrors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, goerrors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode)
	}

	claims, ok := token.Claims.(*ActionTokenClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenMalformed
	}

	return claims, nil
}
