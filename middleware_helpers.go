package accounts

import (
	"context"

	"github.com/goliatone/go-storefront-accounts/middleware/jwtware"
)

// TokenValidatorAdapter bridges a TokenService into the middleware's
// validator interface.
type TokenValidatorAdapter struct {
	Service TokenValidator
}

func (a TokenValidatorAdapter) Validate(tokenString string) (jwtware.AuthClaims, error) {
	claims, err := a.Service.Validate(tokenString)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// ContextEnricherAdapter adapts jwtware.AuthClaims to accounts.AuthClaims and
// stores them in the standard context for downstream usage.
func ContextEnricherAdapter(c context.Context, claims jwtware.AuthClaims) context.Context {
	authClaims, ok := claims.(AuthClaims)
	if !ok {
		return c
	}

	return WithClaimsContext(c, authClaims)
}
