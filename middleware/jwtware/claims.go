package jwtware

import (
	"encoding/json"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// roleLevels mirrors the role hierarchy of the accounts package.
var roleLevels = map[string]int{
	"customer": 0,
	"staff":    1,
	"admin":    2,
}

// localValidator parses tokens with the configured key func. Used when
// no TokenValidator is supplied.
type localValidator struct {
	keyFunc jwt.Keyfunc
}

func (v localValidator) Validate(tokenString string) (AuthClaims, error) {
	token, err := jwt.Parse(tokenString, v.keyFunc)
	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, ErrJWTMissingOrMalformed
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrJWTMissingOrMalformed
	}

	return mapClaims(claims), nil
}

// mapClaims adapts jwt.MapClaims to the AuthClaims interface.
type mapClaims jwt.MapClaims

func (m mapClaims) Subject() string {
	if sub, ok := m["sub"].(string); ok {
		return sub
	}
	return ""
}

func (m mapClaims) AccountID() string {
	if uid, ok := m["uid"].(string); ok && uid != "" {
		return uid
	}
	return m.Subject()
}

func (m mapClaims) Role() string {
	if role, ok := m["role"].(string); ok {
		return role
	}
	return ""
}

func (m mapClaims) HasRole(role string) bool {
	return m.Role() == role
}

func (m mapClaims) IsAtLeast(minRole string) bool {
	level, ok := roleLevels[m.Role()]
	if !ok {
		return false
	}

	minLevel, ok := roleLevels[minRole]
	if !ok {
		return false
	}

	return level >= minLevel
}

// Expires and IssuedAt expose the registered timestamp claims so the
// stored value satisfies downstream session interfaces as well.
func (m mapClaims) Expires() time.Time {
	return m.numericDate("exp")
}

func (m mapClaims) IssuedAt() time.Time {
	return m.numericDate("iat")
}

func (m mapClaims) numericDate(key string) time.Time {
	switch v := m[key].(type) {
	case float64:
		return time.Unix(int64(v), 0)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return time.Unix(n, 0)
		}
	}
	return time.Time{}
}

var _ AuthClaims = mapClaims{}
