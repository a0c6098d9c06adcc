package auth

import (
	"fmt"
	"strings"
)

// BearerPrefix is the scheme prefix accepted in the Authorization header.
const BearerPrefix = "Bearer "

// TokenVerifier verifies a raw token into a principal.
type TokenVerifier interface {
	Verify(token string) (*Principal, error)
}

// AccessGate turns request credentials into a principal or a rejection.
type AccessGate struct {
	verifier TokenVerifier
}

// NewAccessGate creates a gate backed by verifier.
func NewAccessGate(verifier TokenVerifier) *AccessGate {
	return &AccessGate{verifier: verifier}
}

// ExtractToken picks the token from the dedicated token field first and the
// Authorization header second. A "Bearer " prefix is stripped from whichever
// value is chosen. ok is false when neither carries a value.
func ExtractToken(tokenField, authorization string) (token string, ok bool) {
	raw := tokenField
	if raw == "" {
		raw = authorization
	}
	if raw == "" {
		return "", false
	}

	if strings.HasPrefix(raw, BearerPrefix) {
		return raw[len(BearerPrefix):], true
	}
	return raw, true
}

// Authenticate returns ErrUnauthenticated when no token is presented and an
// error wrapping ErrInvalidToken (and ErrTokenMalformed or ErrTokenExpired)
// when the token fails verification.
func (g *AccessGate) Authenticate(tokenField, authorization string) (*Principal, error) {
	token, ok := ExtractToken(tokenField, authorization)
	if !ok {
		return nil, ErrUnauthenticated
	}

	principal, err := g.verifier.Verify(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return principal, nil
}
