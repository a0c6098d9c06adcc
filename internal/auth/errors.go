package auth

import (
	"errors"
	"strings"
)

var (
	// ErrDuplicateUser is returned when the username or email is already taken.
	ErrDuplicateUser = errors.New("user already exists")

	// ErrInvalidCredentials covers both an unknown account and a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUnauthenticated means no token was presented.
	ErrUnauthenticated = errors.New("not authenticated")

	// ErrInvalidToken is the parent of ErrTokenMalformed and ErrTokenExpired.
	ErrInvalidToken = errors.New("token is not valid")

	ErrTokenMalformed = errors.New("token malformed or signature mismatch")
	ErrTokenExpired   = errors.New("token expired")

	// ErrForbidden means the principal does not own the resource.
	ErrForbidden = errors.New("forbidden")

	// ErrEmptySecret is a startup error: tokens cannot be signed without a key.
	ErrEmptySecret = errors.New("token signing secret is empty")
)

// PasswordPolicyError lists the password rules that were not met.
type PasswordPolicyError struct {
	Reasons []string
}

func (e *PasswordPolicyError) Error() string {
	return "weak password: " + e.Message()
}

// Message is the human-readable explanation returned to clients.
func (e *PasswordPolicyError) Message() string {
	return "Password must " + strings.Join(e.Reasons, ", ") + "."
}
