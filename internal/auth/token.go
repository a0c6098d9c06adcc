package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenTTL is the fixed validity window of an access token.
const TokenTTL = 7 * 24 * time.Hour

// TokenClaims identifies the principal a token is issued for.
type TokenClaims struct {
	SubjectID string
	Username  string
}

// Claims is the JWT payload. "id" is kept alongside "sub" for older clients.
type Claims struct {
	UserID   string `json:"id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 tokens with a process-wide secret.
// It holds no mutable state and is safe for concurrent use.
type TokenService struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// TokenOption configures a TokenService.
type TokenOption func(*TokenService)

// WithClock overrides the time source.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) {
		s.now = now
	}
}

// NewTokenService builds a token service. An empty secret is a startup error.
func NewTokenService(secret, issuer string, opts ...TokenOption) (*TokenService, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}

	s := &TokenService{
		secret: []byte(secret),
		issuer: issuer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue signs a token for claims that expires ttl after issuance.
func (s *TokenService) Issue(claims TokenClaims, ttl time.Duration) (string, time.Time, error) {
	if claims.SubjectID == "" {
		return "", time.Time{}, errors.New("token subject is required")
	}

	// NumericDate has second precision; truncate so exp-iat is exactly ttl
	issuedAt := s.now().Truncate(time.Second)
	expiresAt := issuedAt.Add(ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:   claims.SubjectID,
		Username: claims.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.SubjectID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, expiresAt, nil
}

// Verify checks the signature first, then expiry. It returns ErrTokenExpired
// for a correctly signed token past its expiry and ErrTokenMalformed for
// anything else.
func (s *TokenService) Verify(tokenString string) (*Principal, error) {
	claims := &Claims{}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}

	if !token.Valid {
		return nil, ErrTokenMalformed
	}

	if claims.Subject == "" || claims.IssuedAt == nil {
		return nil, fmt.Errorf("%w: missing subject or iat", ErrTokenMalformed)
	}

	userID := claims.Subject
	if claims.UserID != "" && claims.UserID != userID {
		return nil, fmt.Errorf("%w: subject mismatch", ErrTokenMalformed)
	}

	return &Principal{
		UserID:    userID,
		Username:  claims.Username,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
