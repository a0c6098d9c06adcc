package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-do-not-use"

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func newTestTokenService(t *testing.T, clock *fakeClock) *TokenService {
	t.Helper()
	s, err := NewTokenService(testSecret, "vidshare-api", WithClock(clock.Now))
	require.NoError(t, err)
	return s
}

func TestTokenService_IssueAndVerify(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 3, 1, 10, 30, 15, 500, time.UTC)}
	s := newTestTokenService(t, clock)

	token, expiresAt, err := s.Issue(TokenClaims{SubjectID: "u1", Username: "alice"}, TokenTTL)
	require.NoError(t, err)
	assert.Equal(t, 3, len(strings.Split(token, ".")))

	p, err := s.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", p.UserID)
	assert.Equal(t, "alice", p.Username)
	assert.False(t, p.IssuedAt.After(clock.t))
	assert.Equal(t, 7*24*time.Hour, p.ExpiresAt.Sub(p.IssuedAt))
	assert.True(t, expiresAt.Equal(p.ExpiresAt))
	assert.True(t, clock.t.Before(p.ExpiresAt))
}

func TestTokenService_CarriesLegacyIDClaim(t *testing.T) {
	s := newTestTokenService(t, &fakeClock{t: time.Now()})

	token, _, err := s.Issue(TokenClaims{SubjectID: "u1", Username: "alice"}, TokenTTL)
	require.NoError(t, err)

	claims := jwt.MapClaims{}
	_, _, err = jwt.NewParser().ParseUnverified(token, claims)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims["id"])
	assert.Equal(t, "u1", claims["sub"])
	assert.Equal(t, "alice", claims["username"])
	assert.Equal(t, "vidshare-api", claims["iss"])
}

func TestTokenService_Expiry(t *testing.T) {
	issued := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	clock := &fakeClock{t: issued}
	s := newTestTokenService(t, clock)

	token, _, err := s.Issue(TokenClaims{SubjectID: "u1", Username: "alice"}, TokenTTL)
	require.NoError(t, err)

	clock.t = issued.Add(TokenTTL - time.Second)
	_, err = s.Verify(token)
	assert.NoError(t, err)

	clock.t = issued.Add(TokenTTL + time.Second)
	_, err = s.Verify(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.NotErrorIs(t, err, ErrTokenMalformed)
}

func TestTokenService_RejectsMalformed(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	s := newTestTokenService(t, clock)

	good, _, err := s.Issue(TokenClaims{SubjectID: "u1", Username: "alice"}, TokenTTL)
	require.NoError(t, err)

	other, err := NewTokenService("another-secret", "vidshare-api", WithClock(clock.Now))
	require.NoError(t, err)
	foreign, _, err := other.Issue(TokenClaims{SubjectID: "u1", Username: "alice"}, TokenTTL)
	require.NoError(t, err)

	parts := strings.Split(good, ".")
	tamperedPayload := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:   "u2",
		Username: "mallory",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u2",
			Issuer:    "vidshare-api",
			IssuedAt:  jwt.NewNumericDate(clock.t),
			ExpiresAt: jwt.NewNumericDate(clock.t.Add(time.Hour)),
		},
	})
	forged, err := tamperedPayload.SigningString()
	require.NoError(t, err)

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "u1", "iat": clock.t.Unix(), "exp": clock.t.Add(time.Hour).Unix(), "iss": "vidshare-api",
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
		"sub": "u1", "iat": clock.t.Unix(), "exp": clock.t.Add(time.Hour).Unix(), "iss": "vidshare-api",
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	wrongIssuer, err := NewTokenService(testSecret, "someone-else", WithClock(clock.Now))
	require.NoError(t, err)
	otherIss, _, err := wrongIssuer.Issue(TokenClaims{SubjectID: "u1"}, TokenTTL)
	require.NoError(t, err)

	mismatch, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: "u9",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			Issuer:    "vidshare-api",
			IssuedAt:  jwt.NewNumericDate(clock.t),
			ExpiresAt: jwt.NewNumericDate(clock.t.Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := map[string]string{
		"garbage":             "not-a-token",
		"empty":               "",
		"wrong secret":        foreign,
		"swapped payload":     forged + "." + parts[2],
		"alg none":            noneToken,
		"hs512":               hs512,
		"wrong issuer":        otherIss,
		"id and sub disagree": mismatch,
	}

	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := s.Verify(token)
			assert.ErrorIs(t, err, ErrTokenMalformed)
			assert.NotErrorIs(t, err, ErrTokenExpired)
		})
	}
}

func TestTokenService_BadSignatureBeatsExpiry(t *testing.T) {
	issued := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	clock := &fakeClock{t: issued}
	s := newTestTokenService(t, clock)

	other, err := NewTokenService("another-secret", "vidshare-api", WithClock(clock.Now))
	require.NoError(t, err)
	foreign, _, err := other.Issue(TokenClaims{SubjectID: "u1"}, TokenTTL)
	require.NoError(t, err)

	clock.t = issued.Add(30 * 24 * time.Hour)
	_, err = s.Verify(foreign)
	assert.ErrorIs(t, err, ErrTokenMalformed)
}

func TestNewTokenService_EmptySecret(t *testing.T) {
	_, err := NewTokenService("", "vidshare-api")
	assert.ErrorIs(t, err, ErrEmptySecret)
}

func TestTokenService_IssueRequiresSubject(t *testing.T) {
	s := newTestTokenService(t, &fakeClock{t: time.Now()})
	_, _, err := s.Issue(TokenClaims{Username: "alice"}, TokenTTL)
	assert.Error(t, err)
}
