package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/vidshare/api/internal/models"
	"github.com/vidshare/api/internal/store"
)

// CredentialStore is the user persistence the authenticator depends on.
type CredentialStore interface {
	// FindByUsernameOrEmail returns the user matching either key, or store.ErrNotFound.
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*models.User, error)

	// InsertIfAbsent atomically creates the user, returning store.ErrDuplicate
	// when the username or email is already taken.
	InsertIfAbsent(ctx context.Context, user *models.User) error
}

// TokenIssuer signs tokens for a principal.
type TokenIssuer interface {
	Issue(claims TokenClaims, ttl time.Duration) (string, time.Time, error)
}

// LoginResult is returned from a successful login.
type LoginResult struct {
	Token     string
	UserID    string
	Username  string
	ExpiresAt time.Time
}

// Authenticator registers users and exchanges credentials for tokens.
type Authenticator struct {
	users  CredentialStore
	hasher PasswordHasher
	tokens TokenIssuer
	logger *logrus.Logger

	// compared against when the account does not exist so both failure
	// paths pay for one hash comparison
	dummyHash string

	newID func() string
	now   func() time.Time
}

// NewAuthenticator wires the authenticator. It computes one hash up front.
func NewAuthenticator(users CredentialStore, hasher PasswordHasher, tokens TokenIssuer, logger *logrus.Logger) (*Authenticator, error) {
	dummy, err := hasher.Hash(uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("failed to prepare dummy hash: %w", err)
	}

	return &Authenticator{
		users:     users,
		hasher:    hasher,
		tokens:    tokens,
		logger:    logger,
		dummyHash: dummy,
		newID:     uuid.NewString,
		now:       time.Now,
	}, nil
}

// Register validates the request, rejects taken usernames/emails and weak
// passwords, then stores the user with a hashed password. It does not issue
// a token.
func (a *Authenticator) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	req.Normalize()
	if err := models.Validate(&req); err != nil {
		return nil, err
	}

	// Fast-path rejection; the store's atomic insert is authoritative.
	existing, err := a.users.FindByUsernameOrEmail(ctx, req.Username, req.Email)
	switch {
	case err == nil && existing != nil:
		return nil, ErrDuplicateUser
	case err != nil && !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	if err := CheckPasswordPolicy(req.Password); err != nil {
		return nil, err
	}

	hash, err := a.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		UserID:       a.newID(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Avatar:       req.Avatar,
		CreatedAt:    a.now().UTC(),
	}

	if err := a.users.InsertIfAbsent(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrDuplicateUser
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	a.logger.WithFields(logrus.Fields{
		"user_id":  user.UserID,
		"username": user.Username,
	}).Info("User registered")

	return user, nil
}

// Login looks the account up by username or email and verifies the
// password. Unknown accounts and wrong passwords both return
// ErrInvalidCredentials.
func (a *Authenticator) Login(ctx context.Context, req models.LoginRequest) (*LoginResult, error) {
	req.Normalize()
	if err := models.Validate(&req); err != nil {
		return nil, err
	}

	// usernames are case-sensitive, emails are stored lowercased
	user, err := a.users.FindByUsernameOrEmail(ctx, req.EmailOrUsername, strings.ToLower(req.EmailOrUsername))
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("failed to look up user: %w", err)
		}
		a.hasher.Verify(req.Password, a.dummyHash)
		a.logger.WithField("reason", "unknown_user").Info("Login rejected")
		return nil, ErrInvalidCredentials
	}

	if !a.hasher.Verify(req.Password, user.PasswordHash) {
		a.logger.WithFields(logrus.Fields{
			"reason":  "bad_password",
			"user_id": user.UserID,
		}).Info("Login rejected")
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := a.tokens.Issue(TokenClaims{SubjectID: user.UserID, Username: user.Username}, TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	a.logger.WithFields(logrus.Fields{
		"user_id":  user.UserID,
		"username": user.Username,
	}).Info("User logged in")

	return &LoginResult{
		Token:     token,
		UserID:    user.UserID,
		Username:  user.Username,
		ExpiresAt: expiresAt,
	}, nil
}
