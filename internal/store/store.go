package store

import (
	"context"
	"errors"
	"time"

	"github.com/vidshare/api/internal/models"
)

var (
	// ErrNotFound is returned when the requested record does not exist
	// (or no longer matches the write condition).
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is returned when a unique key is already taken.
	ErrDuplicate = errors.New("already exists")
)

// UserStore persists accounts. Implementations enforce username and email
// uniqueness atomically in InsertIfAbsent.
type UserStore interface {
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*models.User, error)
	InsertIfAbsent(ctx context.Context, user *models.User) error
}

// CommentStore persists comments. UpdateText and Delete only apply when the
// stored author matches authorID and return ErrNotFound otherwise.
type CommentStore interface {
	ListByVideo(ctx context.Context, videoID string) ([]models.Comment, error)
	Create(ctx context.Context, comment *models.Comment) error
	Get(ctx context.Context, id string) (*models.Comment, error)
	UpdateText(ctx context.Context, id, authorID, text string, updatedAt time.Time) (*models.Comment, error)
	Delete(ctx context.Context, id, authorID string) error
}

// Stores bundles the backends selected at startup.
type Stores struct {
	Driver   string
	Users    UserStore
	Comments CommentStore

	ping  func(ctx context.Context) error
	close func()
}

// Ping checks backend reachability.
func (s *Stores) Ping(ctx context.Context) error {
	if s.ping == nil {
		return nil
	}
	return s.ping(ctx)
}

// Close releases backend connections.
func (s *Stores) Close() {
	if s.close != nil {
		s.close()
	}
}
