package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vidshare/api/internal/models"
)

// MemoryUserStore is an in-process UserStore for development and tests.
type MemoryUserStore struct {
	mu         sync.RWMutex
	byID       map[string]models.User
	byUsername map[string]string
	byEmail    map[string]string
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{
		byID:       make(map[string]models.User),
		byUsername: make(map[string]string),
		byEmail:    make(map[string]string),
	}
}

func (s *MemoryUserStore) FindByUsernameOrEmail(_ context.Context, username, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byUsername[username]
	if !ok {
		id, ok = s.byEmail[email]
	}
	if !ok {
		return nil, ErrNotFound
	}

	user := s.byID[id]
	return &user, nil
}

func (s *MemoryUserStore) InsertIfAbsent(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byID[user.UserID]; taken {
		return ErrDuplicate
	}
	if _, taken := s.byUsername[user.Username]; taken {
		return ErrDuplicate
	}
	if _, taken := s.byEmail[user.Email]; taken {
		return ErrDuplicate
	}

	s.byID[user.UserID] = *user
	s.byUsername[user.Username] = user.UserID
	s.byEmail[user.Email] = user.UserID
	return nil
}

// MemoryCommentStore is an in-process CommentStore for development and tests.
type MemoryCommentStore struct {
	mu       sync.RWMutex
	comments map[string]models.Comment
}

func NewMemoryCommentStore() *MemoryCommentStore {
	return &MemoryCommentStore{comments: make(map[string]models.Comment)}
}

func (s *MemoryCommentStore) ListByVideo(_ context.Context, videoID string) ([]models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Comment, 0)
	for _, c := range s.comments {
		if c.VideoID == videoID {
			out = append(out, c)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *MemoryCommentStore) Create(_ context.Context, comment *models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.comments[comment.ID]; exists {
		return ErrDuplicate
	}
	s.comments[comment.ID] = *comment
	return nil
}

func (s *MemoryCommentStore) Get(_ context.Context, id string) (*models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.comments[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (s *MemoryCommentStore) UpdateText(_ context.Context, id, authorID, text string, updatedAt time.Time) (*models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[id]
	if !ok || c.AuthorID != authorID {
		return nil, ErrNotFound
	}
	c.Text = text
	c.UpdatedAt = updatedAt
	s.comments[id] = c
	return &c, nil
}

func (s *MemoryCommentStore) Delete(_ context.Context, id, authorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[id]
	if !ok || c.AuthorID != authorID {
		return ErrNotFound
	}
	delete(s.comments, id)
	return nil
}

func sortNewestFirst(comments []models.Comment) {
	sort.SliceStable(comments, func(i, j int) bool {
		if comments[i].CreatedAt.Equal(comments[j].CreatedAt) {
			return comments[i].ID > comments[j].ID
		}
		return comments[i].CreatedAt.After(comments[j].CreatedAt)
	})
}
