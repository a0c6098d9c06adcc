// Package comments implements comment listing and the owner-gated
// create/update/delete operations.
package comments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/vidshare/api/internal/auth"
	"github.com/vidshare/api/internal/models"
	"github.com/vidshare/api/internal/store"
)

const maxVideoIDLength = 128

// Service coordinates comment persistence with the ownership policy.
type Service struct {
	store  store.CommentStore
	policy auth.OwnershipPolicy
	logger *logrus.Logger

	newID func() string
	now   func() time.Time
}

func NewService(comments store.CommentStore, logger *logrus.Logger) *Service {
	return &Service{
		store:  comments,
		logger: logger,
		newID:  uuid.NewString,
		now:    time.Now,
	}
}

// List returns the comments on a video, newest first. It needs no principal.
func (s *Service) List(ctx context.Context, videoID string) ([]models.Comment, error) {
	videoID, err := checkVideoID(videoID)
	if err != nil {
		return nil, err
	}

	out, err := s.store.ListByVideo(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return out, nil
}

// Create stores a new comment authored by p.
func (s *Service) Create(ctx context.Context, p *auth.Principal, videoID string, req models.CommentRequest) (*models.Comment, error) {
	if p == nil {
		return nil, auth.ErrUnauthenticated
	}

	videoID, err := checkVideoID(videoID)
	if err != nil {
		return nil, err
	}

	req.Normalize()
	if err := models.Validate(&req); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	comment := &models.Comment{
		ID:         s.newID(),
		VideoID:    videoID,
		AuthorID:   p.UserID,
		AuthorName: p.Username,
		Text:       req.Text,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.store.Create(ctx, comment); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// the author account is gone
			return nil, auth.ErrForbidden
		}
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"comment_id": comment.ID,
		"video_id":   videoID,
		"user_id":    p.UserID,
	}).Info("Comment created")

	return comment, nil
}

// Update replaces the text of a comment. A missing comment is reported
// before ownership is checked.
func (s *Service) Update(ctx context.Context, p *auth.Principal, id string, req models.CommentRequest) (*models.Comment, error) {
	if _, err := s.authorize(ctx, p, id); err != nil {
		return nil, err
	}

	req.Normalize()
	if err := models.Validate(&req); err != nil {
		return nil, err
	}

	updated, err := s.store.UpdateText(ctx, id, p.UserID, req.Text, s.now().UTC())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// deleted between the lookup and the conditional write
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to update comment: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"comment_id": id,
		"user_id":    p.UserID,
	}).Info("Comment updated")

	return updated, nil
}

// Delete removes a comment owned by p.
func (s *Service) Delete(ctx context.Context, p *auth.Principal, id string) error {
	if _, err := s.authorize(ctx, p, id); err != nil {
		return err
	}

	if err := s.store.Delete(ctx, id, p.UserID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.ErrNotFound
		}
		return fmt.Errorf("failed to delete comment: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"comment_id": id,
		"user_id":    p.UserID,
	}).Info("Comment deleted")

	return nil
}

// CheckAccess reports whether p may modify comment id: store.ErrNotFound when
// it does not exist, auth.ErrForbidden when p is not the author.
func (s *Service) CheckAccess(ctx context.Context, p *auth.Principal, id string) error {
	_, err := s.authorize(ctx, p, id)
	return err
}

func (s *Service) authorize(ctx context.Context, p *auth.Principal, id string) (*models.Comment, error) {
	if p == nil {
		return nil, auth.ErrUnauthenticated
	}

	existing, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load comment: %w", err)
	}

	if err := s.policy.Authorize(p, existing.AuthorID); err != nil {
		s.logger.WithFields(logrus.Fields{
			"comment_id": id,
			"user_id":    p.UserID,
		}).Warn("Comment mutation by non-owner rejected")
		return nil, err
	}
	return existing, nil
}

func checkVideoID(videoID string) (string, error) {
	videoID = strings.TrimSpace(videoID)
	switch {
	case videoID == "":
		return "", &models.ValidationError{Violations: []models.FieldViolation{{Field: "videoId", Message: "is required"}}}
	case len(videoID) > maxVideoIDLength:
		return "", &models.ValidationError{Violations: []models.FieldViolation{{Field: "videoId", Message: fmt.Sprintf("must be at most %d characters", maxVideoIDLength)}}}
	}
	return videoID, nil
}
