package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vidshare/api/internal/config"
	"github.com/vidshare/api/internal/metrics"
	"github.com/vidshare/api/internal/models"
)

// New builds the stores for the configured driver.
func New(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*Stores, error) {
	var stores *Stores

	switch cfg.Store.Driver {
	case config.StoreDriverMemory, "":
		stores = &Stores{
			Driver:   config.StoreDriverMemory,
			Users:    NewMemoryUserStore(),
			Comments: NewMemoryCommentStore(),
		}
		logger.Warn("Using in-memory store, data is lost on restart")

	case config.StoreDriverDynamoDB:
		client, err := NewDynamoDBClient(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		stores = &Stores{
			Driver:   config.StoreDriverDynamoDB,
			Users:    NewDynamoUserStore(client, cfg.DynamoDB.UsersTableName),
			Comments: NewDynamoCommentStore(client, cfg.DynamoDB.CommentsTableName),
			ping:     dynamoPing(client, cfg.DynamoDB.UsersTableName, cfg.DynamoDB.CommentsTableName),
		}

	case config.StoreDriverPostgres:
		pool, err := NewPostgresPool(ctx, &cfg.Postgres, logger)
		if err != nil {
			return nil, err
		}
		stores = &Stores{
			Driver:   config.StoreDriverPostgres,
			Users:    NewPostgresUserStore(pool),
			Comments: NewPostgresCommentStore(pool),
			ping:     pool.Ping,
			close:    pool.Close,
		}

	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}

	stores.Users = &instrumentedUserStore{next: stores.Users, driver: stores.Driver}
	stores.Comments = &instrumentedCommentStore{next: stores.Comments, driver: stores.Driver}
	return stores, nil
}

func observe(driver, operation string, start time.Time, err error) {
	status := "success"
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		status = "not_found"
	case errors.Is(err, ErrDuplicate):
		status = "duplicate"
	default:
		status = "error"
	}
	metrics.RecordStoreOperation(driver, operation, status, time.Since(start))
}

type instrumentedUserStore struct {
	next   UserStore
	driver string
}

func (s *instrumentedUserStore) FindByUsernameOrEmail(ctx context.Context, username, email string) (*models.User, error) {
	start := time.Now()
	user, err := s.next.FindByUsernameOrEmail(ctx, username, email)
	observe(s.driver, "find_user", start, err)
	return user, err
}

func (s *instrumentedUserStore) InsertIfAbsent(ctx context.Context, user *models.User) error {
	start := time.Now()
	err := s.next.InsertIfAbsent(ctx, user)
	observe(s.driver, "insert_user", start, err)
	return err
}

type instrumentedCommentStore struct {
	next   CommentStore
	driver string
}

func (s *instrumentedCommentStore) ListByVideo(ctx context.Context, videoID string) ([]models.Comment, error) {
	start := time.Now()
	out, err := s.next.ListByVideo(ctx, videoID)
	observe(s.driver, "list_comments", start, err)
	return out, err
}

func (s *instrumentedCommentStore) Create(ctx context.Context, comment *models.Comment) error {
	start := time.Now()
	err := s.next.Create(ctx, comment)
	observe(s.driver, "create_comment", start, err)
	return err
}

func (s *instrumentedCommentStore) Get(ctx context.Context, id string) (*models.Comment, error) {
	start := time.Now()
	c, err := s.next.Get(ctx, id)
	observe(s.driver, "get_comment", start, err)
	return c, err
}

func (s *instrumentedCommentStore) UpdateText(ctx context.Context, id, authorID, text string, updatedAt time.Time) (*models.Comment, error) {
	start := time.Now()
	c, err := s.next.UpdateText(ctx, id, authorID, text, updatedAt)
	observe(s.driver, "update_comment", start, err)
	return c, err
}

func (s *instrumentedCommentStore) Delete(ctx context.Context, id, authorID string) error {
	start := time.Now()
	err := s.next.Delete(ctx, id, authorID)
	observe(s.driver, "delete_comment", start, err)
	return err
}
