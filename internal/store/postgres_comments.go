package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/vidshare/api/internal/models"
)

const commentColumns = "id, video_id, author_id, author_name, text, created_at, updated_at"

// PostgresCommentStore implements CommentStore on PostgreSQL.
type PostgresCommentStore struct {
	db DBTX
}

func NewPostgresCommentStore(db DBTX) *PostgresCommentStore {
	return &PostgresCommentStore{db: db}
}

func (s *PostgresCommentStore) ListByVideo(ctx context.Context, videoID string) ([]models.Comment, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+commentColumns+`
		FROM comments
		WHERE video_id = $1
		ORDER BY created_at DESC, id DESC
	`, videoID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := make([]models.Comment, 0)
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.ID, &c.VideoID, &c.AuthorID, &c.AuthorName, &c.Text, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (s *PostgresCommentStore) Create(ctx context.Context, c *models.Comment) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO comments (`+commentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, c.ID, c.VideoID, c.AuthorID, c.AuthorName, c.Text, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return ErrDuplicate
		case isForeignKeyViolation(err):
			// author account no longer exists
			return ErrNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (s *PostgresCommentStore) Get(ctx context.Context, id string) (*models.Comment, error) {
	return s.scanOne(s.db.QueryRow(ctx, `SELECT `+commentColumns+` FROM comments WHERE id = $1`, id))
}

func (s *PostgresCommentStore) UpdateText(ctx context.Context, id, authorID, text string, updatedAt time.Time) (*models.Comment, error) {
	return s.scanOne(s.db.QueryRow(ctx, `
		UPDATE comments SET text = $3, updated_at = $4
		WHERE id = $1 AND author_id = $2
		RETURNING `+commentColumns,
		id, authorID, text, updatedAt))
}

func (s *PostgresCommentStore) Delete(ctx context.Context, id, authorID string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM comments WHERE id = $1 AND author_id = $2`, id, authorID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresCommentStore) scanOne(row pgx.Row) (*models.Comment, error) {
	var c models.Comment
	if err := row.Scan(&c.ID, &c.VideoID, &c.AuthorID, &c.AuthorName, &c.Text, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &c, nil
}
