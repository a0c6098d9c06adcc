package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/vidshare/api/internal/models"
)

// PostgresUserStore implements UserStore on PostgreSQL. Uniqueness is
// enforced by the users_username_key and users_email_key indexes.
type PostgresUserStore struct {
	db DBTX
}

func NewPostgresUserStore(db DBTX) *PostgresUserStore {
	return &PostgresUserStore{db: db}
}

func (s *PostgresUserStore) FindByUsernameOrEmail(ctx context.Context, username, email string) (*models.User, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, username, email, password_hash, avatar, created_at
		FROM users
		WHERE username = $1 OR email = $2
		ORDER BY (username = $1) DESC
		LIMIT 1
	`, username, email)

	var user models.User
	err := row.Scan(&user.UserID, &user.Username, &user.Email, &user.PasswordHash, &user.Avatar, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &user, nil
}

func (s *PostgresUserStore) InsertIfAbsent(ctx context.Context, user *models.User) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO users (id, username, email, password_hash, avatar, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, user.UserID, user.Username, user.Email, user.PasswordHash, user.Avatar, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
