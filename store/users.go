package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

var (
	ErrEmailExists  = errors.New("email already registered")
	ErrUserNotFound = errors.New("user not found")
)

const uniqueViolation = "23505"

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

// Create registers a user and marks them online.
func (s *UserStore) Create(ctx context.Context, email, passwordHash string) (int, error) {
	var id int
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (email, password_hash, last_online)
		VALUES ($1, $2, NOW())
		RETURNING id`, email, passwordHash).Scan(&id)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return 0, ErrEmailExists
	}
	if err != nil {
		return 0, fmt.Errorf("create user: %w", err)
	}
	return id, nil
}

// Credentials returns the id and password hash stored for email.
func (s *UserStore) Credentials(ctx context.Context, email string) (int, string, error) {
	var (
		id   int
		hash string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, password_hash FROM users WHERE email = $1`, email).Scan(&id, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, "", ErrUserNotFound
	}
	if err != nil {
		return 0, "", fmt.Errorf("load credentials: %w", err)
	}
	return id, hash, nil
}

// Touch records that the user was active now.
func (s *UserStore) Touch(ctx context.Context, userID int) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE users SET last_online = NOW() WHERE id = $1`, userID); err != nil {
		return fmt.Errorf("touch user %d: %w", userID, err)
	}
	return nil
}

// IsOnline reports activity within the last 90 seconds.
func (s *UserStore) IsOnline(ctx context.Context, userID int) (bool, error) {
	var online bool
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(last_online > NOW() - INTERVAL '90 seconds', FALSE)
		FROM users
		WHERE id = $1`, userID).Scan(&online)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check presence %d: %w", userID, err)
	}
	return online, nil
}
