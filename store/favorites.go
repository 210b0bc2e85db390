package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Jay-byte6/DemoReady-AICUPID-sub000/matching"
)

type FavoriteStore struct {
	db *sql.DB
}

func NewFavoriteStore(db *sql.DB) *FavoriteStore {
	return &FavoriteStore{db: db}
}

// Get lists the user's favorites, newest first.
func (s *FavoriteStore) Get(ctx context.Context, userID int) ([]matching.FavoriteRelation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, favorite_user_id, created_at
		FROM favorites
		WHERE user_id = $1
		ORDER BY created_at DESC, favorite_user_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list favorites %d: %w", userID, err)
	}
	defer rows.Close()

	rels := []matching.FavoriteRelation{}
	for rows.Next() {
		var rel matching.FavoriteRelation
		if err := rows.Scan(&rel.UserID, &rel.FavoriteUserID, &rel.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan favorite: %w", err)
		}
		rels = append(rels, rel)
	}
	return rels, rows.Err()
}

// Set makes the relation exist when state is true and removes it otherwise.
// It reports whether a row was inserted or deleted, so a repeated call
// returns false with a nil error.
func (s *FavoriteStore) Set(ctx context.Context, userID, targetID int, state bool) (bool, error) {
	var (
		res sql.Result
		err error
	)
	if state {
		res, err = s.db.ExecContext(ctx, `
			INSERT INTO favorites (user_id, favorite_user_id)
			VALUES ($1, $2)
			ON CONFLICT (user_id, favorite_user_id) DO NOTHING`, userID, targetID)
	} else {
		res, err = s.db.ExecContext(ctx,
			`DELETE FROM favorites WHERE user_id = $1 AND favorite_user_id = $2`, userID, targetID)
	}
	if err != nil {
		return false, fmt.Errorf("set favorite %d -> %d = %t: %w", userID, targetID, state, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set favorite %d -> %d = %t: rows affected: %w", userID, targetID, state, err)
	}
	return n > 0, nil
}

// IsMutual reports whether both users have favorited each other.
func (s *FavoriteStore) IsMutual(ctx context.Context, a, b int) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM favorites
		WHERE (user_id = $1 AND favorite_user_id = $2)
		   OR (user_id = $2 AND favorite_user_id = $1)`, a, b).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check mutual favorite %d <-> %d: %w", a, b, err)
	}
	return n == 2, nil
}
