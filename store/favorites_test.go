package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFavoriteStoreGet(t *testing.T) {
	db, mock := newMock(t)
	store := NewFavoriteStore(db)

	later := fixedTime.Add(time.Hour)
	mock.ExpectQuery(`FROM favorites\s+WHERE user_id = \$1`).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "favorite_user_id", "created_at"}).
			AddRow(1, 5, later).
			AddRow(1, 3, fixedTime))

	rels, err := store.Get(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, rels, 2)
	assert.Equal(t, 5, rels[0].FavoriteUserID)
	assert.Equal(t, later, rels[0].CreatedAt)
	assert.Equal(t, 3, rels[1].FavoriteUserID)
}

func TestFavoriteStoreGetEmpty(t *testing.T) {
	db, mock := newMock(t)
	store := NewFavoriteStore(db)

	mock.ExpectQuery(`FROM favorites`).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "favorite_user_id", "created_at"}))

	rels, err := store.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.NotNil(t, rels)
	assert.Empty(t, rels)
}

func TestFavoriteStoreSet(t *testing.T) {
	db, mock := newMock(t)
	store := NewFavoriteStore(db)
	ctx := context.Background()

	mock.ExpectExec(`INSERT INTO favorites .* ON CONFLICT \(user_id, favorite_user_id\) DO NOTHING`).
		WithArgs(1, 2).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO favorites`).
		WithArgs(1, 2).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM favorites WHERE user_id = \$1 AND favorite_user_id = \$2`).
		WithArgs(1, 2).WillReturnResult(sqlmock.NewResult(0, 1))

	changed, err := store.Set(ctx, 1, 2, true)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = store.Set(ctx, 1, 2, true)
	require.NoError(t, err)
	assert.False(t, changed, "repeating an add inserts nothing")

	changed, err = store.Set(ctx, 1, 2, false)
	require.NoError(t, err)
	assert.True(t, changed)
}

func TestFavoriteStoreSetRowsAffectedError(t *testing.T) {
	db, mock := newMock(t)
	store := NewFavoriteStore(db)

	mock.ExpectExec(`INSERT INTO favorites`).
		WithArgs(1, 2).WillReturnResult(sqlmock.NewErrorResult(assert.AnError))

	changed, err := store.Set(context.Background(), 1, 2, true)
	assert.False(t, changed)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestFavoriteStoreSetError(t *testing.T) {
	db, mock := newMock(t)
	store := NewFavoriteStore(db)

	mock.ExpectExec(`DELETE FROM favorites`).WillReturnError(assert.AnError)

	changed, err := store.Set(context.Background(), 1, 2, false)
	assert.False(t, changed)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestFavoriteStoreIsMutual(t *testing.T) {
	db, mock := newMock(t)
	store := NewFavoriteStore(db)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM favorites`).
		WithArgs(1, 2).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM favorites`).
		WithArgs(1, 3).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	mutual, err := store.IsMutual(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.True(t, mutual)

	mutual, err = store.IsMutual(context.Background(), 1, 3)
	require.NoError(t, err)
	assert.False(t, mutual)
}
