package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type NotificationType string

const (
	NotificationNewMatch    NotificationType = "NEW_MATCH"
	NotificationNewMessage  NotificationType = "NEW_MESSAGE"
	NotificationProfileView NotificationType = "PROFILE_VIEW"
)

type NotificationContent struct {
	Title    string `json:"title"`
	Message  string `json:"message"`
	TargetID *int   `json:"target_id,omitempty"`
}

type Notification struct {
	ID        int64               `json:"id"`
	UserID    int                 `json:"user_id"`
	Type      NotificationType    `json:"type"`
	Content   NotificationContent `json:"content"`
	Read      bool                `json:"read"`
	CreatedAt time.Time           `json:"created_at"`
}

type NotificationStore struct {
	db *sql.DB
}

func NewNotificationStore(db *sql.DB) *NotificationStore {
	return &NotificationStore{db: db}
}

func (s *NotificationStore) Create(ctx context.Context, userID int, typ NotificationType, content NotificationContent) (*Notification, error) {
	n := Notification{UserID: userID, Type: typ, Content: content}
	var target sql.NullInt64
	if content.TargetID != nil {
		target = sql.NullInt64{Int64: int64(*content.TargetID), Valid: true}
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO notifications (user_id, type, title, message, target_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		userID, string(typ), content.Title, content.Message, target,
	).Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create notification for %d: %w", userID, err)
	}
	return &n, nil
}

// List returns the newest notifications first. unreadOnly hides read ones.
func (s *NotificationStore) List(ctx context.Context, userID int, unreadOnly bool, limit int) ([]Notification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, type, title, message, target_id, read, created_at
		FROM notifications
		WHERE user_id = $1 AND (NOT $2 OR read = FALSE)
		ORDER BY created_at DESC, id DESC
		LIMIT $3`, userID, unreadOnly, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications %d: %w", userID, err)
	}
	defer rows.Close()

	out := []Notification{}
	for rows.Next() {
		var (
			n      Notification
			typ    string
			target sql.NullInt64
		)
		if err := rows.Scan(&n.ID, &n.UserID, &typ, &n.Content.Title, &n.Content.Message, &target, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.Type = NotificationType(typ)
		if target.Valid {
			id := int(target.Int64)
			n.Content.TargetID = &id
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkRead flags one notification as read. It reports false when the
// notification does not exist or belongs to someone else.
func (s *NotificationStore) MarkRead(ctx context.Context, userID int, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, fmt.Errorf("mark notification %d read: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark notification %d read: %w", id, err)
	}
	return n > 0, nil
}

func (s *NotificationStore) MarkAllRead(ctx context.Context, userID int) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET read = TRUE WHERE user_id = $1 AND read = FALSE`, userID)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read for %d: %w", userID, err)
	}
	return res.RowsAffected()
}

func (s *NotificationStore) UnreadCount(ctx context.Context, userID int) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read = FALSE`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications %d: %w", userID, err)
	}
	return n, nil
}
