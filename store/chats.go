package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type ChatMessage struct {
	ID     int64     `json:"id"`
	Type   string    `json:"type"`
	ChatID int       `json:"chat_id"`
	From   int       `json:"from"`
	To     int       `json:"to,omitempty"`
	Body   string    `json:"body,omitempty"`
	Ts     time.Time `json:"ts"`
}

type ChatStore struct {
	db *sql.DB
}

func NewChatStore(db *sql.DB) *ChatStore {
	return &ChatStore{db: db}
}

// SaveMessage stores a message, creating the chat between the two users on
// first contact.
func (s *ChatStore) SaveMessage(ctx context.Context, from, to int, body string) (*ChatMessage, error) {
	if from == to {
		return nil, errors.New("cannot message yourself")
	}
	msg := &ChatMessage{Type: "message", From: from, To: to, Body: body}

	err := WithTx(ctx, s.db, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO chats (user1_id, user2_id)
			VALUES (LEAST($1::int, $2::int), GREATEST($1::int, $2::int))
			ON CONFLICT (user1_id, user2_id) DO UPDATE SET user1_id = EXCLUDED.user1_id
			RETURNING id`, from, to).Scan(&msg.ChatID)
		if err != nil {
			return fmt.Errorf("resolve chat: %w", err)
		}

		err = tx.QueryRowContext(ctx, `
			INSERT INTO messages (chat_id, sender_id, content)
			VALUES ($1, $2, $3)
			RETURNING id, created_at`, msg.ChatID, from, body).Scan(&msg.ID, &msg.Ts)
		if err != nil {
			return fmt.Errorf("insert message: %w", err)
		}

		_, err = tx.ExecContext(ctx, `UPDATE chats SET last_message_at = $2 WHERE id = $1`, msg.ChatID, msg.Ts)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("save message %d -> %d: %w", from, to, err)
	}
	return msg, nil
}

// Messages returns the newest messages between two users, optionally before a
// timestamp, and marks the peer's messages as read for userID.
func (s *ChatStore) Messages(ctx context.Context, userID, peerID, limit int, before *time.Time) ([]ChatMessage, error) {
	var chatID int
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM chats
		WHERE user1_id = LEAST($1::int, $2::int) AND user2_id = GREATEST($1::int, $2::int)`,
		userID, peerID).Scan(&chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return []ChatMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve chat %d <-> %d: %w", userID, peerID, err)
	}

	var beforeArg any
	if before != nil {
		beforeArg = *before
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sender_id, content, created_at
		FROM messages
		WHERE chat_id = $1 AND ($2::timestamptz IS NULL OR created_at < $2)
		ORDER BY created_at DESC
		LIMIT $3`, chatID, beforeArg, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	msgs := make([]ChatMessage, 0, limit)
	for rows.Next() {
		m := ChatMessage{Type: "message", ChatID: chatID}
		if err := rows.Scan(&m.ID, &m.From, &m.Body, &m.Ts); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if m.From == userID {
			m.To = peerID
		} else {
			m.To = userID
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if _, err := s.db.ExecContext(ctx, `
		UPDATE messages SET is_read = TRUE
		WHERE chat_id = $1 AND sender_id <> $2 AND is_read IS FALSE`, chatID, userID); err != nil {
		return nil, fmt.Errorf("mark messages read: %w", err)
	}
	return msgs, nil
}

// ChatSummary describes one conversation from the point of view of a user.
type ChatSummary struct {
	PeerID         int        `json:"peer_id"`
	PeerName       string     `json:"peer_name"`
	LastMessageAt  *time.Time `json:"last_message_at,omitempty"`
	UnreadMessages int        `json:"unread_messages"`
	Online         bool       `json:"online"`
}

// Summaries lists every chat the user takes part in, most recent first, with
// the number of messages the peer sent that the user has not read.
func (s *ChatStore) Summaries(ctx context.Context, userID int) ([]ChatSummary, error) {
	const q = `
WITH mine AS (
  SELECT ch.id AS chat_id,
         CASE WHEN ch.user1_id = $1 THEN ch.user2_id ELSE ch.user1_id END AS peer_id,
         ch.last_message_at
  FROM chats ch
  WHERE ch.user1_id = $1 OR ch.user2_id = $1
)
SELECT
  m.peer_id,
  COALESCE(NULLIF(p.name, ''), CONCAT('User ', m.peer_id::text)) AS peer_name,
  m.last_message_at,
  COUNT(msg.id) FILTER (WHERE msg.is_read = FALSE AND msg.sender_id = m.peer_id) AS unread
FROM mine m
LEFT JOIN profiles p  ON p.user_id = m.peer_id
LEFT JOIN messages msg ON msg.chat_id = m.chat_id
GROUP BY m.peer_id, p.name, m.last_message_at
ORDER BY COALESCE(m.last_message_at, to_timestamp(0)) DESC, m.peer_id ASC`

	rows, err := s.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("query chat summaries: %w", err)
	}
	defer rows.Close()

	out := []ChatSummary{}
	for rows.Next() {
		var (
			cs   ChatSummary
			last sql.NullTime
		)
		if err := rows.Scan(&cs.PeerID, &cs.PeerName, &last, &cs.UnreadMessages); err != nil {
			return nil, fmt.Errorf("scan chat summary: %w", err)
		}
		if last.Valid {
			t := last.Time
			cs.LastMessageAt = &t
		}
		out = append(out, cs)
	}
	return out, rows.Err()
}

// MarkRead marks the peer's messages to userID as read. It reports how many
// messages changed; a pair without a chat is not an error.
func (s *ChatStore) MarkRead(ctx context.Context, userID, peerID int) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE messages m SET is_read = TRUE
		FROM chats ch
		WHERE m.chat_id = ch.id
		  AND ch.user1_id = LEAST($1::int, $2::int)
		  AND ch.user2_id = GREATEST($1::int, $2::int)
		  AND m.sender_id = $2
		  AND m.is_read IS FALSE`, userID, peerID)
	if err != nil {
		return 0, fmt.Errorf("mark chat %d <-> %d read: %w", userID, peerID, err)
	}
	return res.RowsAffected()
}
