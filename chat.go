package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Jay-byte6/DemoReady-AICUPID-sub000/logger"
	"github.com/Jay-byte6/DemoReady-AICUPID-sub000/store"
)

const maxMessageLength = 2000

// ServerEvent represents a server-sent event
type ServerEvent struct {
	Type string `json:"type"` // "message" | "typing" | "notification" | "info" | "error"
	From int    `json:"from,omitempty"`
	Data any    `json:"data,omitempty"`
}

// clientMessage is what a browser sends over the socket.
type clientMessage struct {
	Type string `json:"type"`
	To   int    `json:"to"`
	Body string `json:"body"`
}

type chatRepo interface {
	SaveMessage(ctx context.Context, from, to int, body string) (*store.ChatMessage, error)
	Messages(ctx context.Context, userID, peerID, limit int, before *time.Time) ([]store.ChatMessage, error)
	Summaries(ctx context.Context, userID int) ([]store.ChatSummary, error)
	MarkRead(ctx context.Context, userID, peerID int) (int64, error)
}

// Client represents a WebSocket client connection
type Client struct {
	userID int
	conn   *websocket.Conn
	send   chan ServerEvent
}

// Hub manages WebSocket client connections. A user may hold several.
type Hub struct {
	clientsByUser map[int]map[*Client]bool
	mu            sync.RWMutex
}

func newHub() *Hub {
	return &Hub{
		clientsByUser: make(map[int]map[*Client]bool),
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clientsByUser[c.userID] == nil {
		h.clientsByUser[c.userID] = make(map[*Client]bool)
	}
	h.clientsByUser[c.userID][c] = true
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if peers, ok := h.clientsByUser[c.userID]; ok {
		delete(peers, c)
		if len(peers) == 0 {
			delete(h.clientsByUser, c.userID)
		}
	}
}

func (h *Hub) sendToUser(userID int, evt ServerEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clientsByUser[userID] {
		select {
		case c.send <- evt:
		default:
			// Drop message if user's buffer is full
		}
	}
}

func (h *Hub) connected(userID int) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clientsByUser[userID]) > 0
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type chatServer struct {
	hub      *Hub
	chats    chatRepo
	users    userRepo
	notifier *notifier
	logger   *zap.Logger
}

// GET /ws upgrades to a websocket carrying chat messages, typing
// indicators and notifications.
func (s *chatServer) wsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := getUserIDFromRequest(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.logger.Warn("websocket upgrade failed", zap.Int("user_id", userID), zap.Error(err))
			return
		}

		client := &Client{
			userID: userID,
			conn:   conn,
			send:   make(chan ServerEvent, 16),
		}
		s.hub.register(client)

		client.send <- ServerEvent{Type: "info", Data: "connected"}

		go s.clientWriter(client)
		s.clientReader(client)
	}
}

func (s *chatServer) clientReader(c *Client) {
	defer func() {
		s.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(1 << 20)
	_ = c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			s.reply(c, ServerEvent{Type: "error", Data: "invalid message format"})
			continue
		}
		s.handle(context.Background(), c, msg)
	}
}

// handle processes one client message. Replies go through the client's send
// channel so the writer goroutine stays the only one touching the socket.
func (s *chatServer) handle(ctx context.Context, c *Client, msg clientMessage) {
	switch msg.Type {
	case "message":
		body := strings.TrimSpace(msg.Body)
		if msg.To <= 0 || msg.To == c.userID || body == "" || utf8.RuneCountInString(body) > maxMessageLength {
			s.reply(c, ServerEvent{Type: "error", Data: "invalid message"})
			return
		}

		saved, err := s.chats.SaveMessage(ctx, c.userID, msg.To, body)
		if err != nil {
			s.logger.Error("saving chat message", zap.Int("from", c.userID), zap.Int("to", msg.To), zap.Error(err))
			s.reply(c, ServerEvent{Type: "error", Data: "cannot send message"})
			return
		}

		out := ServerEvent{Type: "message", From: c.userID, Data: saved}
		s.hub.sendToUser(msg.To, out)
		s.hub.sendToUser(c.userID, out) // echo so every tab of the sender updates

		from := c.userID
		s.notifier.Notify(ctx, msg.To, store.NotificationNewMessage, store.NotificationContent{
			Title:    "New message",
			Message:  logger.TruncateForLog(body, 80),
			TargetID: &from,
		})

	case "typing":
		if msg.To > 0 {
			s.hub.sendToUser(msg.To, ServerEvent{Type: "typing", From: c.userID})
		}

	default:
		s.logger.Debug("unknown websocket message type", zap.Int("user_id", c.userID), zap.String("type", msg.Type))
		s.reply(c, ServerEvent{Type: "error", Data: "unknown message type"})
	}
}

func (s *chatServer) reply(c *Client, evt ServerEvent) {
	select {
	case c.send <- evt:
	default:
	}
}

func (s *chatServer) clientWriter(c *Client) {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case evt, ok := <-c.send:
			if !ok {
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(evt); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// GET /chats lists the caller's conversations with unread counts.
func (s *chatServer) summaryHandler() http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
			return
		}
		userID := requesterID(r)

		summaries, err := s.chats.Summaries(r.Context(), userID)
		if err != nil {
			s.logger.Error("fetching chat summaries", zap.Int("user_id", userID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "chats_error")
			return
		}
		for i := range summaries {
			summaries[i].Online = s.online(r.Context(), summaries[i].PeerID)
		}
		writeJSON(w, http.StatusOK, summaries)
	})
}

func (s *chatServer) online(ctx context.Context, userID int) bool {
	if s.hub.connected(userID) {
		return true
	}
	online, err := s.users.IsOnline(ctx, userID)
	if err != nil {
		s.logger.Warn("checking presence", zap.Int("user_id", userID), zap.Error(err))
		return false
	}
	return online
}

// GET /chats/{peerId}/messages?limit=50&before=2025-09-16T08:00:00Z
// POST /chats/{peerId}/read
func (s *chatServer) chatsActionsRouter() http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		parts := pathParts(r)
		if len(parts) != 3 || parts[0] != "chats" {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}
		peerID, ok := positiveID(parts[1])
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_user_id")
			return
		}

		switch parts[2] {
		case "messages":
			if r.Method != http.MethodGet {
				writeError(w, http.StatusMethodNotAllowed, "invalid_method")
				return
			}
			s.history(w, r, peerID)
		case "read":
			if r.Method != http.MethodPost {
				writeError(w, http.StatusMethodNotAllowed, "invalid_method")
				return
			}
			if _, err := s.chats.MarkRead(r.Context(), requesterID(r), peerID); err != nil {
				s.logger.Error("marking chat read", zap.Int("user_id", requesterID(r)), zap.Int("peer_id", peerID), zap.Error(err))
				writeError(w, http.StatusInternalServerError, "chats_error")
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			writeError(w, http.StatusNotFound, "not_found")
		}
	})
}

func (s *chatServer) history(w http.ResponseWriter, r *http.Request, peerID int) {
	var before *time.Time
	if v := r.URL.Query().Get("before"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_before")
			return
		}
		before = &t
	}

	msgs, err := s.chats.Messages(r.Context(), requesterID(r), peerID, queryLimit(r, 50, 200), before)
	if err != nil {
		s.logger.Error("fetching chat messages", zap.Int("user_id", requesterID(r)), zap.Int("peer_id", peerID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "messages_error")
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}
