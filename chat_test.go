package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Jay-byte6/DemoReady-AICUPID-sub000/store"
)

func newTestChatServer(ta *testApp) *chatServer {
	return &chatServer{hub: ta.hub, chats: ta.chats, users: ta.users, notifier: ta.notifier, logger: zap.NewNop()}
}

func newTestClient(ta *testApp, userID int) *Client {
	c := &Client{userID: userID, send: make(chan ServerEvent, 8)}
	ta.hub.register(c)
	return c
}

func nextEvent(t *testing.T, c *Client) ServerEvent {
	t.Helper()
	select {
	case evt := <-c.send:
		return evt
	default:
		t.Fatal("expected a queued event")
		return ServerEvent{}
	}
}

func TestChatHandleMessage(t *testing.T) {
	ta := newTestApp(t)
	s := newTestChatServer(ta)
	alice := newTestClient(ta, 1)
	bob := newTestClient(ta, 2)

	s.handle(context.Background(), alice, clientMessage{Type: "message", To: 2, Body: "  hi there  "})

	require.Len(t, ta.chats.saved, 1)
	assert.Equal(t, "hi there", ta.chats.saved[0].Body)

	evt := nextEvent(t, bob)
	assert.Equal(t, "message", evt.Type)
	assert.Equal(t, 1, evt.From)
	assert.Equal(t, "notification", nextEvent(t, bob).Type)

	echo := nextEvent(t, alice)
	assert.Equal(t, "message", echo.Type)

	sent := ta.notifications.ofType(store.NotificationNewMessage)
	require.Len(t, sent, 1)
	assert.Equal(t, 2, sent[0].UserID)
	assert.Equal(t, "hi there", sent[0].Content.Message)
}

func TestChatHandleRejectsInvalidMessages(t *testing.T) {
	ta := newTestApp(t)
	s := newTestChatServer(ta)
	alice := newTestClient(ta, 1)

	tests := map[string]clientMessage{
		"no recipient": {Type: "message", Body: "hi"},
		"to self":      {Type: "message", To: 1, Body: "hi"},
		"blank body":   {Type: "message", To: 2, Body: "   "},
		"too long":     {Type: "message", To: 2, Body: strings.Repeat("ä", maxMessageLength+1)},
		"unknown type": {Type: "wink", To: 2},
	}
	for name, msg := range tests {
		t.Run(name, func(t *testing.T) {
			s.handle(context.Background(), alice, msg)
			assert.Equal(t, "error", nextEvent(t, alice).Type)
		})
	}
	assert.Empty(t, ta.chats.saved)
	assert.Empty(t, ta.notifications.created)
}

func TestChatHandleSaveFailure(t *testing.T) {
	ta := newTestApp(t)
	ta.chats.saveErr = errors.New("db down")
	s := newTestChatServer(ta)
	alice := newTestClient(ta, 1)
	bob := newTestClient(ta, 2)

	s.handle(context.Background(), alice, clientMessage{Type: "message", To: 2, Body: "hello"})

	evt := nextEvent(t, alice)
	assert.Equal(t, "error", evt.Type)
	assert.Equal(t, "cannot send message", evt.Data)
	assert.Empty(t, bob.send)
	assert.Empty(t, ta.notifications.created)
}

func TestChatHandleTyping(t *testing.T) {
	ta := newTestApp(t)
	s := newTestChatServer(ta)
	alice := newTestClient(ta, 1)
	bob := newTestClient(ta, 2)

	s.handle(context.Background(), alice, clientMessage{Type: "typing", To: 2})

	evt := nextEvent(t, bob)
	assert.Equal(t, "typing", evt.Type)
	assert.Equal(t, 1, evt.From)
	assert.Empty(t, alice.send)
	assert.Empty(t, ta.chats.saved)
}

func TestHubTracksConnections(t *testing.T) {
	hub := newHub()
	a := &Client{userID: 1, send: make(chan ServerEvent, 1)}
	b := &Client{userID: 1, send: make(chan ServerEvent, 1)}

	hub.register(a)
	hub.register(b)
	assert.True(t, hub.connected(1))

	hub.sendToUser(1, ServerEvent{Type: "info"})
	assert.Len(t, a.send, 1)
	assert.Len(t, b.send, 1)

	// full buffers drop instead of blocking
	hub.sendToUser(1, ServerEvent{Type: "info"})

	hub.unregister(a)
	assert.True(t, hub.connected(1))
	hub.unregister(b)
	assert.False(t, hub.connected(1))
}

type wireEvent struct {
	Type string          `json:"type"`
	From int             `json:"from"`
	Data json.RawMessage `json:"data"`
}

func dialChat(t *testing.T, srv *httptest.Server, userID int) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + tokenFor(t, userID)
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })

	assert.Equal(t, "info", readEvent(t, conn).Type)
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) wireEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var evt wireEvent
	require.NoError(t, conn.ReadJSON(&evt))
	return evt
}

func TestChatWebsocketRoundTrip(t *testing.T) {
	ta := newTestApp(t)
	srv := httptest.NewServer(ta.handler)
	defer srv.Close()

	alice := dialChat(t, srv, 1)
	bob := dialChat(t, srv, 2)
	assert.True(t, ta.hub.connected(1))
	assert.True(t, ta.hub.connected(2))

	require.NoError(t, alice.WriteJSON(clientMessage{Type: "message", To: 2, Body: "hey bob"}))

	got := readEvent(t, bob)
	require.Equal(t, "message", got.Type)
	assert.Equal(t, 1, got.From)
	var msg store.ChatMessage
	require.NoError(t, json.Unmarshal(got.Data, &msg))
	assert.Equal(t, "hey bob", msg.Body)
	assert.Equal(t, 2, msg.To)

	assert.Equal(t, "notification", readEvent(t, bob).Type)
	assert.Equal(t, "message", readEvent(t, alice).Type)

	require.NoError(t, alice.WriteMessage(websocket.TextMessage, []byte("{not json")))
	assert.Equal(t, "error", readEvent(t, alice).Type)
}

func TestChatWebsocketRequiresToken(t *testing.T) {
	ta := newTestApp(t)
	srv := httptest.NewServer(ta.handler)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestChatHistoryHandler(t *testing.T) {
	ta := newTestApp(t)

	rec := ta.do(t, http.MethodGet, "/chats/2/messages", 1, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = ta.do(t, http.MethodGet, "/chats/2/messages?limit=500&before=2025-09-16T08:00:00Z", 1, "")
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, ta.chats.history, 2)
	first, second := ta.chats.history[0], ta.chats.history[1]
	assert.Equal(t, historyCall{userID: 1, peerID: 2, limit: 50}, first)
	assert.Equal(t, 200, second.limit)
	require.NotNil(t, second.before)
	assert.True(t, second.before.Equal(time.Date(2025, 9, 16, 8, 0, 0, 0, time.UTC)))

	assert.Equal(t, http.StatusBadRequest, ta.do(t, http.MethodGet, "/chats/2/messages?before=yesterday", 1, "").Code)
	assert.Equal(t, http.StatusBadRequest, ta.do(t, http.MethodGet, "/chats/zero/messages", 1, "").Code)
	assert.Equal(t, http.StatusNotFound, ta.do(t, http.MethodGet, "/chats/2", 1, "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, ta.do(t, http.MethodPost, "/chats/2/messages", 1, "").Code)
	assert.Equal(t, http.StatusUnauthorized, ta.do(t, http.MethodGet, "/chats/2/messages", 0, "").Code)
}

func TestChatSummaries(t *testing.T) {
	ta := newTestApp(t)
	ta.chats.summaries = []store.ChatSummary{{PeerID: 2, PeerName: "Kati", UnreadMessages: 1}, {PeerID: 3, PeerName: "Mari"}, {PeerID: 4, PeerName: "Jaan"}}
	ta.users.online[3] = true
	newTestClient(ta, 2)

	rec := ta.do(t, http.MethodGet, "/chats", 1, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got []store.ChatSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 3)
	assert.True(t, got[0].Online, "connected over websocket")
	assert.True(t, got[1].Online, "recently pinged")
	assert.False(t, got[2].Online)
	assert.Equal(t, 1, got[0].UnreadMessages)

	assert.Equal(t, http.StatusMethodNotAllowed, ta.do(t, http.MethodPost, "/chats", 1, "").Code)
}

func TestChatMarkRead(t *testing.T) {
	ta := newTestApp(t)

	assert.Equal(t, http.StatusNoContent, ta.do(t, http.MethodPost, "/chats/2/read", 1, "").Code)
	assert.Equal(t, []int{2}, ta.chats.readPeers)

	assert.Equal(t, http.StatusMethodNotAllowed, ta.do(t, http.MethodGet, "/chats/2/read", 1, "").Code)
	assert.Equal(t, http.StatusNotFound, ta.do(t, http.MethodPost, "/chats/2/archive", 1, "").Code)
}
