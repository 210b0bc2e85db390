package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Jay-byte6/DemoReady-AICUPID-sub000/config"
	"github.com/Jay-byte6/DemoReady-AICUPID-sub000/matching"
	"github.com/Jay-byte6/DemoReady-AICUPID-sub000/store"
)

type fakeUsers struct {
	mu      sync.Mutex
	byEmail map[string]fakeUser
	nextID  int
	touched []int
	online  map[int]bool
}

type fakeUser struct {
	id   int
	hash string
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byEmail: map[string]fakeUser{}, nextID: 1, online: map[int]bool{}}
}

func (f *fakeUsers) Create(_ context.Context, email, hash string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byEmail[email]; ok {
		return 0, store.ErrEmailExists
	}
	id := f.nextID
	f.nextID++
	f.byEmail[email] = fakeUser{id: id, hash: hash}
	return id, nil
}

func (f *fakeUsers) Credentials(_ context.Context, email string) (int, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byEmail[email]
	if !ok {
		return 0, "", store.ErrUserNotFound
	}
	return u.id, u.hash, nil
}

func (f *fakeUsers) Touch(_ context.Context, userID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touched = append(f.touched, userID)
	return nil
}

func (f *fakeUsers) IsOnline(_ context.Context, userID int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.online[userID], nil
}

type fakeProfiles struct {
	mu       sync.Mutex
	profiles map[int]*matching.Profile
	personas map[int]matching.Persona
	getErr   error
}

func newFakeProfiles(profiles ...matching.Profile) *fakeProfiles {
	f := &fakeProfiles{profiles: map[int]*matching.Profile{}, personas: map[int]matching.Persona{}}
	for i := range profiles {
		p := profiles[i]
		f.profiles[p.UserID] = &p
	}
	return f
}

func (f *fakeProfiles) GetProfile(_ context.Context, userID int) (*matching.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	p, ok := f.profiles[userID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProfiles) UpsertProfile(_ context.Context, userID int, p matching.Profile) (*matching.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p.UserID = userID
	if existing, ok := f.profiles[userID]; ok {
		p.CupidID = existing.CupidID
	} else {
		p.CupidID = "cupid-" + strconv.Itoa(userID)
	}
	f.profiles[userID] = &p
	cp := p
	return &cp, nil
}

func (f *fakeProfiles) SavePersona(_ context.Context, userID int, persona matching.Persona) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.profiles[userID]; !ok {
		return matching.ErrProfileNotFound
	}
	f.personas[userID] = persona
	return nil
}

type toggleCall struct {
	requester, target int
	state             bool
}

type fakeMatchService struct {
	mu         sync.Mutex
	matches    []matching.Match
	err        error
	limits     []int
	requesters []int
	refresh    matching.CompatibilityResult
	refreshErr error
	toggles    []toggleCall
	toggleErr  error
	favorited  map[[2]int]bool
	favorites  []matching.Match
	current    map[int][]matching.Match
}

func (f *fakeMatchService) FindTopMatches(_ context.Context, requesterID, limit int) ([]matching.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requesters = append(f.requesters, requesterID)
	f.limits = append(f.limits, limit)
	return f.matches, f.err
}

func (f *fakeMatchService) RefreshCompatibility(_ context.Context, requesterID, targetID int) (matching.CompatibilityResult, error) {
	if requesterID == targetID {
		return matching.ZeroResult(), matching.ErrInvalidTarget
	}
	return f.refresh, f.refreshErr
}

func (f *fakeMatchService) ToggleFavorite(_ context.Context, requesterID, targetID int, state bool) (bool, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.toggleErr != nil {
		return false, false, f.toggleErr
	}
	f.toggles = append(f.toggles, toggleCall{requesterID, targetID, state})
	pair := [2]int{requesterID, targetID}
	changed := f.favorited[pair] != state
	f.favorited[pair] = state
	return true, changed, nil
}

func (f *fakeMatchService) GetFavoriteProfiles(context.Context, int) ([]matching.Match, error) {
	return f.favorites, nil
}

func (f *fakeMatchService) CurrentMatches(requesterID int) []matching.Match {
	return f.current[requesterID]
}

type fakeMutual struct {
	mutual bool
	calls  int
}

func (f *fakeMutual) IsMutual(context.Context, int, int) (bool, error) {
	f.calls++
	return f.mutual, nil
}

type fakeNotifications struct {
	mu      sync.Mutex
	created []store.Notification
	nextID  int64
}

func (f *fakeNotifications) Create(_ context.Context, userID int, typ store.NotificationType, content store.NotificationContent) (*store.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	n := store.Notification{ID: f.nextID, UserID: userID, Type: typ, Content: content, CreatedAt: time.Now()}
	f.created = append(f.created, n)
	return &n, nil
}

func (f *fakeNotifications) List(_ context.Context, userID int, unreadOnly bool, limit int) ([]store.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []store.Notification{}
	for _, n := range f.created {
		if n.UserID != userID || (unreadOnly && n.Read) {
			continue
		}
		out = append(out, n)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeNotifications) MarkRead(_ context.Context, userID int, id int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.created {
		if f.created[i].ID == id && f.created[i].UserID == userID {
			f.created[i].Read = true
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeNotifications) MarkAllRead(_ context.Context, userID int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for i := range f.created {
		if f.created[i].UserID == userID && !f.created[i].Read {
			f.created[i].Read = true
			n++
		}
	}
	return n, nil
}

func (f *fakeNotifications) UnreadCount(_ context.Context, userID int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.created {
		if c.UserID == userID && !c.Read {
			n++
		}
	}
	return n, nil
}

func (f *fakeNotifications) ofType(typ store.NotificationType) []store.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.Notification
	for _, n := range f.created {
		if n.Type == typ {
			out = append(out, n)
		}
	}
	return out
}

type historyCall struct {
	userID, peerID, limit int
	before                *time.Time
}

type fakeChats struct {
	mu        sync.Mutex
	saved     []store.ChatMessage
	history   []historyCall
	saveErr   error
	summaries []store.ChatSummary
	readPeers []int
}

func (f *fakeChats) SaveMessage(_ context.Context, from, to int, body string) (*store.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	msg := store.ChatMessage{ID: int64(len(f.saved) + 1), Type: "message", ChatID: 1, From: from, To: to, Body: body, Ts: time.Now()}
	f.saved = append(f.saved, msg)
	return &msg, nil
}

func (f *fakeChats) Messages(_ context.Context, userID, peerID, limit int, before *time.Time) ([]store.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history = append(f.history, historyCall{userID, peerID, limit, before})
	return []store.ChatMessage{}, nil
}

func (f *fakeChats) Summaries(context.Context, int) ([]store.ChatSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]store.ChatSummary{}, f.summaries...), nil
}

func (f *fakeChats) MarkRead(_ context.Context, _ int, peerID int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readPeers = append(f.readPeers, peerID)
	return 1, nil
}

type fakePersona struct {
	persona *matching.Persona
	err     error
}

func (f *fakePersona) GeneratePersona(context.Context, *matching.Profile) (*matching.Persona, error) {
	return f.persona, f.err
}

type testApp struct {
	*app
	users         *fakeUsers
	profiles      *fakeProfiles
	svc           *fakeMatchService
	mutual        *fakeMutual
	notifications *fakeNotifications
	chats         *fakeChats
	persona       *fakePersona
	handler       http.Handler
}

func newTestApp(t *testing.T, profiles ...matching.Profile) *testApp {
	t.Helper()
	ta := &testApp{
		users:         newFakeUsers(),
		profiles:      newFakeProfiles(profiles...),
		svc:           &fakeMatchService{current: map[int][]matching.Match{}, favorited: map[[2]int]bool{}},
		mutual:        &fakeMutual{},
		notifications: &fakeNotifications{},
		chats:         &fakeChats{},
		persona:       &fakePersona{},
	}
	ta.app = &app{
		cfg: &config.Config{
			Environment: "test",
			Server:      config.ServerConfig{CORSOrigins: []string{"http://localhost:3001", "http://localhost:5173"}},
			Matching:    config.MatchingConfig{DefaultLimit: 20, TopProfilesLimit: 10},
		},
		logger:        zap.NewNop(),
		users:         ta.users,
		profiles:      ta.profiles,
		matches:       ta.svc,
		favorites:     ta.mutual,
		notifications: ta.notifications,
		chats:         ta.chats,
		persona:       ta.persona,
	}
	ta.wireRealtime()
	ta.handler = ta.routes()
	return ta
}

func (ta *testApp) do(t *testing.T, method, target string, userID int, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if userID > 0 {
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, userID))
	}
	rec := httptest.NewRecorder()
	ta.handler.ServeHTTP(rec, req)
	return rec
}

func tokenFor(t *testing.T, userID int) string {
	t.Helper()
	token, err := issueToken(userID)
	require.NoError(t, err)
	return token
}

func intPtr(v int) *int { return &v }
