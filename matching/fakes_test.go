package matching

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

func intPtr(v int) *int { return &v }

type fakeProfiles struct {
	mu        sync.Mutex
	profiles  map[int]Profile
	listErr   error
	getErr    error
	listCalls int
}

func newFakeProfiles(ps ...Profile) *fakeProfiles {
	f := &fakeProfiles{profiles: make(map[int]Profile)}
	for _, p := range ps {
		f.profiles[p.UserID] = p
	}
	return f
}

func (f *fakeProfiles) GetProfile(_ context.Context, userID int) (*Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	p, ok := f.profiles[userID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (f *fakeProfiles) GetProfiles(ctx context.Context, ids []int) (map[int]*Profile, error) {
	out := make(map[int]*Profile, len(ids))
	for _, id := range ids {
		p, err := f.GetProfile(ctx, id)
		if err != nil {
			return nil, err
		}
		if p != nil {
			out[id] = p
		}
	}
	return out, nil
}

// ListProfiles deliberately ignores everything but the exclusion so the
// in-memory filter is what gets exercised.
func (f *fakeProfiles) ListProfiles(_ context.Context, filter Filter) ([]Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]Profile, 0, len(f.profiles))
	for id, p := range f.profiles {
		if id == filter.ExcludeUserID {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

type fakeEngine struct {
	mu       sync.Mutex
	scores   map[int]float64
	failures map[int]error
	block    map[int]bool
	delay    time.Duration
	calls    atomic.Int32
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		scores:   make(map[int]float64),
		failures: make(map[int]error),
		block:    make(map[int]bool),
	}
}

func (f *fakeEngine) setScore(id int, score float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scores[id] = score
}

func (f *fakeEngine) Analyze(ctx context.Context, _ *Profile, candidate *Profile) (*CompatibilityResult, error) {
	f.calls.Add(1)
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		seen := f.maxSeen.Load()
		if n <= seen || f.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}

	f.mu.Lock()
	score := f.scores[candidate.UserID]
	failure := f.failures[candidate.UserID]
	blocked := f.block[candidate.UserID]
	f.mu.Unlock()

	if blocked {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if failure != nil {
		return nil, failure
	}
	return &CompatibilityResult{
		Overall:      score,
		Emotional:    score,
		Intellectual: score,
		Lifestyle:    score,
		Summary:      "compatible",
		Strengths:    []string{"shared interests"},
		Challenges:   []string{"distance"},
		Tips:         []string{"talk more"},
	}, nil
}

type fakeCompatStore struct {
	mu      sync.Mutex
	records map[[2]int]CompatibilityRecord
	saveErr error
	saves   int
}

func newFakeCompatStore() *fakeCompatStore {
	return &fakeCompatStore{records: make(map[[2]int]CompatibilityRecord)}
}

func (f *fakeCompatStore) SaveCompatibility(_ context.Context, requesterID, candidateID int, result CompatibilityResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	if f.saveErr != nil {
		return f.saveErr
	}
	f.records[[2]int{requesterID, candidateID}] = CompatibilityRecord{
		RequesterID: requesterID,
		CandidateID: candidateID,
		Result:      result,
		UpdatedAt:   time.Now(),
	}
	return nil
}

func (f *fakeCompatStore) GetCompatibility(_ context.Context, requesterID, candidateID int) (*CompatibilityRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[[2]int{requesterID, candidateID}]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

type fakeFavorites struct {
	mu   sync.Mutex
	rels map[int][]FavoriteRelation
}

func newFakeFavorites() *fakeFavorites {
	return &fakeFavorites{rels: make(map[int][]FavoriteRelation)}
}

func (f *fakeFavorites) Get(_ context.Context, userID int) ([]FavoriteRelation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]FavoriteRelation, len(f.rels[userID]))
	copy(out, f.rels[userID])
	return out, nil
}

func (f *fakeFavorites) Set(_ context.Context, userID, targetID int, state bool) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rels := f.rels[userID]
	idx := -1
	for i, rel := range rels {
		if rel.FavoriteUserID == targetID {
			idx = i
			break
		}
	}
	switch {
	case state && idx == -1:
		f.rels[userID] = append(rels, FavoriteRelation{UserID: userID, FavoriteUserID: targetID, CreatedAt: time.Now()})
	case !state && idx != -1:
		f.rels[userID] = append(rels[:idx], rels[idx+1:]...)
	default:
		return false, nil
	}
	return true, nil
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[[2]int]CompatibilityResult
	getErr  error
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[[2]int]CompatibilityResult)}
}

func (f *fakeCache) Get(_ context.Context, requesterID, candidateID int) (*CompatibilityResult, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, false, f.getErr
	}
	r, ok := f.entries[[2]int{requesterID, candidateID}]
	if !ok {
		return nil, false, nil
	}
	return &r, true, nil
}

func (f *fakeCache) Set(_ context.Context, requesterID, candidateID int, result CompatibilityResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[[2]int{requesterID, candidateID}] = result
	return nil
}

var errEngineDown = errors.New("engine down")
