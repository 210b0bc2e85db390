package matching

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Jay-byte6/DemoReady-AICUPID-sub000/metrics"
)

// Deps are the collaborators of a Service. Compatibility and Cache are
// optional.
type Deps struct {
	Profiles      ProfileStore
	Favorites     FavoriteStore
	Compatibility CompatibilityStore
	Engine        CompatibilityEngine
	Cache         CompatibilityCache
	Logger        *zap.Logger
}

type Config struct {
	DefaultLimit     int
	Concurrency      int
	CandidateTimeout time.Duration
}

// Service runs the matching pipeline and keeps the last ranked list per
// requester so favorite and refresh overlays can patch single entries.
type Service struct {
	profiles     ProfileStore
	favorites    FavoriteStore
	compat       CompatibilityStore
	resolver     *Resolver
	logger       *zap.Logger
	defaultLimit int
	now          func() time.Time

	mu        sync.RWMutex
	snapshots map[int][]Match
}

func NewService(deps Deps, cfg Config) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = DefaultLimit
	}
	resolver := NewResolver(deps.Engine, deps.Compatibility, deps.Cache, ResolverConfig{
		Concurrency:      cfg.Concurrency,
		CandidateTimeout: cfg.CandidateTimeout,
	}, logger)

	return &Service{
		profiles:     deps.Profiles,
		favorites:    deps.Favorites,
		compat:       deps.Compatibility,
		resolver:     resolver,
		logger:       logger,
		defaultLimit: cfg.DefaultLimit,
		now:          time.Now,
		snapshots:    make(map[int][]Match),
	}
}

// FindTopMatches runs loader, resolver, dealbreaker filter and ranker for
// requesterID and returns at most limit matches.
func (s *Service) FindTopMatches(ctx context.Context, requesterID, limit int) ([]Match, error) {
	start := s.now()
	matches, err := s.findTopMatches(ctx, requesterID, limit)

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.PipelineRuns.WithLabelValues(outcome).Inc()
	metrics.PipelineDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	return matches, err
}

func (s *Service) findTopMatches(ctx context.Context, requesterID, limit int) ([]Match, error) {
	if limit <= 0 {
		limit = s.defaultLimit
	}

	requester, candidates, step, err := LoadCandidates(ctx, s.profiles, requesterID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("candidate pool loaded", step.fields("candidate_pool", requesterID)...)

	resolutions, err := s.resolver.ResolveAll(ctx, *requester, candidates)
	if err != nil {
		return nil, fmt.Errorf("resolve compatibility for %d: %w", requesterID, err)
	}

	degraded := 0
	matches := make([]Match, 0, len(resolutions))
	for _, res := range resolutions {
		if res.Err != nil {
			degraded++
		}
		matches = append(matches, Match{
			Profile:       res.Candidate,
			Compatibility: res.Result,
			LastUpdated:   res.ResolvedAt,
		})
	}
	s.logger.Info("compatibility resolved",
		zap.Int("requester_id", requesterID),
		zap.Int("candidates", len(resolutions)),
		zap.Int("degraded", degraded),
	)

	matches, step = ExcludeDealbreakers(requester.Preferences.DealBreakers, matches)
	s.logger.Info("dealbreakers applied", step.fields("dealbreakers", requesterID)...)

	s.markFavorites(ctx, requesterID, matches)

	ranked := Rank(matches, limit)
	s.logger.Info("matches ranked",
		zap.Int("requester_id", requesterID),
		zap.Int("eligible", len(matches)),
		zap.Int("returned", len(ranked)),
		zap.Int("limit", limit),
	)

	// Shorter runs such as the top-card list only seed the snapshot, so they
	// never truncate the full page the overlays patch.
	s.mu.Lock()
	if _, ok := s.snapshots[requesterID]; !ok || limit >= s.defaultLimit {
		s.snapshots[requesterID] = cloneMatches(ranked)
	}
	s.mu.Unlock()

	return ranked, nil
}

// markFavorites sets IsFavorite in place. A favorites failure only costs the
// flags, never the run.
func (s *Service) markFavorites(ctx context.Context, requesterID int, matches []Match) {
	if s.favorites == nil || len(matches) == 0 {
		return
	}
	rels, err := s.favorites.Get(ctx, requesterID)
	if err != nil {
		s.logger.Warn("loading favorites for match list", zap.Int("requester_id", requesterID), zap.Error(err))
		return
	}
	favs := make(map[int]struct{}, len(rels))
	for _, rel := range rels {
		favs[rel.FavoriteUserID] = struct{}{}
	}
	for i := range matches {
		_, matches[i].IsFavorite = favs[matches[i].Profile.UserID]
	}
}

// RefreshCompatibility re-resolves exactly one pair and patches that entry of
// the requester's last match list. It never re-runs the pool loader or the
// dealbreaker filter. When the engine fails the stored tuple and the list are
// left untouched and a zero result is returned with the error.
func (s *Service) RefreshCompatibility(ctx context.Context, requesterID, targetID int) (CompatibilityResult, error) {
	if requesterID == targetID {
		return ZeroResult(), fmt.Errorf("refresh %d against itself: %w", requesterID, ErrInvalidTarget)
	}
	requester, err := s.getProfile(ctx, requesterID)
	if err != nil {
		return ZeroResult(), err
	}
	target, err := s.getProfile(ctx, targetID)
	if err != nil {
		return ZeroResult(), err
	}

	res := s.resolver.Refresh(ctx, *requester, *target)
	if res.Err != nil {
		return res.Result, res.Err
	}

	s.mu.Lock()
	for i := range s.snapshots[requesterID] {
		entry := &s.snapshots[requesterID][i]
		if entry.Profile.UserID == targetID {
			entry.Compatibility = res.Result
			entry.LastUpdated = res.ResolvedAt
			break
		}
	}
	s.mu.Unlock()

	s.logger.Info("compatibility refreshed",
		zap.Int("requester_id", requesterID),
		zap.Int("target_id", targetID),
		zap.Float64("overall", res.Result.Overall),
	)
	return res.Result, nil
}

// ToggleFavorite idempotently sets the favorite relation to state. ok is the
// success flag and changed reports whether the relation was created or
// removed by this call. The ranking of an existing match list is not changed,
// only the flag.
func (s *Service) ToggleFavorite(ctx context.Context, requesterID, targetID int, state bool) (ok, changed bool, err error) {
	if requesterID == targetID {
		return false, false, fmt.Errorf("favorite %d on itself: %w", requesterID, ErrInvalidTarget)
	}
	if s.favorites == nil {
		return false, false, fmt.Errorf("favorites are not configured")
	}
	if state {
		if _, err := s.getProfile(ctx, targetID); err != nil {
			return false, false, err
		}
	}

	changed, err = s.favorites.Set(ctx, requesterID, targetID, state)
	if err != nil {
		return false, false, fmt.Errorf("set favorite %d -> %d: %w", requesterID, targetID, err)
	}

	s.mu.Lock()
	for i := range s.snapshots[requesterID] {
		if s.snapshots[requesterID][i].Profile.UserID == targetID {
			s.snapshots[requesterID][i].IsFavorite = state
			break
		}
	}
	s.mu.Unlock()

	return true, changed, nil
}

// GetFavoriteProfiles looks up the favorite relations and then the profiles
// behind them. Compatibility comes from the stored tuple when one exists.
func (s *Service) GetFavoriteProfiles(ctx context.Context, requesterID int) ([]Match, error) {
	if s.favorites == nil {
		return []Match{}, nil
	}
	rels, err := s.favorites.Get(ctx, requesterID)
	if err != nil {
		return nil, fmt.Errorf("load favorites for %d: %w", requesterID, err)
	}
	if len(rels) == 0 {
		return []Match{}, nil
	}

	ids := make([]int, 0, len(rels))
	for _, rel := range rels {
		ids = append(ids, rel.FavoriteUserID)
	}
	profiles, err := s.profiles.GetProfiles(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load favorite profiles for %d: %w: %w", requesterID, ErrCandidateFetchFailed, err)
	}

	out := make([]Match, 0, len(rels))
	for _, rel := range rels {
		p, ok := profiles[rel.FavoriteUserID]
		if !ok || p == nil {
			s.logger.Debug("favorite without profile", zap.Int("requester_id", requesterID), zap.Int("favorite_id", rel.FavoriteUserID))
			continue
		}
		m := Match{Profile: *p, Compatibility: ZeroResult(), IsFavorite: true, LastUpdated: rel.CreatedAt}
		if s.compat != nil {
			rec, err := s.compat.GetCompatibility(ctx, requesterID, rel.FavoriteUserID)
			if err != nil {
				s.logger.Warn("loading stored compatibility", zap.Int("requester_id", requesterID), zap.Int("favorite_id", rel.FavoriteUserID), zap.Error(err))
			} else if rec != nil {
				m.Compatibility = rec.Result.Clamp()
				m.LastUpdated = rec.UpdatedAt
			}
		}
		out = append(out, m)
	}
	return out, nil
}

// CurrentMatches returns a copy of the last ranked list for requesterID with
// every overlay applied since.
func (s *Service) CurrentMatches(requesterID int) []Match {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneMatches(s.snapshots[requesterID])
}

func (s *Service) getProfile(ctx context.Context, userID int) (*Profile, error) {
	p, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load profile %d: %w: %w", userID, ErrCandidateFetchFailed, err)
	}
	if p == nil {
		return nil, fmt.Errorf("profile %d: %w", userID, ErrProfileNotFound)
	}
	return p, nil
}

// cloneMatches copies the list together with the string slices of each entry,
// so callers may modify what they get back. Preferences and Persona are
// shared and must be treated as read-only.
func cloneMatches(in []Match) []Match {
	out := make([]Match, len(in))
	copy(out, in)
	for i := range out {
		c := &out[i].Compatibility
		c.Strengths = slices.Clone(c.Strengths)
		c.Challenges = slices.Clone(c.Challenges)
		c.Tips = slices.Clone(c.Tips)
		out[i].Profile.Interests = slices.Clone(out[i].Profile.Interests)
		out[i].Profile.Dealbreakers = slices.Clone(out[i].Profile.Dealbreakers)
	}
	return out
}
