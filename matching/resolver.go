package matching

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Jay-byte6/DemoReady-AICUPID-sub000/metrics"
)

const (
	DefaultConcurrency      = 8
	DefaultCandidateTimeout = 20 * time.Second
	DefaultWriteTimeout     = 5 * time.Second
)

// Resolution is the outcome of resolving one candidate. Err is non-nil when
// the candidate was degraded to ZeroResult.
type Resolution struct {
	Candidate  Profile
	Result     CompatibilityResult
	ResolvedAt time.Time
	Cached     bool
	Err        error
}

// Resolver asks the engine for compatibility verdicts and persists them.
type Resolver struct {
	engine       CompatibilityEngine
	store        CompatibilityStore
	cache        CompatibilityCache
	concurrency  int
	timeout      time.Duration
	writeTimeout time.Duration
	logger       *zap.Logger
	now          func() time.Time
}

type ResolverConfig struct {
	Concurrency      int
	CandidateTimeout time.Duration
	// WriteTimeout bounds persisting and caching a fresh result.
	WriteTimeout time.Duration
}

// NewResolver builds a Resolver. store and cache may be nil.
func NewResolver(engine CompatibilityEngine, store CompatibilityStore, cache CompatibilityCache, cfg ResolverConfig, logger *zap.Logger) *Resolver {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.CandidateTimeout <= 0 {
		cfg.CandidateTimeout = DefaultCandidateTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		engine:       engine,
		store:        store,
		cache:        cache,
		concurrency:  cfg.Concurrency,
		timeout:      cfg.CandidateTimeout,
		writeTimeout: cfg.WriteTimeout,
		logger:       logger,
		now:          time.Now,
	}
}

// Resolve returns the compatibility for one pair, reading the cache first
// when one is configured.
func (r *Resolver) Resolve(ctx context.Context, requester, candidate Profile) Resolution {
	return r.resolve(ctx, requester, candidate, true)
}

// Refresh always asks the engine and overwrites the stored tuple.
func (r *Resolver) Refresh(ctx context.Context, requester, candidate Profile) Resolution {
	return r.resolve(ctx, requester, candidate, false)
}

// ResolveAll resolves every candidate with at most r.concurrency engine calls
// in flight. The output is in candidate order and is complete before return.
// Only cancellation of ctx is reported as an error.
func (r *Resolver) ResolveAll(ctx context.Context, requester Profile, candidates []Profile) ([]Resolution, error) {
	out := make([]Resolution, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i := range candidates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				out[i] = r.degraded(candidates[i], err)
				return nil
			}
			out[i] = r.resolve(gctx, requester, candidates[i], true)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return out, err
	}
	return out, nil
}

func (r *Resolver) resolve(ctx context.Context, requester, candidate Profile, readCache bool) Resolution {
	log := r.logger.With(zap.Int("requester_id", requester.UserID), zap.Int("candidate_id", candidate.UserID))

	if readCache && r.cache != nil {
		cached, ok, err := r.cache.Get(ctx, requester.UserID, candidate.UserID)
		switch {
		case err != nil:
			metrics.CacheLookups.WithLabelValues("error").Inc()
			log.Warn("compatibility cache lookup failed", zap.Error(err))
		case ok:
			metrics.CacheLookups.WithLabelValues("hit").Inc()
			metrics.CompatibilityResolutions.WithLabelValues("cached").Inc()
			return Resolution{Candidate: candidate, Result: cached.Clamp(), ResolvedAt: r.now(), Cached: true}
		default:
			metrics.CacheLookups.WithLabelValues("miss").Inc()
		}
	}

	result, err := r.analyze(ctx, requester, candidate)
	if err != nil {
		log.Warn("compatibility degraded to zero result", zap.Error(err))
		return r.degraded(candidate, err)
	}
	metrics.CompatibilityResolutions.WithLabelValues("ok").Inc()

	wctx, cancel := context.WithTimeout(ctx, r.writeTimeout)
	defer cancel()
	if r.store != nil {
		if err := r.store.SaveCompatibility(wctx, requester.UserID, candidate.UserID, result); err != nil {
			log.Error("storing compatibility", zap.Error(fmt.Errorf("%w: %w", ErrPersistenceFailed, err)))
		}
	}
	if r.cache != nil {
		if err := r.cache.Set(wctx, requester.UserID, candidate.UserID, result); err != nil {
			log.Warn("caching compatibility", zap.Error(err))
		}
	}

	return Resolution{Candidate: candidate, Result: result, ResolvedAt: r.now()}
}

func (r *Resolver) analyze(ctx context.Context, requester, candidate Profile) (CompatibilityResult, error) {
	if r.engine == nil {
		return CompatibilityResult{}, fmt.Errorf("%w: no engine configured", ErrCompatibilityResolutionFailed)
	}

	cctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	metrics.CompatibilityInFlight.Inc()
	res, err := r.engine.Analyze(cctx, &requester, &candidate)
	metrics.CompatibilityInFlight.Dec()

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || cctx.Err() != nil {
			return CompatibilityResult{}, fmt.Errorf("%w: timed out after %s: %w", ErrCompatibilityResolutionFailed, r.timeout, err)
		}
		return CompatibilityResult{}, fmt.Errorf("%w: %w", ErrCompatibilityResolutionFailed, err)
	}
	if res == nil {
		return CompatibilityResult{}, fmt.Errorf("%w: engine returned no result", ErrCompatibilityResolutionFailed)
	}
	return res.Clamp(), nil
}

func (r *Resolver) degraded(candidate Profile, err error) Resolution {
	if !errors.Is(err, ErrCompatibilityResolutionFailed) {
		err = fmt.Errorf("%w: %w", ErrCompatibilityResolutionFailed, err)
	}
	metrics.CompatibilityResolutions.WithLabelValues("degraded").Inc()
	return Resolution{Candidate: candidate, Result: ZeroResult(), ResolvedAt: r.now(), Err: err}
}
