package matching

import "context"

// ProfileStore returns (nil, nil) from GetProfile when the user has no profile.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID int) (*Profile, error)
	GetProfiles(ctx context.Context, userIDs []int) (map[int]*Profile, error)
	ListProfiles(ctx context.Context, filter Filter) ([]Profile, error)
}

// CompatibilityEngine produces an opaque compatibility verdict for a pair. It
// is usually backed by a slow network call and may fail.
type CompatibilityEngine interface {
	Analyze(ctx context.Context, requester, candidate *Profile) (*CompatibilityResult, error)
}

// CompatibilityStore persists tuples keyed by the directional pair. Saves are
// last-writer-wins. GetCompatibility returns (nil, nil) when nothing is stored.
type CompatibilityStore interface {
	SaveCompatibility(ctx context.Context, requesterID, candidateID int, result CompatibilityResult) error
	GetCompatibility(ctx context.Context, requesterID, candidateID int) (*CompatibilityRecord, error)
}

// CompatibilityCache is an optional read-through cache in front of the engine.
type CompatibilityCache interface {
	Get(ctx context.Context, requesterID, candidateID int) (*CompatibilityResult, bool, error)
	Set(ctx context.Context, requesterID, candidateID int, result CompatibilityResult) error
}

// FavoriteStore.Set reports whether the relation actually changed.
type FavoriteStore interface {
	Get(ctx context.Context, userID int) ([]FavoriteRelation, error)
	Set(ctx context.Context, userID, targetID int, state bool) (bool, error)
}
