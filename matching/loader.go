package matching

import (
	"context"
	"fmt"
)

// Filter narrows the candidate pool. Nil or empty fields apply no constraint.
type Filter struct {
	ExcludeUserID    int
	MinAge           *int
	MaxAge           *int
	EducationLevel   string
	RelationshipType string
}

// FilterFor builds the pool filter for a requester from their preferences.
func FilterFor(requester *Profile) Filter {
	prefs := requester.Preferences
	return Filter{
		ExcludeUserID:    requester.UserID,
		MinAge:           prefs.MinAge,
		MaxAge:           prefs.MaxAge,
		EducationLevel:   prefs.EducationLevel,
		RelationshipType: prefs.RelationshipType,
	}
}

// Matches reports whether p belongs in the pool. Age bounds are inclusive,
// education and relationship type must match exactly.
func (f Filter) Matches(p Profile) bool {
	if p.UserID == f.ExcludeUserID {
		return false
	}
	if p.Visibility.Hidden {
		return false
	}
	if f.MinAge != nil && p.Age < *f.MinAge {
		return false
	}
	if f.MaxAge != nil && p.Age > *f.MaxAge {
		return false
	}
	if f.EducationLevel != "" && p.Education != f.EducationLevel {
		return false
	}
	if f.RelationshipType != "" && p.RelationshipType != f.RelationshipType {
		return false
	}
	return true
}

// LoadCandidates returns the requester and every profile that passes the
// requester's hard filters. The filter is re-applied in memory so stores that
// over-fetch still honor it.
func LoadCandidates(ctx context.Context, store ProfileStore, requesterID int) (*Profile, []Profile, Step, error) {
	requester, err := store.GetProfile(ctx, requesterID)
	if err != nil {
		return nil, nil, Step{}, fmt.Errorf("load requester %d: %w: %w", requesterID, ErrCandidateFetchFailed, err)
	}
	if requester == nil {
		return nil, nil, Step{}, fmt.Errorf("requester %d: %w", requesterID, ErrProfileNotFound)
	}

	filter := FilterFor(requester)
	pool, err := store.ListProfiles(ctx, filter)
	if err != nil {
		return nil, nil, Step{}, fmt.Errorf("list candidates for %d: %w: %w", requesterID, ErrCandidateFetchFailed, err)
	}

	candidates := make([]Profile, 0, len(pool))
	for _, p := range pool {
		if filter.Matches(p) {
			candidates = append(candidates, p)
		}
	}

	step := Step{Initial: len(pool), Dropped: len(pool) - len(candidates), Left: len(candidates)}
	return requester, candidates, step, nil
}
