package store

import (
	"context"
	"time"

	"github.com/graph-gophers/dataloader/v7"

	"github.com/Jay-byte6/DemoReady-AICUPID-sub000/matching"
)

const loaderWait = 16 * time.Millisecond

// ProfileLoader batches concurrent single-profile lookups into one IN query.
// It does not cache between batches, so a profile edit is visible to the next
// request.
type ProfileLoader struct {
	*ProfileStore
	loader *dataloader.Loader[int, *matching.Profile]
}

func NewProfileLoader(profiles *ProfileStore) *ProfileLoader {
	l := &ProfileLoader{ProfileStore: profiles}
	l.loader = dataloader.NewBatchedLoader(
		profileBatchFn(profiles),
		dataloader.WithWait[int, *matching.Profile](loaderWait),
		dataloader.WithCache[int, *matching.Profile](&dataloader.NoCache[int, *matching.Profile]{}),
	)
	return l
}

// profileBatchFn returns results in key order. Missing profiles resolve to nil
// without an error.
func profileBatchFn(profiles *ProfileStore) dataloader.BatchFunc[int, *matching.Profile] {
	return func(ctx context.Context, keys []int) []*dataloader.Result[*matching.Profile] {
		results := make([]*dataloader.Result[*matching.Profile], len(keys))
		for i := range results {
			results[i] = &dataloader.Result[*matching.Profile]{}
		}
		if len(keys) == 0 {
			return results
		}

		found, err := profiles.GetProfiles(ctx, keys)
		if err != nil {
			for i := range results {
				results[i].Error = err
			}
			return results
		}
		for i, key := range keys {
			results[i].Data = found[key]
		}
		return results
	}
}

func (l *ProfileLoader) GetProfile(ctx context.Context, userID int) (*matching.Profile, error) {
	return l.loader.Load(ctx, userID)()
}

func (l *ProfileLoader) GetProfiles(ctx context.Context, userIDs []int) (map[int]*matching.Profile, error) {
	out := make(map[int]*matching.Profile, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	profiles, errs := l.loader.LoadMany(ctx, userIDs)()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	for i, id := range userIDs {
		if profiles[i] != nil {
			out[id] = profiles[i]
		}
	}
	return out, nil
}
