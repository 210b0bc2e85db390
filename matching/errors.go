package matching

import "errors"

var (
	// ErrProfileNotFound aborts a pipeline run: without the requester there is
	// no filter context.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrCandidateFetchFailed aborts a pipeline run when the profile store fails.
	ErrCandidateFetchFailed = errors.New("candidate fetch failed")
	// ErrCompatibilityResolutionFailed is per candidate. The candidate degrades
	// to ZeroResult and the run continues.
	ErrCompatibilityResolutionFailed = errors.New("compatibility resolution failed")
	// ErrPersistenceFailed is logged only. The freshly computed result is still
	// returned.
	ErrPersistenceFailed = errors.New("persistence failed")
	ErrInvalidTarget     = errors.New("invalid target")
)
