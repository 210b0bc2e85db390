package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Jay-byte6/DemoReady-AICUPID-sub000/matching"
)

// --- Response helpers ---
func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps matching errors to HTTP responses. Anything it does
// not recognise is logged and reported as a 500.
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, matching.ErrProfileNotFound):
		writeError(w, http.StatusNotFound, "profile_not_found")
	case errors.Is(err, matching.ErrInvalidTarget):
		writeError(w, http.StatusBadRequest, "invalid_target")
	case errors.Is(err, matching.ErrCandidateFetchFailed):
		logger.Error("candidate fetch failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "candidate_fetch_failed")
	case errors.Is(err, matching.ErrCompatibilityResolutionFailed):
		logger.Warn("compatibility resolution failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "compatibility_failed")
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "timeout")
	case errors.Is(err, context.Canceled):
		// client went away, nothing useful to write
	default:
		logger.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error")
	}
}

func decodeJSON(r *http.Request, dst any) error {
	return json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20)).Decode(dst)
}

// pathParts splits "/a/b/c" into ["a", "b", "c"].
func pathParts(r *http.Request) []string {
	return strings.Split(strings.Trim(r.URL.Path, "/"), "/")
}

// positiveID parses a path segment as a user or record id.
func positiveID(s string) (int, bool) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// queryLimit reads ?limit=N, falling back to def and capping at max.
func queryLimit(r *http.Request, def, max int) int {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
