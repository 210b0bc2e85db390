package main

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/Jay-byte6/DemoReady-AICUPID-sub000/matching"
	"github.com/Jay-byte6/DemoReady-AICUPID-sub000/store"
)

const maxMatchesLimit = 100

type matchService interface {
	FindTopMatches(ctx context.Context, requesterID, limit int) ([]matching.Match, error)
	RefreshCompatibility(ctx context.Context, requesterID, targetID int) (matching.CompatibilityResult, error)
	ToggleFavorite(ctx context.Context, requesterID, targetID int, state bool) (ok, changed bool, err error)
	GetFavoriteProfiles(ctx context.Context, requesterID int) ([]matching.Match, error)
	CurrentMatches(requesterID int) []matching.Match
}

type mutualChecker interface {
	IsMutual(ctx context.Context, a, b int) (bool, error)
}

// publicMatches strips private fields from the candidate profiles before
// they leave the server.
func publicMatches(matches []matching.Match) []matching.Match {
	out := make([]matching.Match, len(matches))
	for i, m := range matches {
		m.Profile = m.Profile.Public()
		out[i] = m
	}
	return out
}

// GET /matches?limit=N runs the pipeline for the caller.
func matchesHandler(svc matchService, limit int, logger *zap.Logger) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
			return
		}
		matches, err := svc.FindTopMatches(r.Context(), requesterID(r), queryLimit(r, limit, maxMatchesLimit))
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"matches": publicMatches(matches)})
	})
}

// GET /matches/current returns the last computed list without rerunning it.
func currentMatchesHandler(svc matchService) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"matches": publicMatches(svc.CurrentMatches(requesterID(r)))})
	})
}

// POST /matches/{id}/refresh recomputes compatibility with one candidate.
func matchesActionsRouter(svc matchService, logger *zap.Logger) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		parts := pathParts(r)
		if len(parts) != 3 || parts[2] != "refresh" {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
			return
		}
		targetID, ok := positiveID(parts[1])
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_user_id")
			return
		}

		result, err := svc.RefreshCompatibility(r.Context(), requesterID(r), targetID)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"user_id": targetID, "compatibility": result})
	})
}

// GET /favorites
func favoritesHandler(svc matchService, logger *zap.Logger) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
			return
		}
		favorites, err := svc.GetFavoriteProfiles(r.Context(), requesterID(r))
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"favorites": publicMatches(favorites)})
	})
}

// PUT /favorites/{id} and DELETE /favorites/{id}. A new favorite that is
// returned creates a NEW_MATCH notification for both users. Repeating the PUT
// does not notify again.
func favoritesActionsRouter(svc matchService, mutual mutualChecker, notify *notifier, logger *zap.Logger) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		parts := pathParts(r)
		if len(parts) != 2 {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}
		var state bool
		switch r.Method {
		case http.MethodPut:
			state = true
		case http.MethodDelete:
			state = false
		default:
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
			return
		}
		targetID, ok := positiveID(parts[1])
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_user_id")
			return
		}
		userID := requesterID(r)

		_, changed, err := svc.ToggleFavorite(r.Context(), userID, targetID, state)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}

		if state && changed {
			isMutual, err := mutual.IsMutual(r.Context(), userID, targetID)
			if err != nil {
				logger.Warn("checking mutual favorite", zap.Int("user_id", userID), zap.Int("target_id", targetID), zap.Error(err))
			}
			if isMutual {
				notifyMatch(r.Context(), notify, userID, targetID)
				notifyMatch(r.Context(), notify, targetID, userID)
			}
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{"user_id": targetID, "favorite": state})
	})
}

func notifyMatch(ctx context.Context, notify *notifier, userID, otherID int) {
	notify.Notify(ctx, userID, store.NotificationNewMatch, store.NotificationContent{
		Title:    "New match",
		Message:  "You both added each other to favorites",
		TargetID: &otherID,
	})
}
