package main

import (
	"net/http"

	"go.uber.org/zap"
)

// POST /me/ping marks the caller as online now.
func mePingHandler(users userRepo, logger *zap.Logger) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
			return
		}
		if err := users.Touch(r.Context(), requesterID(r)); err != nil {
			logger.Warn("updating last_online", zap.Int("user_id", requesterID(r)), zap.Error(err))
		}
		w.WriteHeader(http.StatusNoContent)
	})
}
