package main

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/Jay-byte6/DemoReady-AICUPID-sub000/metrics"
	"github.com/Jay-byte6/DemoReady-AICUPID-sub000/store"
)

type notificationRepo interface {
	Create(ctx context.Context, userID int, typ store.NotificationType, content store.NotificationContent) (*store.Notification, error)
	List(ctx context.Context, userID int, unreadOnly bool, limit int) ([]store.Notification, error)
	MarkRead(ctx context.Context, userID int, id int64) (bool, error)
	MarkAllRead(ctx context.Context, userID int) (int64, error)
	UnreadCount(ctx context.Context, userID int) (int, error)
}

// notifier stores a notification and pushes it to the user's open sockets.
// Failures are logged; the action that triggered the notification has
// already succeeded.
type notifier struct {
	store  notificationRepo
	hub    *Hub
	logger *zap.Logger
}

func (n *notifier) Notify(ctx context.Context, userID int, typ store.NotificationType, content store.NotificationContent) {
	created, err := n.store.Create(ctx, userID, typ, content)
	if err != nil {
		n.logger.Warn("creating notification",
			zap.Int("user_id", userID),
			zap.String("type", string(typ)),
			zap.Error(err),
		)
		return
	}
	metrics.NotificationsCreated.WithLabelValues(string(typ)).Inc()
	n.hub.sendToUser(userID, ServerEvent{Type: "notification", Data: created})
}

// GET /notifications?unread=true&limit=50
func notificationsHandler(notifications notificationRepo, logger *zap.Logger) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
			return
		}
		userID := requesterID(r)
		unreadOnly := r.URL.Query().Get("unread") == "true"

		list, err := notifications.List(r.Context(), userID, unreadOnly, queryLimit(r, 50, 200))
		if err != nil {
			logger.Error("listing notifications", zap.Int("user_id", userID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "notifications_error")
			return
		}
		unread, err := notifications.UnreadCount(r.Context(), userID)
		if err != nil {
			logger.Error("counting notifications", zap.Int("user_id", userID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "notifications_error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"notifications": list, "unread": unread})
	})
}

// POST /notifications/{id}/read and POST /notifications/read-all
func notificationsActionsRouter(notifications notificationRepo, logger *zap.Logger) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
			return
		}
		userID := requesterID(r)
		parts := pathParts(r)

		switch {
		case len(parts) == 2 && parts[1] == "read-all":
			n, err := notifications.MarkAllRead(r.Context(), userID)
			if err != nil {
				logger.Error("marking notifications read", zap.Int("user_id", userID), zap.Error(err))
				writeError(w, http.StatusInternalServerError, "notifications_error")
				return
			}
			writeJSON(w, http.StatusOK, map[string]int64{"updated": n})

		case len(parts) == 3 && parts[2] == "read":
			id, ok := positiveID(parts[1])
			if !ok {
				writeError(w, http.StatusBadRequest, "invalid_notification_id")
				return
			}
			found, err := notifications.MarkRead(r.Context(), userID, int64(id))
			if err != nil {
				logger.Error("marking notification read", zap.Int("user_id", userID), zap.Int("id", id), zap.Error(err))
				writeError(w, http.StatusInternalServerError, "notifications_error")
				return
			}
			if !found {
				writeError(w, http.StatusNotFound, "notification_not_found")
				return
			}
			w.WriteHeader(http.StatusNoContent)

		default:
			writeError(w, http.StatusNotFound, "not_found")
		}
	})
}
