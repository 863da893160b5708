package handler

import (
	"log/slog"
	"net/http"

	"github.com/enfdev/letterbox/internal/service"
)

// NotificationHandler exposes the per-user notification feed.
type NotificationHandler struct {
	notifications *service.NotificationService
	logger        *slog.Logger
}

func NewNotificationHandler(notifications *service.NotificationService, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{notifications: notifications, logger: logger}
}

// NotificationResponse is the public projection of a notification.
type NotificationResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
	Unread  bool   `json:"unread"`
}

// HandleList returns the caller's notifications, oldest first, and marks
// them delivered.
//
// GET /api/notifications
func (h *NotificationHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	list, err := h.notifications.List(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]NotificationResponse, 0, len(list))
	for _, n := range list {
		out = append(out, NotificationResponse{
			ID:      n.ID,
			Message: n.Message,
			Unread:  !n.Sent,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleDeleteAll clears the caller's feed.
//
// DELETE /api/notifications
func (h *NotificationHandler) HandleDeleteAll(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := h.notifications.DeleteAll(r.Context(), userID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}
