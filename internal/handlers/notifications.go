package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"studiobook/internal/apperr"
	"studiobook/internal/model"
)

// NotificationStore is the slice of the notification repository the
// handler needs.
type NotificationStore interface {
	ListForRecipient(ctx context.Context, recipient string, limit int) ([]model.Notification, error)
}

type NotificationHandler struct {
	repo   NotificationStore
	logger *slog.Logger
}

func NewNotificationHandler(repo NotificationStore, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{repo: repo, logger: logger}
}

type notificationItem struct {
	NotificationID string `json:"notification_id"`
	Title          string `json:"title"`
	Category       string `json:"category"`
	Body           string `json:"body,omitempty"`
	Image          string `json:"image,omitempty"`
	CreatedAt      string `json:"created_at"`
}

// List returns the caller's notification feed, broadcasts included,
// newest first.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, h.logger, apperr.New(apperr.Unauthenticated, "sign in required"))
		return
	}

	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	notifications, err := h.repo.ListForRecipient(r.Context(), identity.UID, limit)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	items := make([]notificationItem, 0, len(notifications))
	for _, n := range notifications {
		items = append(items, notificationItem{
			NotificationID: n.ID,
			Title:          n.Title,
			Category:       n.Category,
			Body:           n.Body,
			Image:          n.Image,
			CreatedAt:      n.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, items)
}
