package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"studiobook/internal/apperr"
	"studiobook/internal/model"
)

// DeviceStore is the slice of the device repository the handler needs.
type DeviceStore interface {
	Upsert(ctx context.Context, d model.Device) error
}

type DeviceHandler struct {
	repo   DeviceStore
	logger *slog.Logger
}

func NewDeviceHandler(repo DeviceStore, logger *slog.Logger) *DeviceHandler {
	return &DeviceHandler{repo: repo, logger: logger}
}

type registerDeviceRequest struct {
	DeviceID string `json:"device_id"`
	Token    string `json:"token"`
	Platform string `json:"platform"`
	Active   *bool  `json:"active"`
}

// Register upserts a push registration. Identity is optional: an
// anonymous registration parks the token until a signed-in registration
// from the same device claims it.
func (h *DeviceHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, apperr.New(apperr.InvalidArgument, "invalid json body"))
		return
	}
	req.DeviceID = strings.TrimSpace(req.DeviceID)
	if req.DeviceID == "" {
		writeError(w, h.logger, apperr.New(apperr.InvalidArgument, "device_id required"))
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	identity, _ := IdentityFrom(r.Context())

	err := h.repo.Upsert(r.Context(), model.Device{
		ID:       req.DeviceID,
		UserID:   identity.UID,
		Token:    strings.TrimSpace(req.Token),
		Platform: strings.TrimSpace(req.Platform),
		Active:   active,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
