package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"studiobook/internal/apperr"
	"studiobook/internal/model"
	"studiobook/internal/storage"
)

// PhotoRequestStore is the slice of the photo-request repository the
// handler needs.
type PhotoRequestStore interface {
	Create(ctx context.Context, pr *model.PhotoRequest) (string, error)
	Get(ctx context.Context, id string) (model.PhotoRequest, error)
	Update(ctx context.Context, id string, patch storage.PhotoRequestPatch) (model.PhotoRequest, model.PhotoRequest, error)
	List(ctx context.Context, clientID string, limit int) ([]model.PhotoRequest, error)
}

type PhotoRequestHandler struct {
	repo   PhotoRequestStore
	authz  AdminChecker
	logger *slog.Logger
}

func NewPhotoRequestHandler(repo PhotoRequestStore, authz AdminChecker, logger *slog.Logger) *PhotoRequestHandler {
	return &PhotoRequestHandler{repo: repo, authz: authz, logger: logger}
}

type createPhotoRequestRequest struct {
	AppointmentID string `json:"appointment_id"`
}

type updatePhotoRequestRequest struct {
	Status      *string `json:"status"`
	DownloadURL *string `json:"download_url"`
}

type photoRequestItem struct {
	RequestID     string `json:"request_id"`
	ClientID      string `json:"client_id"`
	AppointmentID string `json:"appointment_id,omitempty"`
	Status        string `json:"status"`
	DownloadURL   string `json:"download_url,omitempty"`
	CreatedAt     string `json:"created_at"`
}

func photoRequestToItem(p model.PhotoRequest) photoRequestItem {
	return photoRequestItem{
		RequestID:     p.ID,
		ClientID:      p.ClientID,
		AppointmentID: p.AppointmentID,
		Status:        p.Status,
		DownloadURL:   p.DownloadURL,
		CreatedAt:     p.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// Create opens a photo request for the signed-in client.
func (h *PhotoRequestHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, h.logger, apperr.New(apperr.Unauthenticated, "sign in required"))
		return
	}

	var req createPhotoRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, apperr.New(apperr.InvalidArgument, "invalid json body"))
		return
	}

	id, err := h.repo.Create(r.Context(), &model.PhotoRequest{
		ClientID:      identity.UID,
		AppointmentID: strings.TrimSpace(req.AppointmentID),
		Status:        model.PhotoRequested,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"request_id": id})
}

// Update is the administrator delivery path. Setting status to
// delivered fires the photos-ready notification downstream.
func (h *PhotoRequestHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := IdentityFrom(ctx)
	if !ok {
		writeError(w, h.logger, apperr.New(apperr.Unauthenticated, "sign in required"))
		return
	}
	if !h.authz.IsAdministrator(ctx, identity.UID) {
		writeError(w, h.logger, apperr.New(apperr.PermissionDenied, "administrator access required"))
		return
	}

	var req updatePhotoRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, apperr.New(apperr.InvalidArgument, "invalid json body"))
		return
	}
	if req.Status == nil && req.DownloadURL == nil {
		writeError(w, h.logger, apperr.New(apperr.InvalidArgument, "no fields to update"))
		return
	}
	if req.Status != nil && *req.Status != model.PhotoRequested && *req.Status != model.PhotoDelivered {
		writeError(w, h.logger, apperr.New(apperr.InvalidArgument, "invalid status"))
		return
	}

	_, after, err := h.repo.Update(ctx, r.PathValue("id"), storage.PhotoRequestPatch{
		Status:      req.Status,
		DownloadURL: req.DownloadURL,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, photoRequestToItem(after))
}

// Get returns one photo request to its owner or an administrator.
func (h *PhotoRequestHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pr, err := h.repo.Get(ctx, r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	identity, ok := IdentityFrom(ctx)
	if !ok {
		writeError(w, h.logger, apperr.New(apperr.Unauthenticated, "sign in required"))
		return
	}
	if identity.UID != pr.ClientID && !h.authz.IsAdministrator(ctx, identity.UID) {
		writeError(w, h.logger, apperr.New(apperr.PermissionDenied, "not allowed to view this request"))
		return
	}
	writeJSON(w, http.StatusOK, photoRequestToItem(pr))
}

// List returns photo requests. Administrators see everything and may
// filter by client; clients see only their own.
func (h *PhotoRequestHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := IdentityFrom(ctx)
	if !ok {
		writeError(w, h.logger, apperr.New(apperr.Unauthenticated, "sign in required"))
		return
	}

	q := r.URL.Query()
	limit := 0
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	clientID := identity.UID
	if h.authz.IsAdministrator(ctx, identity.UID) {
		clientID = strings.TrimSpace(q.Get("client_id"))
	}

	requests, err := h.repo.List(ctx, clientID, limit)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	items := make([]photoRequestItem, 0, len(requests))
	for _, pr := range requests {
		items = append(items, photoRequestToItem(pr))
	}
	writeJSON(w, http.StatusOK, items)
}
