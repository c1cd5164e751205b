package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"studiobook/internal/apperr"
	"studiobook/internal/model"
)

// ClientStore is the slice of the client repository the handler needs.
type ClientStore interface {
	Upsert(ctx context.Context, c model.Client) error
	Get(ctx context.Context, id string) (model.Client, error)
	List(ctx context.Context, search string, limit int) ([]model.Client, error)
}

type ClientHandler struct {
	repo   ClientStore
	authz  AdminChecker
	logger *slog.Logger
}

func NewClientHandler(repo ClientStore, authz AdminChecker, logger *slog.Logger) *ClientHandler {
	return &ClientHandler{repo: repo, authz: authz, logger: logger}
}

type clientProfileRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

type clientItem struct {
	ClientID string `json:"client_id"`
	Name     string `json:"name,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Email    string `json:"email,omitempty"`
}

func clientToItem(c model.Client) clientItem {
	return clientItem{ClientID: c.ID, Name: c.Name, Phone: c.Phone, Email: c.Email}
}

// UpsertMe creates or refreshes the caller's own profile.
func (h *ClientHandler) UpsertMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, h.logger, apperr.New(apperr.Unauthenticated, "sign in required"))
		return
	}

	var req clientProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, apperr.New(apperr.InvalidArgument, "invalid json body"))
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = identity.Name
	}
	email := strings.TrimSpace(req.Email)
	if email == "" {
		email = identity.Email
	}

	err := h.repo.Upsert(r.Context(), model.Client{
		ID:    identity.UID,
		Name:  name,
		Phone: strings.TrimSpace(req.Phone),
		Email: email,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"client_id": identity.UID})
}

// GetMe returns the caller's own profile.
func (h *ClientHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, h.logger, apperr.New(apperr.Unauthenticated, "sign in required"))
		return
	}
	c, err := h.repo.Get(r.Context(), identity.UID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, clientToItem(c))
}

// Get returns a profile to its owner or an administrator.
func (h *ClientHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := IdentityFrom(ctx)
	if !ok {
		writeError(w, h.logger, apperr.New(apperr.Unauthenticated, "sign in required"))
		return
	}
	id := r.PathValue("id")
	if identity.UID != id && !h.authz.IsAdministrator(ctx, identity.UID) {
		writeError(w, h.logger, apperr.New(apperr.PermissionDenied, "not allowed to view this profile"))
		return
	}

	c, err := h.repo.Get(ctx, id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, clientToItem(c))
}

// List is the administrator directory view.
func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
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

	q := r.URL.Query()
	limit := 0
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	clients, err := h.repo.List(ctx, strings.TrimSpace(q.Get("search")), limit)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	items := make([]clientItem, 0, len(clients))
	for _, c := range clients {
		items = append(items, clientToItem(c))
	}
	writeJSON(w, http.StatusOK, items)
}
