package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"studiobook/internal/apperr"
	"studiobook/internal/blob"
	"studiobook/internal/model"
	"studiobook/internal/storage"
)

// ScenarioStore is the slice of the scenario repository the handler needs.
type ScenarioStore interface {
	Create(ctx context.Context, sc *model.Scenario) (string, error)
	Get(ctx context.Context, id string) (model.Scenario, error)
	Update(ctx context.Context, id string, patch storage.ScenarioPatch) (model.Scenario, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, category string, limit int, afterID string) ([]model.Scenario, error)
}

type ScenarioHandler struct {
	repo   ScenarioStore
	authz  AdminChecker
	blobs  blob.Deleter
	logger *slog.Logger
}

func NewScenarioHandler(repo ScenarioStore, authz AdminChecker, blobs blob.Deleter, logger *slog.Logger) *ScenarioHandler {
	return &ScenarioHandler{repo: repo, authz: authz, blobs: blobs, logger: logger}
}

type scenarioRequest struct {
	Name           *string   `json:"name"`
	Category       *string   `json:"category"`
	Description    *string   `json:"description"`
	Images         *[]string `json:"images"`
	SessionMinutes *int      `json:"session_minutes"`
}

type scenarioItem struct {
	ScenarioID     string   `json:"scenario_id"`
	Name           string   `json:"name"`
	Category       string   `json:"category,omitempty"`
	Description    string   `json:"description,omitempty"`
	Images         []string `json:"images"`
	SessionMinutes int      `json:"session_minutes"`
}

func scenarioToItem(s model.Scenario) scenarioItem {
	images := s.Images
	if images == nil {
		images = []string{}
	}
	return scenarioItem{
		ScenarioID:     s.ID,
		Name:           s.Name,
		Category:       s.Category,
		Description:    s.Description,
		Images:         images,
		SessionMinutes: s.SessionMinutes,
	}
}

func (h *ScenarioHandler) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	identity, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, h.logger, apperr.New(apperr.Unauthenticated, "sign in required"))
		return false
	}
	if !h.authz.IsAdministrator(r.Context(), identity.UID) {
		writeError(w, h.logger, apperr.New(apperr.PermissionDenied, "administrator access required"))
		return false
	}
	return true
}

func (h *ScenarioHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	var req scenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, apperr.New(apperr.InvalidArgument, "invalid json body"))
		return
	}
	if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
		writeError(w, h.logger, apperr.New(apperr.InvalidArgument, "name required"))
		return
	}

	sc := &model.Scenario{Name: strings.TrimSpace(*req.Name)}
	if req.Category != nil {
		sc.Category = *req.Category
	}
	if req.Description != nil {
		sc.Description = *req.Description
	}
	if req.Images != nil {
		sc.Images = *req.Images
	}
	if req.SessionMinutes != nil {
		sc.SessionMinutes = *req.SessionMinutes
	}

	id, err := h.repo.Create(r.Context(), sc)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"scenario_id": id})
}

// Update patches a scenario. Images dropped from the list are removed
// from blob storage best effort; a failed blob delete never fails the
// update.
func (h *ScenarioHandler) Update(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	id := r.PathValue("id")

	var req scenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, apperr.New(apperr.InvalidArgument, "invalid json body"))
		return
	}

	ctx := r.Context()
	var removed []string
	if req.Images != nil {
		before, err := h.repo.Get(ctx, id)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		removed = droppedImages(before.Images, *req.Images)
	}

	sc, err := h.repo.Update(ctx, id, storage.ScenarioPatch{
		Name:           req.Name,
		Category:       req.Category,
		Description:    req.Description,
		Images:         req.Images,
		SessionMinutes: req.SessionMinutes,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.deleteBlobs(ctx, removed)
	writeJSON(w, http.StatusOK, scenarioToItem(sc))
}

// Delete removes the scenario and its stored images.
func (h *ScenarioHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	id := r.PathValue("id")

	ctx := r.Context()
	sc, err := h.repo.Get(ctx, id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.repo.Delete(ctx, id); err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.deleteBlobs(ctx, sc.Images)
	w.WriteHeader(http.StatusNoContent)
}

func (h *ScenarioHandler) Get(w http.ResponseWriter, r *http.Request) {
	sc, err := h.repo.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, scenarioToItem(sc))
}

func (h *ScenarioHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 0
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	scenarios, err := h.repo.List(r.Context(), strings.TrimSpace(q.Get("category")), limit, strings.TrimSpace(q.Get("after_id")))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	items := make([]scenarioItem, 0, len(scenarios))
	for _, sc := range scenarios {
		items = append(items, scenarioToItem(sc))
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *ScenarioHandler) deleteBlobs(ctx context.Context, urls []string) {
	for _, u := range urls {
		if u == "" {
			continue
		}
		if err := h.blobs.Delete(ctx, u); err != nil {
			h.logger.Warn("scenario image cleanup failed", "url", u, "err", err)
		}
	}
}

// droppedImages returns the URLs present before but absent after.
func droppedImages(before, after []string) []string {
	keep := make(map[string]struct{}, len(after))
	for _, u := range after {
		keep[u] = struct{}{}
	}
	var dropped []string
	for _, u := range before {
		if _, ok := keep[u]; !ok {
			dropped = append(dropped, u)
		}
	}
	return dropped
}
