package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"studiobook/internal/apperr"
	"studiobook/internal/model"
	"studiobook/internal/storage"
)

type fakeScenarioStore struct {
	scenarios map[string]model.Scenario
	patched   *storage.ScenarioPatch
	deleted   []string
}

func (f *fakeScenarioStore) Create(_ context.Context, sc *model.Scenario) (string, error) {
	return "sc-new", nil
}

func (f *fakeScenarioStore) Get(_ context.Context, id string) (model.Scenario, error) {
	sc, ok := f.scenarios[id]
	if !ok {
		return model.Scenario{}, apperr.New(apperr.NotFound, "scenario not found")
	}
	return sc, nil
}

func (f *fakeScenarioStore) Update(_ context.Context, id string, patch storage.ScenarioPatch) (model.Scenario, error) {
	f.patched = &patch
	sc, ok := f.scenarios[id]
	if !ok {
		return model.Scenario{}, apperr.New(apperr.NotFound, "scenario not found")
	}
	if patch.Images != nil {
		sc.Images = *patch.Images
	}
	return sc, nil
}

func (f *fakeScenarioStore) Delete(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeScenarioStore) List(context.Context, string, int, string) ([]model.Scenario, error) {
	return nil, nil
}

type fakeDeleter struct {
	mu   sync.Mutex
	urls []string
}

func (f *fakeDeleter) Delete(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.urls = append(f.urls, url)
	return nil
}

func newScenarioTestHandler(store *fakeScenarioStore, deleter *fakeDeleter) *ScenarioHandler {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return NewScenarioHandler(store, &fakeAdmin{admins: map[string]bool{"admin-1": true}}, deleter, logger)
}

func TestScenarioCreateRequiresAdmin(t *testing.T) {
	h := newScenarioTestHandler(&fakeScenarioStore{}, &fakeDeleter{})

	req := withIdentity(httptest.NewRequest(http.MethodPost, "/api/v1/scenarios", strings.NewReader(`{"name":"Noir"}`)), "client-1")
	rec := httptest.NewRecorder()
	h.Create(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("non-admin status = %d, want 403", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/scenarios", strings.NewReader(`{"name":"Noir"}`))
	rec = httptest.NewRecorder()
	h.Create(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous status = %d, want 401", rec.Code)
	}
}

func TestScenarioUpdateCleansDroppedImages(t *testing.T) {
	store := &fakeScenarioStore{scenarios: map[string]model.Scenario{
		"sc-1": {ID: "sc-1", Name: "Noir", Images: []string{"https://img/a.jpg", "https://img/b.jpg"}},
	}}
	deleter := &fakeDeleter{}
	h := newScenarioTestHandler(store, deleter)

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/scenarios/sc-1",
		strings.NewReader(`{"images":["https://img/a.jpg"]}`))
	req.SetPathValue("id", "sc-1")
	req = withIdentity(req, "admin-1")
	rec := httptest.NewRecorder()

	h.Update(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if len(deleter.urls) != 1 || deleter.urls[0] != "https://img/b.jpg" {
		t.Errorf("deleted = %v, want only the dropped image", deleter.urls)
	}
}

func TestScenarioDeleteCleansAllImages(t *testing.T) {
	store := &fakeScenarioStore{scenarios: map[string]model.Scenario{
		"sc-1": {ID: "sc-1", Name: "Noir", Images: []string{"https://img/a.jpg", "https://img/b.jpg"}},
	}}
	deleter := &fakeDeleter{}
	h := newScenarioTestHandler(store, deleter)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/scenarios/sc-1", nil)
	req.SetPathValue("id", "sc-1")
	req = withIdentity(req, "admin-1")
	rec := httptest.NewRecorder()

	h.Delete(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(store.deleted) != 1 {
		t.Fatalf("deleted rows = %v", store.deleted)
	}
	if len(deleter.urls) != 2 {
		t.Errorf("blob deletes = %v, want both images", deleter.urls)
	}
}
