package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"studiobook/internal/apperr"
	"studiobook/internal/model"
)

type fakeAppointmentStore struct {
	appts         map[string]model.Appointment
	rejectedCount int
	onDayCount    int
	created       []model.Appointment
	updatedFields map[string]any
	listFilter    model.AppointmentFilter
}

func (f *fakeAppointmentStore) Create(_ context.Context, appt *model.Appointment) (string, error) {
	f.created = append(f.created, *appt)
	return "appt-new", nil
}

func (f *fakeAppointmentStore) Get(_ context.Context, id string) (model.Appointment, error) {
	appt, ok := f.appts[id]
	if !ok {
		return model.Appointment{}, apperr.New(apperr.NotFound, "appointment not found")
	}
	return appt, nil
}

func (f *fakeAppointmentStore) CountRejectedSince(context.Context, string, time.Time) (int, error) {
	return f.rejectedCount, nil
}

func (f *fakeAppointmentStore) CountOnDay(context.Context, string, time.Time, time.Time) (int, error) {
	return f.onDayCount, nil
}

func (f *fakeAppointmentStore) Update(_ context.Context, id string, fields map[string]any) (model.Appointment, model.Appointment, error) {
	f.updatedFields = fields
	before, ok := f.appts[id]
	if !ok {
		return model.Appointment{}, model.Appointment{}, apperr.New(apperr.NotFound, "appointment not found")
	}
	after := before
	if s, ok := fields["request_status"].(string); ok {
		after.RequestStatus = s
	}
	return before, after, nil
}

func (f *fakeAppointmentStore) List(_ context.Context, filter model.AppointmentFilter) ([]model.Appointment, error) {
	f.listFilter = filter
	return nil, nil
}

type fakeScenarioGetter struct {
	scenario model.Scenario
	err      error
}

func (f *fakeScenarioGetter) Get(context.Context, string) (model.Scenario, error) {
	return f.scenario, f.err
}

type fakeAdmin struct {
	admins map[string]bool
}

func (f *fakeAdmin) IsAdministrator(_ context.Context, uid string) bool {
	return f.admins[uid]
}

func newTestHandler(store *fakeAppointmentStore, admins map[string]bool) *AppointmentHandler {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return NewAppointmentHandler(
		store,
		&fakeScenarioGetter{scenario: model.Scenario{ID: "sc-1", Name: "Vintage", Images: []string{"https://img/v.jpg"}}},
		&fakeAdmin{admins: admins},
		time.UTC,
		logger,
	)
}

func withIdentity(r *http.Request, uid string) *http.Request {
	if uid == "" {
		return r
	}
	ctx := context.WithValue(r.Context(), identityKey, Identity{UID: uid})
	return r.WithContext(ctx)
}

func TestCreateRequiresIdentity(t *testing.T) {
	h := newTestHandler(&fakeAppointmentStore{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/appointments", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()

	h.Create(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestCreateRejectionHistoryBlocks(t *testing.T) {
	store := &fakeAppointmentStore{rejectedCount: 2}
	h := newTestHandler(store, nil)
	body := `{"scenario_id":"sc-1","starts_at":"2026-09-14T10:00:00Z"}`
	req := withIdentity(httptest.NewRequest(http.MethodPost, "/api/v1/appointments", strings.NewReader(body)), "client-1")
	rec := httptest.NewRecorder()

	h.Create(rec, req)

	if rec.Code != http.StatusPreconditionFailed {
		t.Fatalf("status = %d, want 412", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "frequent cancellations") {
		t.Errorf("body = %s", rec.Body.String())
	}
	if len(store.created) != 0 {
		t.Errorf("blocked client still created an appointment")
	}
}

func TestCreateOnePerDayBlocks(t *testing.T) {
	store := &fakeAppointmentStore{onDayCount: 1}
	h := newTestHandler(store, nil)
	body := `{"scenario_id":"sc-1","starts_at":"2026-09-14T10:00:00Z"}`
	req := withIdentity(httptest.NewRequest(http.MethodPost, "/api/v1/appointments", strings.NewReader(body)), "client-1")
	rec := httptest.NewRecorder()

	h.Create(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestCreateRejectionGateChecksFirst(t *testing.T) {
	// Both gates would fire; the rejection-history error must win.
	store := &fakeAppointmentStore{rejectedCount: 3, onDayCount: 1}
	h := newTestHandler(store, nil)
	body := `{"scenario_id":"sc-1","starts_at":"2026-09-14T10:00:00Z"}`
	req := withIdentity(httptest.NewRequest(http.MethodPost, "/api/v1/appointments", strings.NewReader(body)), "client-1")
	rec := httptest.NewRecorder()

	h.Create(rec, req)

	if rec.Code != http.StatusPreconditionFailed {
		t.Fatalf("status = %d, want 412", rec.Code)
	}
}

func TestCreateSucceeds(t *testing.T) {
	store := &fakeAppointmentStore{}
	h := newTestHandler(store, nil)
	body := `{"scenario_id":"sc-1","starts_at":"2026-09-14T10:00:00Z"}`
	req := withIdentity(httptest.NewRequest(http.MethodPost, "/api/v1/appointments", strings.NewReader(body)), "client-1")
	rec := httptest.NewRecorder()

	h.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if len(store.created) != 1 {
		t.Fatalf("created = %d, want 1", len(store.created))
	}
	appt := store.created[0]
	if appt.RequestStatus != model.StatusWaiting || appt.AttendanceStatus != model.StatusWaiting {
		t.Errorf("new appointment not in waiting state: %+v", appt)
	}
	if appt.ScenarioName != "Vintage" || appt.ScenarioImage != "https://img/v.jpg" {
		t.Errorf("scenario not denormalized: %+v", appt)
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["appointment_id"] != "appt-new" {
		t.Errorf("appointment_id = %q", resp["appointment_id"])
	}
}

func TestUpdatePermissions(t *testing.T) {
	const owner = "client-1"
	const adminUID = "admin-1"

	tests := []struct {
		name       string
		caller     string
		body       string
		wantStatus int
	}{
		{"admin may change any fields", adminUID, `{"request_status":"accepted","attendance_status":"accepted"}`, http.StatusOK},
		{"owner may cancel", owner, `{"request_status":"rejected"}`, http.StatusOK},
		{"owner may not accept", owner, `{"request_status":"accepted"}`, http.StatusForbidden},
		{"owner may not add extra fields", owner, `{"request_status":"rejected","attendance_status":"accepted"}`, http.StatusForbidden},
		{"stranger may not cancel", "client-2", `{"request_status":"rejected"}`, http.StatusForbidden},
		{"anonymous may not update", "", `{"request_status":"rejected"}`, http.StatusUnauthorized},
		{"empty field set is invalid", adminUID, `{}`, http.StatusBadRequest},
		{"unknown status value is invalid", adminUID, `{"request_status":"maybe"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeAppointmentStore{appts: map[string]model.Appointment{
				"appt-1": {ID: "appt-1", ClientID: owner, RequestStatus: model.StatusWaiting},
			}}
			h := newTestHandler(store, map[string]bool{adminUID: true})

			req := httptest.NewRequest(http.MethodPatch, "/api/v1/appointments/appt-1", strings.NewReader(tt.body))
			req.SetPathValue("id", "appt-1")
			req = withIdentity(req, tt.caller)
			rec := httptest.NewRecorder()

			h.Update(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestUpdateMissingAppointment(t *testing.T) {
	store := &fakeAppointmentStore{appts: map[string]model.Appointment{}}
	h := newTestHandler(store, nil)

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/appointments/nope", strings.NewReader(`{"request_status":"rejected"}`))
	req.SetPathValue("id", "nope")
	req = withIdentity(req, "client-1")
	rec := httptest.NewRecorder()

	h.Update(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestListScopesNonAdminsToOwnAppointments(t *testing.T) {
	store := &fakeAppointmentStore{}
	h := newTestHandler(store, map[string]bool{"admin-1": true})

	req := withIdentity(httptest.NewRequest(http.MethodGet, "/api/v1/appointments?client_id=someone-else", nil), "client-1")
	rec := httptest.NewRecorder()
	h.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if store.listFilter.ClientID != "client-1" {
		t.Errorf("client filter = %q, want caller's own id", store.listFilter.ClientID)
	}

	req = withIdentity(httptest.NewRequest(http.MethodGet, "/api/v1/appointments?client_id=client-7", nil), "admin-1")
	rec = httptest.NewRecorder()
	h.List(rec, req)

	if store.listFilter.ClientID != "client-7" {
		t.Errorf("admin client filter = %q, want client-7", store.listFilter.ClientID)
	}
}
