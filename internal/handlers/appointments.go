package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"studiobook/internal/admission"
	"studiobook/internal/apperr"
	"studiobook/internal/model"
)

// AppointmentStore is the slice of the appointment repository the
// handler needs.
type AppointmentStore interface {
	Create(ctx context.Context, appt *model.Appointment) (string, error)
	Get(ctx context.Context, id string) (model.Appointment, error)
	CountRejectedSince(ctx context.Context, clientID string, since time.Time) (int, error)
	CountOnDay(ctx context.Context, clientID string, from, to time.Time) (int, error)
	Update(ctx context.Context, id string, fields map[string]any) (model.Appointment, model.Appointment, error)
	List(ctx context.Context, f model.AppointmentFilter) ([]model.Appointment, error)
}

// ScenarioGetter resolves a scenario for denormalization at booking time.
type ScenarioGetter interface {
	Get(ctx context.Context, id string) (model.Scenario, error)
}

// AdminChecker answers administrator membership. Failed lookups deny.
type AdminChecker interface {
	IsAdministrator(ctx context.Context, uid string) bool
}

type AppointmentHandler struct {
	repo      AppointmentStore
	scenarios ScenarioGetter
	authz     AdminChecker
	loc       *time.Location
	logger    *slog.Logger
	now       func() time.Time
}

func NewAppointmentHandler(repo AppointmentStore, scenarios ScenarioGetter, authz AdminChecker, loc *time.Location, logger *slog.Logger) *AppointmentHandler {
	return &AppointmentHandler{
		repo:      repo,
		scenarios: scenarios,
		authz:     authz,
		loc:       loc,
		logger:    logger,
		now:       time.Now,
	}
}

type createAppointmentRequest struct {
	ScenarioID string `json:"scenario_id"`
	StartsAt   string `json:"starts_at"`
}

type appointmentItem struct {
	AppointmentID    string `json:"appointment_id"`
	ClientID         string `json:"client_id"`
	ScenarioID       string `json:"scenario_id"`
	ScenarioName     string `json:"scenario_name"`
	ScenarioImage    string `json:"scenario_image,omitempty"`
	StartsAt         string `json:"starts_at"`
	RequestStatus    string `json:"request_status"`
	AttendanceStatus string `json:"attendance_status"`
	CreatedAt        string `json:"created_at"`
}

func appointmentToItem(a model.Appointment) appointmentItem {
	return appointmentItem{
		AppointmentID:    a.ID,
		ClientID:         a.ClientID,
		ScenarioID:       a.ScenarioID,
		ScenarioName:     a.ScenarioName,
		ScenarioImage:    a.ScenarioImage,
		StartsAt:         a.StartsAt.UTC().Format(time.RFC3339),
		RequestStatus:    a.RequestStatus,
		AttendanceStatus: a.AttendanceStatus,
		CreatedAt:        a.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// Create books an appointment for the signed-in client. The rejection
// history gate runs before the one-per-day gate; a client failing both
// sees the rejection-history error.
func (h *AppointmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, h.logger, apperr.New(apperr.Unauthenticated, "sign in required"))
		return
	}

	var req createAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, apperr.New(apperr.InvalidArgument, "invalid json body"))
		return
	}
	req.ScenarioID = strings.TrimSpace(req.ScenarioID)
	if req.ScenarioID == "" {
		writeError(w, h.logger, apperr.New(apperr.InvalidArgument, "scenario_id required"))
		return
	}
	startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		writeError(w, h.logger, apperr.New(apperr.InvalidArgument, "starts_at must be an RFC3339 timestamp"))
		return
	}

	ctx := r.Context()

	scenario, err := h.scenarios.Get(ctx, req.ScenarioID)
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			writeError(w, h.logger, apperr.New(apperr.InvalidArgument, "unknown scenario"))
			return
		}
		writeError(w, h.logger, err)
		return
	}

	rejected, err := h.repo.CountRejectedSince(ctx, identity.UID, admission.RejectionWindowStart(h.now()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := admission.CheckRejectionHistory(rejected); err != nil {
		writeError(w, h.logger, err)
		return
	}

	dayStart, dayEnd := admission.DayWindow(startsAt, h.loc)
	existing, err := h.repo.CountOnDay(ctx, identity.UID, dayStart, dayEnd)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := admission.CheckDayAvailability(existing); err != nil {
		writeError(w, h.logger, err)
		return
	}

	image := ""
	if len(scenario.Images) > 0 {
		image = scenario.Images[0]
	}
	id, err := h.repo.Create(ctx, &model.Appointment{
		ClientID:         identity.UID,
		ScenarioID:       scenario.ID,
		ScenarioName:     scenario.Name,
		ScenarioImage:    image,
		StartsAt:         startsAt,
		RequestStatus:    model.StatusWaiting,
		AttendanceStatus: model.StatusWaiting,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"appointment_id": id})
}

// Update applies a partial update. Administrators may change any field;
// the owning client may only set request_status to rejected.
func (h *AppointmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var fields map[string]any
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeError(w, h.logger, apperr.New(apperr.InvalidArgument, "invalid json body"))
		return
	}
	if raw, ok := fields[admission.FieldRequestStatus]; ok {
		if s, ok := raw.(string); !ok || !admission.ValidRequestStatus(s) {
			writeError(w, h.logger, apperr.New(apperr.InvalidArgument, "invalid request_status"))
			return
		}
	}

	ctx := r.Context()
	appt, err := h.repo.Get(ctx, id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	identity, _ := IdentityFrom(ctx)
	caller := admission.Caller{ID: identity.UID, Admin: h.authz.IsAdministrator(ctx, identity.UID)}
	if err := admission.CheckUpdate(caller, appt.ClientID, fields); err != nil {
		writeError(w, h.logger, err)
		return
	}

	_, after, err := h.repo.Update(ctx, id, fields)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, appointmentToItem(after))
}

// Get returns one appointment to its owner or an administrator.
func (h *AppointmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	appt, err := h.repo.Get(ctx, r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	identity, ok := IdentityFrom(ctx)
	if !ok {
		writeError(w, h.logger, apperr.New(apperr.Unauthenticated, "sign in required"))
		return
	}
	if identity.UID != appt.ClientID && !h.authz.IsAdministrator(ctx, identity.UID) {
		writeError(w, h.logger, apperr.New(apperr.PermissionDenied, "not allowed to view this appointment"))
		return
	}
	writeJSON(w, http.StatusOK, appointmentToItem(appt))
}

// List returns appointments. Administrators see everything and may
// filter by client; clients see only their own.
func (h *AppointmentHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := IdentityFrom(ctx)
	if !ok {
		writeError(w, h.logger, apperr.New(apperr.Unauthenticated, "sign in required"))
		return
	}

	q := r.URL.Query()
	filter := model.AppointmentFilter{
		RequestStatus: strings.TrimSpace(q.Get("request_status")),
		AfterID:       strings.TrimSpace(q.Get("after_id")),
	}
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			filter.Limit = n
		}
	}
	if raw := strings.TrimSpace(q.Get("from")); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, h.logger, apperr.New(apperr.InvalidArgument, "from must be an RFC3339 timestamp"))
			return
		}
		filter.From = t
	}
	if raw := strings.TrimSpace(q.Get("to")); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, h.logger, apperr.New(apperr.InvalidArgument, "to must be an RFC3339 timestamp"))
			return
		}
		filter.To = t
	}

	if h.authz.IsAdministrator(ctx, identity.UID) {
		filter.ClientID = strings.TrimSpace(q.Get("client_id"))
	} else {
		filter.ClientID = identity.UID
	}

	appts, err := h.repo.List(ctx, filter)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	items := make([]appointmentItem, 0, len(appts))
	for _, a := range appts {
		items = append(items, appointmentToItem(a))
	}
	writeJSON(w, http.StatusOK, items)
}
