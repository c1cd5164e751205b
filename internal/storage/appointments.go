package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"studiobook/internal/apperr"
	"studiobook/internal/model"
	"studiobook/internal/outbox"
	"studiobook/libs/db"
)

type AppointmentRepository struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func NewAppointmentRepository(pool *db.Pool, outboxRepo *outbox.Repository) *AppointmentRepository {
	return &AppointmentRepository{pool: pool, outbox: outboxRepo}
}

const appointmentColumns = `
	id, client_id, scenario_id, COALESCE(scenario_name, ''), COALESCE(scenario_image, ''),
	starts_at, request_status, attendance_status, created_at, updated_at`

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var a model.Appointment
	err := row.Scan(
		&a.ID,
		&a.ClientID,
		&a.ScenarioID,
		&a.ScenarioName,
		&a.ScenarioImage,
		&a.StartsAt,
		&a.RequestStatus,
		&a.AttendanceStatus,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	return a, err
}

func (r *AppointmentRepository) Create(ctx context.Context, appt *model.Appointment) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO appointments
			(client_id, scenario_id, scenario_name, scenario_image, starts_at, request_status, attendance_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, appt.ClientID, appt.ScenarioID, appt.ScenarioName, appt.ScenarioImage,
		appt.StartsAt, appt.RequestStatus, appt.AttendanceStatus).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *AppointmentRepository) Get(ctx context.Context, id string) (model.Appointment, error) {
	appt, err := scanAppointment(r.pool.QueryRow(ctx, `
		SELECT`+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Appointment{}, apperr.New(apperr.NotFound, "appointment not found")
		}
		return model.Appointment{}, err
	}
	return appt, nil
}

// CountRejectedSince counts the client's rejected appointments created
// strictly after since. Feeds the rejection-history admission gate.
func (r *AppointmentRepository) CountRejectedSince(ctx context.Context, clientID string, since time.Time) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM appointments
		WHERE client_id = $1
			AND request_status = 'rejected'
			AND created_at > $2
	`, clientID, since).Scan(&n)
	return n, err
}

// CountOnDay counts the client's appointments of any status with a start
// time inside [from, to). Feeds the one-per-day admission gate.
func (r *AppointmentRepository) CountOnDay(ctx context.Context, clientID string, from, to time.Time) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM appointments
		WHERE client_id = $1
			AND starts_at >= $2
			AND starts_at < $3
	`, clientID, from, to).Scan(&n)
	return n, err
}

// Columns a partial update may touch, keyed by wire field name.
var appointmentUpdateColumns = map[string]string{
	"request_status":    "request_status",
	"attendance_status": "attendance_status",
	"starts_at":         "starts_at",
	"scenario_id":       "scenario_id",
	"scenario_name":     "scenario_name",
	"scenario_image":    "scenario_image",
}

// Update applies a partial update and refreshes updated_at. When the update
// changes request_status, an appointment-updated event is written to the
// outbox in the same transaction, so the change-triggered notification fires
// only after this commit. Returns the record before and after the update.
func (r *AppointmentRepository) Update(ctx context.Context, id string, fields map[string]any) (model.Appointment, model.Appointment, error) {
	sets := make([]string, 0, len(fields)+1)
	args := make([]any, 0, len(fields)+1)
	args = append(args, id)

	for field, raw := range fields {
		col, ok := appointmentUpdateColumns[field]
		if !ok {
			return model.Appointment{}, model.Appointment{}, apperr.New(apperr.InvalidArgument, fmt.Sprintf("unknown field %q", field))
		}
		value, err := normalizeAppointmentField(field, raw)
		if err != nil {
			return model.Appointment{}, model.Appointment{}, err
		}
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if len(sets) == 0 {
		return model.Appointment{}, model.Appointment{}, apperr.New(apperr.InvalidArgument, "no fields to update")
	}
	sets = append(sets, "updated_at = now()")

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Appointment{}, model.Appointment{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	before, err := scanAppointment(tx.QueryRow(ctx, `
		SELECT`+appointmentColumns+`
		FROM appointments
		WHERE id = $1
		FOR UPDATE
	`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Appointment{}, model.Appointment{}, apperr.New(apperr.NotFound, "appointment not found")
		}
		return model.Appointment{}, model.Appointment{}, err
	}

	after, err := scanAppointment(tx.QueryRow(ctx, `
		UPDATE appointments
		SET `+strings.Join(sets, ", ")+`
		WHERE id = $1
		RETURNING`+appointmentColumns,
		args...))
	if err != nil {
		return model.Appointment{}, model.Appointment{}, err
	}

	if before.RequestStatus != after.RequestStatus {
		payload, err := json.Marshal(map[string]any{
			"appointment_id": after.ID,
			"client_id":      after.ClientID,
			"scenario_name":  after.ScenarioName,
			"scenario_image": after.ScenarioImage,
			"old_status":     before.RequestStatus,
			"new_status":     after.RequestStatus,
			"starts_at":      after.StartsAt.UTC().Format(time.RFC3339),
		})
		if err != nil {
			return model.Appointment{}, model.Appointment{}, err
		}
		if err := r.outbox.Insert(ctx, tx, outbox.Event{
			AggregateType: "appointment",
			AggregateID:   after.ID,
			EventType:     outbox.TopicAppointmentUpdated,
			Payload:       payload,
		}); err != nil {
			return model.Appointment{}, model.Appointment{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Appointment{}, model.Appointment{}, err
	}
	return before, after, nil
}

func normalizeAppointmentField(field string, raw any) (any, error) {
	switch field {
	case "starts_at":
		s, ok := raw.(string)
		if !ok {
			return nil, apperr.New(apperr.InvalidArgument, "starts_at must be an RFC3339 timestamp")
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, apperr.New(apperr.InvalidArgument, "starts_at must be an RFC3339 timestamp")
		}
		return t, nil
	case "request_status", "attendance_status", "scenario_id", "scenario_name", "scenario_image":
		s, ok := raw.(string)
		if !ok {
			return nil, apperr.New(apperr.InvalidArgument, fmt.Sprintf("%s must be a string", field))
		}
		return s, nil
	default:
		return raw, nil
	}
}

func (r *AppointmentRepository) List(ctx context.Context, f model.AppointmentFilter) ([]model.Appointment, error) {
	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	where := []string{"1=1"}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.ClientID != "" {
		where = append(where, "client_id = "+arg(f.ClientID))
	}
	if f.RequestStatus != "" {
		where = append(where, "request_status = "+arg(f.RequestStatus))
	}
	if !f.From.IsZero() {
		where = append(where, "starts_at >= "+arg(f.From))
	}
	if !f.To.IsZero() {
		where = append(where, "starts_at < "+arg(f.To))
	}
	if f.AfterID != "" {
		where = append(where, "(created_at, id) < (SELECT created_at, id FROM appointments WHERE id = "+arg(f.AfterID)+")")
	}

	rows, err := r.pool.Query(ctx, `
		SELECT`+appointmentColumns+`
		FROM appointments
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY created_at DESC, id DESC
		LIMIT `+arg(limit),
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appts []model.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, appt)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return appts, nil
}

// ListAcceptedBetween returns accepted appointments starting inside
// [from, to), oldest first. Used by the reminder sweep.
func (r *AppointmentRepository) ListAcceptedBetween(ctx context.Context, from, to time.Time) ([]model.Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+appointmentColumns+`
		FROM appointments
		WHERE request_status = 'accepted'
			AND starts_at >= $1
			AND starts_at < $2
		ORDER BY starts_at ASC
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appts []model.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, appt)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return appts, nil
}
