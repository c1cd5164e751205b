// Package admission holds the booking admission and moderation policy:
// who may create an appointment, who may move it between states, and which
// state changes are worth telling the client about. It is pure decision
// logic; storage counts and writes happen at the call sites.
package admission

import (
	"time"

	"studiobook/internal/apperr"
	"studiobook/internal/model"
)

const (
	// FieldRequestStatus is the only appointment field a client may touch.
	FieldRequestStatus = "request_status"

	// RejectionLimit blocks clients who collected this many rejections
	// inside RejectionWindow.
	RejectionLimit  = 2
	RejectionWindow = 30 * 24 * time.Hour
)

// RejectionWindowStart returns the exclusive lower bound of the trailing
// rejection-history window.
func RejectionWindowStart(now time.Time) time.Time {
	return now.Add(-RejectionWindow)
}

// CheckRejectionHistory is the first admission gate. It must be evaluated
// before the one-per-day gate.
func CheckRejectionHistory(recentRejections int) error {
	if recentRejections >= RejectionLimit {
		return apperr.New(apperr.FailedPrecondition, "blocked due to frequent cancellations")
	}
	return nil
}

// DayWindow returns the half-open [start, end) window of the calendar day
// containing at, in the canonical booking time zone.
func DayWindow(at time.Time, loc *time.Location) (time.Time, time.Time) {
	local := at.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

// CheckDayAvailability is the second admission gate: at most one appointment
// per client per calendar day, counting every request status.
func CheckDayAvailability(existingOnDay int) error {
	if existingOnDay > 0 {
		return apperr.New(apperr.AlreadyExists, "an appointment already exists on that day")
	}
	return nil
}

// Caller identifies who is attempting a moderation action.
type Caller struct {
	ID    string
	Admin bool
}

// CheckUpdate enforces the moderation permission asymmetry: administrators
// may apply any non-empty field set; the owning client may apply exactly
// {request_status: "rejected"} and nothing else. Widening the client path
// would let clients accept their own bookings.
func CheckUpdate(caller Caller, ownerID string, fields map[string]any) error {
	if len(fields) == 0 {
		return apperr.New(apperr.InvalidArgument, "no fields to update")
	}
	if caller.Admin {
		return nil
	}
	if caller.ID == "" {
		return apperr.New(apperr.Unauthenticated, "sign in required")
	}
	if caller.ID != ownerID {
		return apperr.New(apperr.PermissionDenied, "not allowed to modify this appointment")
	}
	if len(fields) != 1 {
		return apperr.New(apperr.PermissionDenied, "clients may only cancel their own appointment")
	}
	v, ok := fields[FieldRequestStatus]
	if !ok {
		return apperr.New(apperr.PermissionDenied, "clients may only cancel their own appointment")
	}
	if s, ok := v.(string); !ok || s != model.StatusRejected {
		return apperr.New(apperr.PermissionDenied, "clients may only cancel their own appointment")
	}
	return nil
}

// ValidRequestStatus reports whether s is a known moderation state.
func ValidRequestStatus(s string) bool {
	switch s {
	case model.StatusWaiting, model.StatusAccepted, model.StatusRejected:
		return true
	}
	return false
}

// NotifiableTransition reports whether a request-status change should fan
// out a confirmation notification. Only arrivals at accepted or rejected
// qualify; an unchanged status never does.
func NotifiableTransition(before, after string) bool {
	if before == after {
		return false
	}
	return after == model.StatusAccepted || after == model.StatusRejected
}
