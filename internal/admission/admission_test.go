package admission

import (
	"testing"
	"time"

	"studiobook/internal/apperr"
	"studiobook/internal/model"
)

func TestCheckRejectionHistory(t *testing.T) {
	cases := []struct {
		rejections int
		blocked    bool
	}{
		{0, false},
		{1, false},
		{2, true},
		{5, true},
	}
	for _, tc := range cases {
		err := CheckRejectionHistory(tc.rejections)
		if tc.blocked && !apperr.Is(err, apperr.FailedPrecondition) {
			t.Fatalf("rejections=%d: expected FailedPrecondition, got %v", tc.rejections, err)
		}
		if !tc.blocked && err != nil {
			t.Fatalf("rejections=%d: expected pass, got %v", tc.rejections, err)
		}
	}
}

func TestRejectionWindowStart(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	start := RejectionWindowStart(now)
	if !start.Equal(now.AddDate(0, 0, -30)) {
		t.Fatalf("expected 30 days before now, got %s", start)
	}
}

func TestDayWindow(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	// 2024-06-01 18:00 UTC is 2024-06-02 03:00 KST; the window must be the
	// local calendar day, not the UTC one.
	at := time.Date(2024, 6, 1, 18, 0, 0, 0, time.UTC)
	start, end := DayWindow(at, loc)

	wantStart := time.Date(2024, 6, 2, 0, 0, 0, 0, loc)
	if !start.Equal(wantStart) {
		t.Fatalf("expected start %s, got %s", wantStart, start)
	}
	if !end.Equal(wantStart.AddDate(0, 0, 1)) {
		t.Fatalf("expected end %s, got %s", wantStart.AddDate(0, 0, 1), end)
	}
}

func TestCheckDayAvailability(t *testing.T) {
	if err := CheckDayAvailability(0); err != nil {
		t.Fatalf("empty day should pass: %v", err)
	}
	if err := CheckDayAvailability(1); !apperr.Is(err, apperr.AlreadyExists) {
		t.Fatalf("occupied day should fail with AlreadyExists, got %v", err)
	}
}

func TestCheckUpdate_AdminAnyFields(t *testing.T) {
	caller := Caller{ID: "admin-1", Admin: true}
	fields := map[string]any{
		"request_status":    model.StatusAccepted,
		"attendance_status": "arrived",
	}
	if err := CheckUpdate(caller, "client-1", fields); err != nil {
		t.Fatalf("admin update should pass: %v", err)
	}
}

func TestCheckUpdate_EmptyFields(t *testing.T) {
	caller := Caller{ID: "admin-1", Admin: true}
	if err := CheckUpdate(caller, "client-1", nil); !apperr.Is(err, apperr.InvalidArgument) {
		t.Fatalf("expected InvalidArgument for empty fields, got %v", err)
	}
}

func TestCheckUpdate_NonOwnerDenied(t *testing.T) {
	caller := Caller{ID: "client-2"}
	fieldSets := []map[string]any{
		{"request_status": model.StatusRejected},
		{"request_status": model.StatusAccepted},
		{"attendance_status": "arrived"},
	}
	for _, fields := range fieldSets {
		if err := CheckUpdate(caller, "client-1", fields); !apperr.Is(err, apperr.PermissionDenied) {
			t.Fatalf("fields %v: expected PermissionDenied, got %v", fields, err)
		}
	}
}

func TestCheckUpdate_OwnerRejectOnly(t *testing.T) {
	caller := Caller{ID: "client-1"}

	ok := map[string]any{"request_status": model.StatusRejected}
	if err := CheckUpdate(caller, "client-1", ok); err != nil {
		t.Fatalf("owner self-rejection should pass: %v", err)
	}

	denied := []map[string]any{
		{"request_status": model.StatusAccepted},
		{"request_status": model.StatusWaiting},
		{"attendance_status": "arrived"},
		{"request_status": model.StatusRejected, "attendance_status": "arrived"},
		{"request_status": 42},
	}
	for _, fields := range denied {
		if err := CheckUpdate(caller, "client-1", fields); !apperr.Is(err, apperr.PermissionDenied) {
			t.Fatalf("fields %v: expected PermissionDenied, got %v", fields, err)
		}
	}
}

func TestCheckUpdate_AnonymousUnauthenticated(t *testing.T) {
	err := CheckUpdate(Caller{}, "client-1", map[string]any{"request_status": model.StatusRejected})
	if !apperr.Is(err, apperr.Unauthenticated) {
		t.Fatalf("expected Unauthenticated, got %v", err)
	}
}

func TestNotifiableTransition(t *testing.T) {
	cases := []struct {
		before, after string
		want          bool
	}{
		{model.StatusWaiting, model.StatusAccepted, true},
		{model.StatusWaiting, model.StatusRejected, true},
		{model.StatusWaiting, model.StatusWaiting, false},
		{model.StatusAccepted, model.StatusAccepted, false},
		{model.StatusRejected, model.StatusWaiting, false},
		{model.StatusAccepted, model.StatusRejected, true},
	}
	for _, tc := range cases {
		if got := NotifiableTransition(tc.before, tc.after); got != tc.want {
			t.Fatalf("%s -> %s: expected %v, got %v", tc.before, tc.after, tc.want, got)
		}
	}
}

func TestValidRequestStatus(t *testing.T) {
	for _, s := range []string{model.StatusWaiting, model.StatusAccepted, model.StatusRejected} {
		if !ValidRequestStatus(s) {
			t.Fatalf("%s should be valid", s)
		}
	}
	if ValidRequestStatus("cancelled") {
		t.Fatal("cancelled should not be a valid request status")
	}
}
