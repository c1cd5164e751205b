package sweep

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"studiobook/internal/model"
)

type fakeAppointments struct {
	appts []model.Appointment
	from  time.Time
	to    time.Time
	err   error
}

func (f *fakeAppointments) ListAcceptedBetween(_ context.Context, from, to time.Time) ([]model.Appointment, error) {
	f.from, f.to = from, to
	return f.appts, f.err
}

type fakeTokenSource struct {
	mu     sync.Mutex
	tokens map[string][]string
	err    error
}

func (f *fakeTokenSource) ActiveTokensForUser(_ context.Context, uid string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.tokens[uid], nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []model.Notification
}

func (f *fakeNotifier) Dispatch(_ context.Context, n model.Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, n)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestRunWindowSpansTodayThroughTwoDaysAhead(t *testing.T) {
	appts := &fakeAppointments{}
	s := New(appts, &fakeTokenSource{}, &fakeNotifier{}, time.UTC, testLogger())

	if err := s.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	now := time.Now().UTC()
	wantFrom := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if !appts.from.Equal(wantFrom) {
		t.Errorf("from = %v, want %v", appts.from, wantFrom)
	}
	if !appts.to.Equal(wantFrom.AddDate(0, 0, 3)) {
		t.Errorf("to = %v, want %v", appts.to, wantFrom.AddDate(0, 0, 3))
	}
}

func TestRunSkipsClientsWithoutTokens(t *testing.T) {
	appts := &fakeAppointments{appts: []model.Appointment{
		{ID: "a1", ClientID: "with-device", ScenarioName: "Noir", StartsAt: time.Now().Add(24 * time.Hour)},
		{ID: "a2", ClientID: "no-device", ScenarioName: "Vintage", StartsAt: time.Now().Add(24 * time.Hour)},
	}}
	tokens := &fakeTokenSource{tokens: map[string][]string{"with-device": {"tok-1"}}}
	notifier := &fakeNotifier{}
	s := New(appts, tokens, notifier, time.UTC, testLogger())

	if err := s.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	if len(notifier.sent) != 1 {
		t.Fatalf("expected 1 reminder, got %d", len(notifier.sent))
	}
	if notifier.sent[0].Recipient != "with-device" {
		t.Errorf("recipient = %q", notifier.sent[0].Recipient)
	}
	if notifier.sent[0].Category != CategoryReminder {
		t.Errorf("category = %q", notifier.sent[0].Category)
	}
}

func TestRunPropagatesListError(t *testing.T) {
	appts := &fakeAppointments{err: errors.New("db down")}
	s := New(appts, &fakeTokenSource{}, &fakeNotifier{}, time.UTC, testLogger())

	if err := s.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestRunSwallowsTokenLookupFailures(t *testing.T) {
	appts := &fakeAppointments{appts: []model.Appointment{
		{ID: "a1", ClientID: "client-1", StartsAt: time.Now()},
	}}
	tokens := &fakeTokenSource{err: errors.New("lookup failed")}
	notifier := &fakeNotifier{}
	s := New(appts, tokens, notifier, time.UTC, testLogger())

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("per-appointment failures should not fail the sweep: %v", err)
	}
	if len(notifier.sent) != 0 {
		t.Fatalf("expected no reminders, got %d", len(notifier.sent))
	}
}
