package events

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"studiobook/internal/model"
)

type fakeNotifier struct {
	dispatched []model.Notification
	broadcast  []model.Notification
}

func (f *fakeNotifier) Dispatch(_ context.Context, n model.Notification) {
	f.dispatched = append(f.dispatched, n)
}

func (f *fakeNotifier) Broadcast(_ context.Context, n model.Notification) {
	f.broadcast = append(f.broadcast, n)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestAppointmentNotification(t *testing.T) {
	starts := time.Date(2026, 9, 14, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		old, new  string
		wantPush  bool
		wantTitle string
	}{
		{"accepted", model.StatusWaiting, model.StatusAccepted, true, "Booking confirmed"},
		{"rejected", model.StatusWaiting, model.StatusRejected, true, "Booking declined"},
		{"back to waiting", model.StatusAccepted, model.StatusWaiting, false, ""},
		{"no change", model.StatusAccepted, model.StatusAccepted, false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, ok := AppointmentNotification(AppointmentUpdated{
				ClientID:     "client-1",
				ScenarioName: "Vintage Portrait",
				OldStatus:    tt.old,
				NewStatus:    tt.new,
				StartsAt:     starts,
			})
			if ok != tt.wantPush {
				t.Fatalf("push = %v, want %v", ok, tt.wantPush)
			}
			if !ok {
				return
			}
			if n.Title != tt.wantTitle {
				t.Errorf("title = %q, want %q", n.Title, tt.wantTitle)
			}
			if n.Recipient != "client-1" {
				t.Errorf("recipient = %q", n.Recipient)
			}
			if n.Category != CategoryConfirmation {
				t.Errorf("category = %q", n.Category)
			}
		})
	}
}

func TestHandleAppointmentUpdatedDropsMalformedPayload(t *testing.T) {
	notifier := &fakeNotifier{}
	r := NewReactor(notifier, testLogger())

	err := r.HandleAppointmentUpdated(context.Background(), kafka.Message{Value: []byte("{not json")})
	if err != nil {
		t.Fatalf("malformed payload should not error: %v", err)
	}
	if len(notifier.dispatched) != 0 {
		t.Fatalf("expected no dispatch, got %d", len(notifier.dispatched))
	}
}

func TestHandleScenarioCreatedBroadcasts(t *testing.T) {
	notifier := &fakeNotifier{}
	r := NewReactor(notifier, testLogger())

	err := r.HandleScenarioCreated(context.Background(), kafka.Message{
		Value: []byte(`{"scenario_id":"s1","name":"Noir","category":"studio","image":"https://img/noir.jpg"}`),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(notifier.broadcast) != 1 {
		t.Fatalf("expected 1 broadcast, got %d", len(notifier.broadcast))
	}
	if notifier.broadcast[0].Category != CategoryAnnouncement {
		t.Errorf("category = %q", notifier.broadcast[0].Category)
	}
	if notifier.broadcast[0].Image != "https://img/noir.jpg" {
		t.Errorf("image = %q", notifier.broadcast[0].Image)
	}
}

func TestHandlePhotoRequestDelivered(t *testing.T) {
	notifier := &fakeNotifier{}
	r := NewReactor(notifier, testLogger())

	err := r.HandlePhotoRequestDelivered(context.Background(), kafka.Message{
		Value: []byte(`{"request_id":"p1","client_id":"client-2","download_url":"https://dl/p1.zip"}`),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(notifier.dispatched) != 1 {
		t.Fatalf("expected 1 dispatch, got %d", len(notifier.dispatched))
	}
	if notifier.dispatched[0].Recipient != "client-2" {
		t.Errorf("recipient = %q", notifier.dispatched[0].Recipient)
	}
	if notifier.dispatched[0].Category != CategoryPhotos {
		t.Errorf("category = %q", notifier.dispatched[0].Category)
	}
}
