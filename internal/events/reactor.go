package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"studiobook/internal/admission"
	"studiobook/internal/model"
)

const (
	CategoryConfirmation = "confirmation"
	CategoryAnnouncement = "announcement"
	CategoryPhotos       = "photos"
)

// Notifier fans a decided notification out to the log and push devices.
type Notifier interface {
	Dispatch(ctx context.Context, n model.Notification)
	Broadcast(ctx context.Context, n model.Notification)
}

// Reactor turns domain events into client notifications. Malformed
// payloads are logged and dropped rather than retried; they never
// become valid on redelivery.
type Reactor struct {
	notifier Notifier
	logger   *slog.Logger
}

func NewReactor(notifier Notifier, logger *slog.Logger) *Reactor {
	return &Reactor{notifier: notifier, logger: logger}
}

// AppointmentNotification decides whether a status change warrants a
// push. Only transitions into accepted or rejected do.
func AppointmentNotification(evt AppointmentUpdated) (model.Notification, bool) {
	if !admission.NotifiableTransition(evt.OldStatus, evt.NewStatus) {
		return model.Notification{}, false
	}
	n := model.Notification{
		Recipient: evt.ClientID,
		Category:  CategoryConfirmation,
		Image:     evt.ScenarioImage,
	}
	switch evt.NewStatus {
	case model.StatusAccepted:
		n.Title = "Booking confirmed"
		n.Body = fmt.Sprintf("Your %s session on %s is confirmed.",
			evt.ScenarioName, evt.StartsAt.Format("January 2"))
	case model.StatusRejected:
		n.Title = "Booking declined"
		n.Body = fmt.Sprintf("Your %s session on %s was declined.",
			evt.ScenarioName, evt.StartsAt.Format("January 2"))
	}
	return n, true
}

// ScenarioNotification builds the new-scenario broadcast.
func ScenarioNotification(evt ScenarioCreated) model.Notification {
	return model.Notification{
		Title:    "New scenario available",
		Category: CategoryAnnouncement,
		Body:     fmt.Sprintf("Check out our new %s scenario: %s.", evt.Category, evt.Name),
		Image:    evt.Image,
	}
}

// PhotoNotification builds the photos-ready message.
func PhotoNotification(evt PhotoRequestDelivered) model.Notification {
	return model.Notification{
		Recipient: evt.ClientID,
		Title:     "Your photos are ready",
		Category:  CategoryPhotos,
		Body:      "Your photos have been delivered. Open the app to download them.",
	}
}

func (r *Reactor) HandleAppointmentUpdated(ctx context.Context, msg kafka.Message) error {
	var evt AppointmentUpdated
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		r.logger.Error("malformed appointment event dropped", "error", err)
		return nil
	}
	n, ok := AppointmentNotification(evt)
	if !ok {
		return nil
	}
	r.notifier.Dispatch(ctx, n)
	return nil
}

func (r *Reactor) HandleScenarioCreated(ctx context.Context, msg kafka.Message) error {
	var evt ScenarioCreated
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		r.logger.Error("malformed scenario event dropped", "error", err)
		return nil
	}
	r.notifier.Broadcast(ctx, ScenarioNotification(evt))
	return nil
}

func (r *Reactor) HandlePhotoRequestDelivered(ctx context.Context, msg kafka.Message) error {
	var evt PhotoRequestDelivered
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		r.logger.Error("malformed photo event dropped", "error", err)
		return nil
	}
	r.notifier.Dispatch(ctx, PhotoNotification(evt))
	return nil
}
