package sweep

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"studiobook/internal/admission"
	"studiobook/internal/model"
)

const CategoryReminder = "reminder"

// horizonDays is how far ahead the sweep looks, counting today.
const horizonDays = 3

// AppointmentSource lists accepted appointments in a time window.
type AppointmentSource interface {
	ListAcceptedBetween(ctx context.Context, from, to time.Time) ([]model.Appointment, error)
}

// TokenSource resolves a client's active push tokens.
type TokenSource interface {
	ActiveTokensForUser(ctx context.Context, uid string) ([]string, error)
}

// Notifier delivers a reminder.
type Notifier interface {
	Dispatch(ctx context.Context, n model.Notification)
}

// Sweeper sends upcoming-session reminders. It scans accepted
// appointments from the start of today through two days ahead, and
// skips clients without registered devices entirely: no record, no
// push. Reminders are not deduplicated across runs.
type Sweeper struct {
	appointments AppointmentSource
	tokens       TokenSource
	notifier     Notifier
	loc          *time.Location
	logger       *slog.Logger
}

func New(appointments AppointmentSource, tokens TokenSource, notifier Notifier, loc *time.Location, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		appointments: appointments,
		tokens:       tokens,
		notifier:     notifier,
		loc:          loc,
		logger:       logger,
	}
}

func (s *Sweeper) Run(ctx context.Context) error {
	start, _ := admission.DayWindow(time.Now(), s.loc)
	end := start.AddDate(0, 0, horizonDays)

	appts, err := s.appointments.ListAcceptedBetween(ctx, start, end)
	if err != nil {
		return fmt.Errorf("list accepted appointments: %w", err)
	}
	s.logger.Info("reminder sweep", "from", start, "to", end, "appointments", len(appts))

	var wg sync.WaitGroup
	for _, appt := range appts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.remind(ctx, appt)
		}()
	}
	wg.Wait()
	return nil
}

func (s *Sweeper) remind(ctx context.Context, appt model.Appointment) {
	tokens, err := s.tokens.ActiveTokensForUser(ctx, appt.ClientID)
	if err != nil {
		s.logger.Error("reminder token lookup failed",
			"appointment_id", appt.ID, "client_id", appt.ClientID, "error", err)
		return
	}
	if len(tokens) == 0 {
		return
	}
	s.notifier.Dispatch(ctx, model.Notification{
		Recipient: appt.ClientID,
		Title:     "Upcoming session",
		Category:  CategoryReminder,
		Body: fmt.Sprintf("Your %s session is on %s.",
			appt.ScenarioName, appt.StartsAt.In(s.loc).Format("January 2 at 15:04")),
		Image: appt.ScenarioImage,
	})
}
