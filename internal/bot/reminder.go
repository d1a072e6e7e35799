package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/habitbot/habitbot/internal/domain"
	"github.com/habitbot/habitbot/internal/observability"
	"github.com/habitbot/habitbot/internal/repository"
)

// Reminder nudges users once a day about tracked habits they have not logged
// yet. It queries storage directly rather than going through the API: it runs
// in the bot process and acts on behalf of all users at once.
type Reminder struct {
	habits    repository.HabitRepository
	transport Transport
	logger    *slog.Logger
	hourUTC   int
	minuteUTC int
	now       func() time.Time
}

func NewReminder(habits repository.HabitRepository, transport Transport, logger *slog.Logger, hourUTC, minuteUTC int) *Reminder {
	return &Reminder{
		habits:    habits,
		transport: transport,
		logger:    logger,
		hourUTC:   hourUTC,
		minuteUTC: minuteUTC,
		now:       time.Now,
	}
}

// Run fires the reminder sweep at the configured UTC time every day until
// the context is cancelled.
func (r *Reminder) Run(ctx context.Context) error {
	for {
		wait := time.Until(r.nextFire())
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			r.sweep(ctx)
		}
	}
}

func (r *Reminder) nextFire() time.Time {
	now := r.now().UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), r.hourUTC, r.minuteUTC, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// sweep sends one message per unlogged tracked habit. A failed send is
// logged and skipped so one bad chat does not starve the rest.
func (r *Reminder) sweep(ctx context.Context) {
	asOf := domain.Day(r.now().UTC())
	targets, err := r.habits.ListReminderTargets(ctx, asOf)
	if err != nil {
		r.logger.Error("reminder sweep failed", "error", err)
		return
	}
	r.logger.Info("reminder sweep", "targets", len(targets), "as_of", asOf.Format("2006-01-02"))

	for _, t := range targets {
		text := fmt.Sprintf("⏰ Не забудьте отметить привычку '%s' за сегодня!", t.HabitName)
		if _, err := r.transport.SendMessage(ctx, t.ChatID, text, nil); err != nil {
			r.logger.Warn("reminder send failed", "chat_id", t.ChatID, "error", err)
			observability.RecordReminderSent(ctx, "error")
			continue
		}
		observability.RecordReminderSent(ctx, "ok")
	}
}
