package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"eventroster/internal/domain"
)

// Default scheduler cadence: scan every minute for events starting within
// the next half hour.
const (
	DefaultReminderTick = time.Minute
	DefaultReminderLead = 30 * time.Minute
)

// ReminderScheduler scans upcoming events on a fixed tick and delivers an
// at-most-once reminder per event within the lead-time window. Each event
// moves PENDING -> REMINDED exactly once; the transition is a conditional
// write in the repository. Ticks run synchronously, so two scans from the
// same scheduler never overlap; across scheduler instances the conditional
// mark decides a single winner.
type ReminderScheduler struct {
	eventRepo domain.EventRepository
	notifier  domain.Notifier
	logger    *slog.Logger
	lead      time.Duration
	tick      time.Duration
	now       func() time.Time
}

// NewReminderScheduler creates a scheduler. Non-positive lead or tick fall
// back to the defaults.
func NewReminderScheduler(eventRepo domain.EventRepository, notifier domain.Notifier, logger *slog.Logger, lead, tick time.Duration) *ReminderScheduler {
	if lead <= 0 {
		lead = DefaultReminderLead
	}
	if tick <= 0 {
		tick = DefaultReminderTick
	}
	return &ReminderScheduler{
		eventRepo: eventRepo,
		notifier:  notifier,
		logger:    logger,
		lead:      lead,
		tick:      tick,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Run ticks until ctx is canceled. A tick in progress always finishes before
// Run returns; each tick runs under its own deadline so cancellation never
// abandons a partially delivered batch.
func (s *ReminderScheduler) Run(ctx context.Context) {
	s.logger.Info("reminder scheduler started", "tick", s.tick, "lead", s.lead)
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("reminder scheduler stopped")
			return
		case <-ticker.C:
			tickCtx, cancel := context.WithTimeout(context.Background(), s.tick)
			s.Tick(tickCtx)
			cancel()
		}
	}
}

// Tick performs one scan: fetch due events, attempt delivery, then mark.
// Delivery failures leave the event pending, so it is retried on the next
// tick for as long as it is still inside the window; once the start time has
// passed the due query excludes it and the reminder is permanently skipped.
func (s *ReminderScheduler) Tick(ctx context.Context) {
	now := s.now()
	due, err := s.eventRepo.ListDueForReminder(ctx, now, s.lead)
	if err != nil {
		s.logger.Error("list due events", "err", err)
		return
	}

	for _, event := range due {
		if err := s.notifier.Send(ctx, event.ChannelRef, RenderReminder(event, now)); err != nil {
			s.logger.Warn("reminder delivery failed",
				"event_id", event.ID, "event", event.Name, "channel", event.ChannelRef, "err", err)
			continue
		}
		marked, err := s.eventRepo.MarkReminderSent(ctx, event.ID)
		if err != nil {
			s.logger.Error("mark reminder sent", "event_id", event.ID, "err", err)
			continue
		}
		if !marked {
			// Another scheduler instance won the conditional write. Not a
			// delivery failure: do not retry this event.
			s.logger.Debug("reminder already marked by another runner", "event_id", event.ID)
			continue
		}
		s.logger.Info("reminder sent",
			"event_id", event.ID, "event", event.Name, "starts_in", event.StartTime.Sub(now).Round(time.Second))
	}
}

// RenderReminder formats the reminder text delivered to the event's channel:
// minutes to start and the fill state of every role.
func RenderReminder(e *domain.Event, now time.Time) string {
	minutes := int(e.StartTime.Sub(now).Round(time.Minute) / time.Minute)

	var b strings.Builder
	fmt.Fprintf(&b, "Reminder: %s starts in %d minutes!\n", e.Name, minutes)
	for _, rs := range e.Roles {
		members := e.Roster[rs.Role]
		fmt.Fprintf(&b, "%s (%d/%d): ", rs.Role, len(members), rs.Capacity)
		if len(members) == 0 {
			b.WriteString("no participants")
		} else {
			b.WriteString(strings.Join(members, ", "))
		}
		b.WriteByte('\n')
	}
	return b.String()
}
