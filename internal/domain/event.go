package domain

import (
	"context"
	"encoding/json"
	"strings"
	"time"
)

// Event is a scheduled occurrence instantiated from a template. It carries a
// creation-time snapshot of the template's roles and description, so the
// event is unaffected by anything that later happens to the template.
// swagger:model Event
type Event struct {
	ID           string    `json:"id"`
	CommunityID  string    `json:"community_id"`
	ChannelRef   string    `json:"channel_ref"`
	Name         string    `json:"name"`
	TemplateName string    `json:"template_name"`
	Description  string    `json:"description"`
	StartTime    time.Time `json:"start_time"`
	// Roles is the snapshotted schema; Roster holds join-ordered participant
	// IDs per role. Occupancy is always derived from roster length.
	Roles        []RoleSlot          `json:"roles"`
	Roster       map[string][]string `json:"roster"`
	ReminderSent bool                `json:"reminder_sent"`
	CreatedAt    time.Time           `json:"created_at"`
}

// MarshalJSON includes a derived start_unix field alongside start_time, for
// chat-platform timestamp markup (e.g. Discord's <t:unix:R>).
func (e *Event) MarshalJSON() ([]byte, error) {
	type alias Event
	return json.Marshal(&struct {
		*alias
		StartUnix int64 `json:"start_unix"`
	}{
		alias:     (*alias)(e),
		StartUnix: e.StartTime.Unix(),
	})
}

// Capacity returns the snapshotted capacity for role, and whether the role
// exists in the event's schema.
func (e *Event) Capacity(role string) (int, bool) {
	for _, rs := range e.Roles {
		if rs.Role == role {
			return rs.Capacity, true
		}
	}
	return 0, false
}

// Filled returns the current roster size for role.
func (e *Event) Filled(role string) int {
	return len(e.Roster[role])
}

// ParticipantRole returns the role the participant currently holds, if any.
// A participant holds at most one role per event.
func (e *Event) ParticipantRole(participantID string) (string, bool) {
	for _, rs := range e.Roles {
		for _, p := range e.Roster[rs.Role] {
			if p == participantID {
				return rs.Role, true
			}
		}
	}
	return "", false
}

// Counts returns (filled, capacity) per role in schema order.
func (e *Event) Counts() []RosterState {
	out := make([]RosterState, 0, len(e.Roles))
	for _, rs := range e.Roles {
		out = append(out, RosterState{Role: rs.Role, Filled: len(e.Roster[rs.Role]), Capacity: rs.Capacity})
	}
	return out
}

// startTimeLayouts are the accepted non-RFC3339 input forms. Both are
// interpreted as UTC, matching the chat clients that submit them.
var startTimeLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// ParseStartTime parses a start time input into an absolute instant. It
// accepts RFC3339 or a date-plus-minutes form ("2006-01-02 15:04", UTC).
// Returns ErrInvalidTime when no layout matches.
func ParseStartTime(input string) (time.Time, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return time.Time{}, ErrInvalidTime
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range startTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrInvalidTime
}

// EventRepository defines storage operations for events. Roster mutation and
// the reminder flag use conditional writes so capacity, single-claim, and
// at-most-once reminders hold under concurrent callers.
type EventRepository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id string) (*Event, error)
	// GetByName returns the community's most recently created event with the
	// given name. Event names are not unique.
	GetByName(ctx context.Context, communityID, name string) (*Event, error)
	// ListUpcoming returns the community's events with start time at or after
	// asOf, ordered by start time ascending, ties broken by creation order.
	ListUpcoming(ctx context.Context, communityID string, asOf time.Time) ([]*Event, error)
	// ListDueForReminder returns, across all communities, events with
	// reminder pending and asOf < start time <= asOf+lead. The result is a
	// single point-in-time read.
	ListDueForReminder(ctx context.Context, asOf time.Time, lead time.Duration) ([]*Event, error)
	// MarkReminderSent flips the reminder flag. Returns true when this call
	// performed the transition, false when the flag was already set.
	MarkReminderSent(ctx context.Context, eventID string) (bool, error)
	// AddParticipant appends the participant to the role's roster iff the
	// role exists, the participant holds no role in the event, and the roster
	// is below capacity. Returns the updated roster size for the role.
	AddParticipant(ctx context.Context, eventID, role, participantID string, joinedAt time.Time) (int, error)
	// RemoveParticipant removes the participant from the role's roster,
	// preserving the order of the remaining participants. Returns the updated
	// roster size. Returns ErrNotRegistered when the participant is absent.
	RemoveParticipant(ctx context.Context, eventID, role, participantID string) (int, error)
}

// EventService defines event lifecycle operations exposed to the delivery layer.
type EventService interface {
	// Instantiate creates an event from the named template, snapshotting its
	// schema and description. startTimeInput is parsed with ParseStartTime.
	Instantiate(ctx context.Context, communityID, channelRef, eventName, templateName, startTimeInput string) (*Event, error)
	GetByID(ctx context.Context, communityID, eventID string) (*Event, error)
	GetByName(ctx context.Context, communityID, name string) (*Event, error)
	ListUpcoming(ctx context.Context, communityID string) ([]*Event, error)
}
