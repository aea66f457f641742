package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"eventroster/internal/domain"
)

// EventRepository is an in-memory domain.EventRepository. Roster mutation and
// the reminder flag are serialized per event, so unrelated events make
// progress independently while check-and-append stays atomic.
type EventRepository struct {
	mu     sync.RWMutex
	events map[string]*eventRecord
	seq    int
}

type eventRecord struct {
	mu    sync.Mutex
	seq   int
	event *domain.Event
}

func NewEventRepository() *EventRepository {
	return &EventRepository{events: make(map[string]*eventRecord)}
}

func (r *EventRepository) Create(ctx context.Context, event *domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	r.events[event.ID] = &eventRecord{seq: r.seq, event: cloneEvent(event)}
	return nil
}

func (r *EventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	rec, err := r.record(id)
	if err != nil {
		return nil, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return cloneEvent(rec.event), nil
}

func (r *EventRepository) GetByName(ctx context.Context, communityID, name string) (*domain.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest *eventRecord
	for _, rec := range r.events {
		if rec.event.CommunityID != communityID || rec.event.Name != name {
			continue
		}
		if latest == nil || rec.seq > latest.seq {
			latest = rec
		}
	}
	if latest == nil {
		return nil, domain.ErrEventNotFound
	}
	latest.mu.Lock()
	defer latest.mu.Unlock()
	return cloneEvent(latest.event), nil
}

func (r *EventRepository) ListUpcoming(ctx context.Context, communityID string, asOf time.Time) ([]*domain.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	type entry struct {
		seq   int
		event *domain.Event
	}
	var entries []entry
	for _, rec := range r.events {
		rec.mu.Lock()
		if rec.event.CommunityID == communityID && !rec.event.StartTime.Before(asOf) {
			entries = append(entries, entry{seq: rec.seq, event: cloneEvent(rec.event)})
		}
		rec.mu.Unlock()
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].event.StartTime.Equal(entries[j].event.StartTime) {
			return entries[i].seq < entries[j].seq
		}
		return entries[i].event.StartTime.Before(entries[j].event.StartTime)
	})
	out := make([]*domain.Event, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.event)
	}
	return out, nil
}

func (r *EventRepository) ListDueForReminder(ctx context.Context, asOf time.Time, lead time.Duration) ([]*domain.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cutoff := asOf.Add(lead)
	var due []*domain.Event
	for _, rec := range r.events {
		rec.mu.Lock()
		e := rec.event
		if !e.ReminderSent && e.StartTime.After(asOf) && !e.StartTime.After(cutoff) {
			due = append(due, cloneEvent(e))
		}
		rec.mu.Unlock()
	}
	sort.Slice(due, func(i, j int) bool { return due[i].StartTime.Before(due[j].StartTime) })
	return due, nil
}

func (r *EventRepository) MarkReminderSent(ctx context.Context, eventID string) (bool, error) {
	rec, err := r.record(eventID)
	if err != nil {
		return false, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()

	if rec.event.ReminderSent {
		return false, nil
	}
	rec.event.ReminderSent = true
	return true, nil
}

func (r *EventRepository) AddParticipant(ctx context.Context, eventID, role, participantID string, joinedAt time.Time) (int, error) {
	rec, err := r.record(eventID)
	if err != nil {
		return 0, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()

	e := rec.event
	capacity, ok := e.Capacity(role)
	if !ok {
		return 0, domain.ErrUnknownRole
	}
	if _, held := e.ParticipantRole(participantID); held {
		return 0, domain.ErrAlreadyRegistered
	}
	if len(e.Roster[role]) >= capacity {
		return 0, domain.ErrRoleFull
	}
	e.Roster[role] = append(e.Roster[role], participantID)
	return len(e.Roster[role]), nil
}

func (r *EventRepository) RemoveParticipant(ctx context.Context, eventID, role, participantID string) (int, error) {
	rec, err := r.record(eventID)
	if err != nil {
		return 0, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()

	e := rec.event
	roster := e.Roster[role]
	for i, p := range roster {
		if p == participantID {
			e.Roster[role] = append(roster[:i:i], roster[i+1:]...)
			return len(e.Roster[role]), nil
		}
	}
	return 0, domain.ErrNotRegistered
}

func (r *EventRepository) record(id string) (*eventRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.events[id]
	if !ok {
		return nil, domain.ErrEventNotFound
	}
	return rec, nil
}

func cloneEvent(e *domain.Event) *domain.Event {
	c := *e
	c.Roles = make([]domain.RoleSlot, len(e.Roles))
	copy(c.Roles, e.Roles)
	c.Roster = make(map[string][]string, len(e.Roster))
	for role, members := range e.Roster {
		c.Roster[role] = append([]string(nil), members...)
	}
	return &c
}
