package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"eventroster/internal/domain"
)

type eventRepository struct {
	DB *sql.DB
}

func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{
		DB: db,
	}
}

const eventColumns = `id, community_id, channel_ref, name, template_name, description, start_time, reminder_sent, created_at`

func (r *eventRepository) Create(ctx context.Context, event *domain.Event) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO events (` + eventColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	if _, err := tx.ExecContext(ctx, query,
		event.ID, event.CommunityID, event.ChannelRef, event.Name, event.TemplateName,
		event.Description, event.StartTime, event.ReminderSent, event.CreatedAt); err != nil {
		return err
	}
	for i, rs := range event.Roles {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO event_roles (event_id, position, role, capacity) VALUES ($1, $2, $3, $4)`,
			event.ID, i, rs.Role, rs.Capacity); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	event, err := r.scanEvent(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}
	if err := r.hydrate(ctx, []*domain.Event{event}); err != nil {
		return nil, err
	}
	return event, nil
}

func (r *eventRepository) GetByName(ctx context.Context, communityID, name string) (*domain.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE community_id = $1 AND name = $2
		ORDER BY seq DESC
		LIMIT 1
	`
	event, err := r.scanEvent(r.DB.QueryRowContext(ctx, query, communityID, name))
	if err != nil {
		return nil, err
	}
	if err := r.hydrate(ctx, []*domain.Event{event}); err != nil {
		return nil, err
	}
	return event, nil
}

func (r *eventRepository) ListUpcoming(ctx context.Context, communityID string, asOf time.Time) ([]*domain.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE community_id = $1 AND start_time >= $2
		ORDER BY start_time, seq
	`
	return r.queryEvents(ctx, query, communityID, asOf)
}

func (r *eventRepository) ListDueForReminder(ctx context.Context, asOf time.Time, lead time.Duration) ([]*domain.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE NOT reminder_sent AND start_time > $1 AND start_time <= $2
		ORDER BY start_time, seq
	`
	return r.queryEvents(ctx, query, asOf, asOf.Add(lead))
}

func (r *eventRepository) MarkReminderSent(ctx context.Context, eventID string) (bool, error) {
	// Conditional transition: only one caller observes a row change.
	res, err := r.DB.ExecContext(ctx,
		`UPDATE events SET reminder_sent = TRUE WHERE id = $1 AND reminder_sent = FALSE`, eventID)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (r *eventRepository) AddParticipant(ctx context.Context, eventID, role, participantID string, joinedAt time.Time) (int, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	// Locking the role row serializes check-and-append per (event, role):
	// concurrent joins against one remaining slot cannot both pass the
	// capacity check.
	var capacity int
	err = tx.QueryRowContext(ctx,
		`SELECT capacity FROM event_roles WHERE event_id = $1 AND role = $2 FOR UPDATE`,
		eventID, role).Scan(&capacity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, r.missingRoleErr(ctx, eventID)
		}
		return 0, err
	}

	var filled int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM event_participants WHERE event_id = $1 AND role = $2`,
		eventID, role).Scan(&filled); err != nil {
		return 0, err
	}
	if filled >= capacity {
		return 0, domain.ErrRoleFull
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO event_participants (event_id, role, participant_id, joined_at) VALUES ($1, $2, $3, $4)`,
		eventID, role, participantID, joinedAt)
	if err != nil {
		// The primary key (event_id, participant_id) spans every role: a hit
		// means the participant already holds a role in this event.
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return 0, domain.ErrAlreadyRegistered
		}
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return filled + 1, nil
}

func (r *eventRepository) RemoveParticipant(ctx context.Context, eventID, role, participantID string) (int, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	// Take the same role lock as AddParticipant so removals serialize with
	// joins on the same role.
	var capacity int
	err = tx.QueryRowContext(ctx,
		`SELECT capacity FROM event_roles WHERE event_id = $1 AND role = $2 FOR UPDATE`,
		eventID, role).Scan(&capacity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, r.missingRoleErr(ctx, eventID)
		}
		return 0, err
	}

	res, err := tx.ExecContext(ctx,
		`DELETE FROM event_participants WHERE event_id = $1 AND role = $2 AND participant_id = $3`,
		eventID, role, participantID)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if affected == 0 {
		return 0, domain.ErrNotRegistered
	}

	var filled int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM event_participants WHERE event_id = $1 AND role = $2`,
		eventID, role).Scan(&filled); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return filled, nil
}

// missingRoleErr distinguishes an unknown event from an unknown role.
func (r *eventRepository) missingRoleErr(ctx context.Context, eventID string) error {
	var exists bool
	if err := r.DB.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM events WHERE id = $1)`, eventID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return domain.ErrEventNotFound
	}
	return domain.ErrUnknownRole
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *eventRepository) scanEvent(row rowScanner) (*domain.Event, error) {
	event := &domain.Event{}
	err := row.Scan(&event.ID, &event.CommunityID, &event.ChannelRef, &event.Name,
		&event.TemplateName, &event.Description, &event.StartTime, &event.ReminderSent, &event.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrEventNotFound
		}
		return nil, err
	}
	return event, nil
}

func (r *eventRepository) queryEvents(ctx context.Context, query string, args ...any) ([]*domain.Event, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]*domain.Event, 0)
	for rows.Next() {
		event, err := r.scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.hydrate(ctx, events); err != nil {
		return nil, err
	}
	return events, nil
}

// hydrate batch-loads role schemas and rosters for the given events.
func (r *eventRepository) hydrate(ctx context.Context, events []*domain.Event) error {
	if len(events) == 0 {
		return nil
	}
	ids := make([]string, 0, len(events))
	byID := make(map[string]*domain.Event, len(events))
	for _, e := range events {
		ids = append(ids, e.ID)
		byID[e.ID] = e
		e.Roles = make([]domain.RoleSlot, 0)
		e.Roster = make(map[string][]string)
	}

	roleRows, err := r.DB.QueryContext(ctx,
		`SELECT event_id, role, capacity FROM event_roles WHERE event_id = ANY($1) ORDER BY event_id, position`,
		pq.Array(ids))
	if err != nil {
		return err
	}
	defer roleRows.Close()
	for roleRows.Next() {
		var eventID string
		var rs domain.RoleSlot
		if err := roleRows.Scan(&eventID, &rs.Role, &rs.Capacity); err != nil {
			return err
		}
		e := byID[eventID]
		e.Roles = append(e.Roles, rs)
		e.Roster[rs.Role] = []string{}
	}
	if err := roleRows.Err(); err != nil {
		return err
	}

	partRows, err := r.DB.QueryContext(ctx,
		`SELECT event_id, role, participant_id FROM event_participants WHERE event_id = ANY($1) ORDER BY event_id, seq`,
		pq.Array(ids))
	if err != nil {
		return err
	}
	defer partRows.Close()
	for partRows.Next() {
		var eventID, role, participantID string
		if err := partRows.Scan(&eventID, &role, &participantID); err != nil {
			return err
		}
		e := byID[eventID]
		e.Roster[role] = append(e.Roster[role], participantID)
	}
	return partRows.Err()
}
