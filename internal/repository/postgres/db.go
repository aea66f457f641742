package postgres

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// Open connects to Postgres, verifies the connection, and applies the schema.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

var schema = []string{`
	CREATE TABLE IF NOT EXISTS templates (
		id UUID PRIMARY KEY,
		community_id TEXT NOT NULL,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		seq BIGSERIAL,
		UNIQUE (community_id, name)
	)`, `
	CREATE TABLE IF NOT EXISTS template_roles (
		template_id UUID NOT NULL REFERENCES templates(id) ON DELETE CASCADE,
		position INT NOT NULL,
		role TEXT NOT NULL,
		capacity INT NOT NULL CHECK (capacity >= 1),
		PRIMARY KEY (template_id, role)
	)`, `
	CREATE TABLE IF NOT EXISTS events (
		id UUID PRIMARY KEY,
		community_id TEXT NOT NULL,
		channel_ref TEXT NOT NULL,
		name TEXT NOT NULL,
		template_name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		start_time TIMESTAMPTZ NOT NULL,
		reminder_sent BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL,
		seq BIGSERIAL
	)`, `
	CREATE TABLE IF NOT EXISTS event_roles (
		event_id UUID NOT NULL REFERENCES events(id) ON DELETE CASCADE,
		position INT NOT NULL,
		role TEXT NOT NULL,
		capacity INT NOT NULL CHECK (capacity >= 1),
		PRIMARY KEY (event_id, role)
	)`, `
	CREATE TABLE IF NOT EXISTS event_participants (
		event_id UUID NOT NULL REFERENCES events(id) ON DELETE CASCADE,
		role TEXT NOT NULL,
		participant_id TEXT NOT NULL,
		joined_at TIMESTAMPTZ NOT NULL,
		seq BIGSERIAL,
		PRIMARY KEY (event_id, participant_id),
		FOREIGN KEY (event_id, role) REFERENCES event_roles (event_id, role)
	)`, `
	CREATE INDEX IF NOT EXISTS idx_events_reminder
		ON events (start_time) WHERE NOT reminder_sent`, `
	CREATE INDEX IF NOT EXISTS idx_events_community_start
		ON events (community_id, start_time)`,
}

// Migrate creates the schema if it does not exist. The primary key on
// event_participants (event_id, participant_id) is the single-claim
// invariant: one roster entry per participant per event.
func Migrate(db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
