package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	audit "kyc-gateway/pkg/platform/audit"
)

// Store implements audit.Store on PostgreSQL.
//
// Expected schema:
//
//	CREATE TABLE audit_events (
//	    id              UUID PRIMARY KEY,
//	    category        TEXT NOT NULL,
//	    occurred_at     TIMESTAMPTZ NOT NULL,
//	    registration_id TEXT NOT NULL DEFAULT '',
//	    session_id      TEXT NOT NULL DEFAULT '',
//	    action          TEXT NOT NULL,
//	    prior_status    TEXT NOT NULL DEFAULT '',
//	    new_status      TEXT NOT NULL DEFAULT '',
//	    outcome         TEXT NOT NULL DEFAULT '',
//	    reason          TEXT NOT NULL DEFAULT '',
//	    request_id      TEXT NOT NULL DEFAULT '',
//	    actor_id        TEXT NOT NULL DEFAULT ''
//	);
//	CREATE INDEX audit_events_session_idx ON audit_events (session_id, occurred_at);
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL-backed audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Append writes one audit event. The category is always derived from the
// action; the eventCategories map in the audit package is the source of truth.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	id := event.ID
	if id == "" {
		id = uuid.NewString()
	}
	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	category := audit.AuditEvent(event.Action).Category()

	const q = `
		INSERT INTO audit_events (
			id, category, occurred_at, registration_id, session_id,
			action, prior_status, new_status, outcome, reason, request_id, actor_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := s.db.ExecContext(ctx, q,
		id, string(category), ts, event.RegistrationID, event.SessionID,
		event.Action, event.PriorStatus, event.NewStatus, event.Outcome,
		event.Reason, event.RequestID, event.ActorID,
	)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

// ListBySession returns all events for a provider session, oldest first.
func (s *Store) ListBySession(ctx context.Context, sessionID string) ([]audit.Event, error) {
	const q = `
		SELECT id, category, occurred_at, registration_id, session_id,
		       action, prior_status, new_status, outcome, reason, request_id, actor_id
		FROM audit_events
		WHERE session_id = $1
		ORDER BY occurred_at ASC`

	rows, err := s.db.QueryContext(ctx, q, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list audit events by session: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// ListRecent returns the most recent events across all sessions, newest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	const q = `
		SELECT id, category, occurred_at, registration_id, session_id,
		       action, prior_status, new_status, outcome, reason, request_id, actor_id
		FROM audit_events
		ORDER BY occurred_at DESC
		LIMIT $1`

	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent audit events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var events []audit.Event
	for rows.Next() {
		var e audit.Event
		var category string
		err := rows.Scan(
			&e.ID, &category, &e.Timestamp, &e.RegistrationID, &e.SessionID,
			&e.Action, &e.PriorStatus, &e.NewStatus, &e.Outcome, &e.Reason,
			&e.RequestID, &e.ActorID,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Category = audit.EventCategory(category)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
