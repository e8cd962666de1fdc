package audit

import (
	"context"
	"database/sql"
	"fmt"

	id "pramaan/pkg/domain"
	txcontext "pramaan/pkg/platform/tx"
)

// PostgresStore persists audit events in the audit_events table. Append
// joins any transaction carried in the context so audit writes commit or
// roll back with the business operation they describe.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	query := `
		INSERT INTO audit_events (
			occurred_at, identity_id, action, subject, decision, reason, request_id, actor_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := txcontext.Resolve(ctx, s.db).ExecContext(ctx, query,
		event.Timestamp,
		event.IdentityID.String(),
		event.Action,
		event.Subject,
		event.Decision,
		event.Reason,
		event.RequestID,
		event.ActorID,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByIdentity(ctx context.Context, identityID id.IdentityID) ([]Event, error) {
	query := `
		SELECT occurred_at, identity_id, action, subject, decision, reason, request_id, actor_id
		FROM audit_events
		WHERE identity_id = $1
		ORDER BY occurred_at DESC, id DESC
	`
	rows, err := s.db.QueryContext(ctx, query, identityID.String())
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func (s *PostgresStore) ListRecent(ctx context.Context, limit int) ([]Event, error) {
	query := `
		SELECT occurred_at, identity_id, action, subject, decision, reason, request_id, actor_id
		FROM audit_events
		ORDER BY occurred_at DESC, id DESC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]Event, error) {
	var events []Event
	for rows.Next() {
		var (
			event      Event
			identityID string
			subject    sql.NullString
			decision   sql.NullString
			reason     sql.NullString
			requestID  sql.NullString
			actorID    sql.NullString
		)
		err := rows.Scan(
			&event.Timestamp,
			&identityID,
			&event.Action,
			&subject,
			&decision,
			&reason,
			&requestID,
			&actorID,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		if parsed, err := id.ParseIdentityID(identityID); err == nil {
			event.IdentityID = parsed
		}
		event.Subject = subject.String
		event.Decision = decision.String
		event.Reason = reason.String
		event.RequestID = requestID.String
		event.ActorID = actorID.String
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
