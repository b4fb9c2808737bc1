package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"fieldledger/internal/audit/models"
	"fieldledger/pkg/domain"
	"fieldledger/pkg/platform/sentinel"
)

// uniqueViolation is the PostgreSQL error code for duplicate keys.
const uniqueViolation = "23505"

// PostgresStore persists audit events in PostgreSQL. The store is pure I/O;
// identifier allocation and validation belong in the service.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed audit store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, event models.Event) error {
	query := `
		INSERT INTO audit_events (id, subject_type, subject_id, actor, action, occurred_at, payload, source, request_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	var payload any
	if len(event.Payload) > 0 {
		payload = []byte(event.Payload)
	}
	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		event.Subject.Type.String(),
		event.Subject.ID,
		event.Actor,
		string(event.Action),
		event.Timestamp,
		payload,
		event.Source,
		event.RequestID,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			// Should be unreachable given the sequence allocator's atomicity.
			// Abort rather than overwrite.
			return fmt.Errorf("append audit event %d: %w", event.ID, sentinel.ErrDuplicateIdentifier)
		}
		return fmt.Errorf("append audit event %d: %w: %w", event.ID, sentinel.ErrStorageUnavailable, err)
	}
	return nil
}

func (s *PostgresStore) Query(ctx context.Context, filter models.Filter, after models.Cursor, limit int) ([]models.Event, error) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if !filter.SubjectType.IsNil() {
		conds = append(conds, "subject_type = "+arg(filter.SubjectType.String()))
	}
	if filter.SubjectID != "" {
		conds = append(conds, "subject_id = "+arg(filter.SubjectID))
	}
	if filter.Actor != "" {
		conds = append(conds, "actor = "+arg(filter.Actor))
	}
	if filter.Action != "" {
		conds = append(conds, "action = "+arg(string(filter.Action)))
	}
	if !filter.From.IsZero() {
		conds = append(conds, "occurred_at >= "+arg(filter.From))
	}
	if !filter.To.IsZero() {
		conds = append(conds, "occurred_at < "+arg(filter.To))
	}
	if !after.IsZero() {
		conds = append(conds, fmt.Sprintf("(occurred_at, id) > (%s, %s)", arg(after.Timestamp), arg(after.ID)))
	}

	query := `
		SELECT id, subject_type, subject_id, actor, action, occurred_at, payload, source, request_id
		FROM audit_events
	`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY occurred_at, id LIMIT " + arg(limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w: %w", sentinel.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func (s *PostgresStore) ListAfterID(ctx context.Context, afterID int64, limit int) ([]models.Event, error) {
	query := `
		SELECT id, subject_type, subject_id, actor, action, occurred_at, payload, source, request_id
		FROM audit_events
		WHERE id > $1
		ORDER BY id
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit events after %d: %w: %w", afterID, sentinel.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]models.Event, error) {
	var events []models.Event
	for rows.Next() {
		var (
			event       models.Event
			subjectType string
			action      string
			payload     []byte
		)
		if err := rows.Scan(
			&event.ID,
			&subjectType,
			&event.Subject.ID,
			&event.Actor,
			&action,
			&event.Timestamp,
			&payload,
			&event.Source,
			&event.RequestID,
		); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.Subject.Type = domain.SubjectType(subjectType)
		event.Action = models.Action(action)
		if len(payload) > 0 {
			event.Payload = payload
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
