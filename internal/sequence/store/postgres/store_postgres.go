package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"fieldledger/pkg/platform/sentinel"
)

// PostgresStore persists per-category counters in PostgreSQL.
// The increment is a single upsert statement, so concurrent callers are
// serialized by row-level locking and never observe the same value.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed counter store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Next(ctx context.Context, category string) (int64, error) {
	query := `
		INSERT INTO sequence_counters (category, value)
		VALUES ($1, 1)
		ON CONFLICT (category) DO UPDATE SET
			value = sequence_counters.value + 1
		RETURNING value
	`
	var value int64
	if err := s.db.QueryRowContext(ctx, query, category).Scan(&value); err != nil {
		return 0, fmt.Errorf("increment counter %q: %w: %w", category, sentinel.ErrStorageUnavailable, err)
	}
	return value, nil
}
