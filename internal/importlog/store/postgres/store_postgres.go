package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"fieldledger/internal/importlog/models"
	"fieldledger/pkg/platform/sentinel"
)

const uniqueViolation = "23505"

// PostgresStore persists import jobs and their lines in PostgreSQL.
// Lifecycle guards run inside the write statements so concurrent callers are
// serialized by the database, not by client-side checks.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed importlog store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateJob(ctx context.Context, job models.Job) error {
	query := `
		INSERT INTO import_jobs (id, status, started_at)
		VALUES ($1, $2, $3)
	`
	_, err := s.db.ExecContext(ctx, query, job.ID, string(job.Status), job.StartedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return fmt.Errorf("create job %d: %w", job.ID, sentinel.ErrDuplicateIdentifier)
		}
		return fmt.Errorf("create job %d: %w: %w", job.ID, sentinel.ErrStorageUnavailable, err)
	}
	return nil
}

func (s *PostgresStore) GetJob(ctx context.Context, jobID int64) (*models.Job, error) {
	query := `
		SELECT id, status, started_at, ended_at
		FROM import_jobs
		WHERE id = $1
	`
	var (
		job     models.Job
		status  string
		endedAt sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, query, jobID).Scan(&job.ID, &status, &job.StartedAt, &endedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get job %d: %w: %w", jobID, sentinel.ErrStorageUnavailable, err)
	}
	job.Status = models.Status(status)
	if endedAt.Valid {
		job.EndedAt = &endedAt.Time
	}
	return &job, nil
}

// AppendLine inserts a line only while its job is running; the running check
// and the insert are one statement, so a concurrent finalize cannot slip in
// between them.
func (s *PostgresStore) AppendLine(ctx context.Context, line models.LogLine) error {
	query := `
		INSERT INTO import_job_lines (id, job_id, line_number, record_identifier, severity, message, raw_input)
		SELECT $1, $2, $3, $4, $5, $6, $7
		WHERE EXISTS (
			SELECT 1 FROM import_jobs WHERE id = $2 AND status = 'running'
		)
	`
	result, err := s.db.ExecContext(ctx, query,
		line.ID,
		line.JobID,
		line.LineNumber,
		line.RecordIdentifier,
		string(line.Severity),
		line.Message,
		line.RawInput,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return fmt.Errorf("append line %d: %w", line.ID, sentinel.ErrDuplicateIdentifier)
		}
		return fmt.Errorf("append line %d: %w: %w", line.ID, sentinel.ErrStorageUnavailable, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("append line rows affected: %w", err)
	}
	if rows == 0 {
		return s.jobStateError(ctx, line.JobID)
	}
	return nil
}

// FinalizeJob applies the terminal transition in one statement. A requested
// succeeded outcome degrades to partial when the job has error lines.
func (s *PostgresStore) FinalizeJob(ctx context.Context, jobID int64, outcome models.Status, endedAt time.Time) (models.Status, error) {
	query := `
		UPDATE import_jobs SET
			status = CASE
				WHEN $2 = 'succeeded' AND EXISTS (
					SELECT 1 FROM import_job_lines WHERE job_id = $1 AND severity = 'error'
				) THEN 'partial'
				ELSE $2
			END,
			ended_at = $3
		WHERE id = $1 AND status = 'running'
		RETURNING status
	`
	var status string
	err := s.db.QueryRowContext(ctx, query, jobID, string(outcome), endedAt).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", s.jobStateError(ctx, jobID)
		}
		return "", fmt.Errorf("finalize job %d: %w: %w", jobID, sentinel.ErrStorageUnavailable, err)
	}
	return models.Status(status), nil
}

func (s *PostgresStore) Lines(ctx context.Context, jobID int64, severity models.Severity) ([]models.LogLine, error) {
	query := `
		SELECT id, job_id, line_number, record_identifier, severity, message, raw_input
		FROM import_job_lines
		WHERE job_id = $1 AND ($2 = '' OR severity = $2)
		ORDER BY line_number, id
	`
	rows, err := s.db.QueryContext(ctx, query, jobID, string(severity))
	if err != nil {
		return nil, fmt.Errorf("list lines for job %d: %w: %w", jobID, sentinel.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	var lines []models.LogLine
	for rows.Next() {
		var (
			line models.LogLine
			sev  string
		)
		if err := rows.Scan(
			&line.ID,
			&line.JobID,
			&line.LineNumber,
			&line.RecordIdentifier,
			&sev,
			&line.Message,
			&line.RawInput,
		); err != nil {
			return nil, fmt.Errorf("scan log line: %w", err)
		}
		line.Severity = models.Severity(sev)
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate log lines: %w", err)
	}
	return lines, nil
}

func (s *PostgresStore) CountBySeverity(ctx context.Context, jobID int64) (map[models.Severity]int, error) {
	query := `
		SELECT severity, COUNT(*)
		FROM import_job_lines
		WHERE job_id = $1
		GROUP BY severity
	`
	rows, err := s.db.QueryContext(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("count lines for job %d: %w: %w", jobID, sentinel.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	counts := make(map[models.Severity]int)
	for rows.Next() {
		var (
			sev   string
			count int
		)
		if err := rows.Scan(&sev, &count); err != nil {
			return nil, fmt.Errorf("scan severity count: %w", err)
		}
		counts[models.Severity(sev)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate severity counts: %w", err)
	}
	return counts, nil
}

// DeleteJob removes the job row; lines go with it via ON DELETE CASCADE.
func (s *PostgresStore) DeleteJob(ctx context.Context, jobID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM import_jobs WHERE id = $1`, jobID)
	if err != nil {
		return fmt.Errorf("delete job %d: %w: %w", jobID, sentinel.ErrStorageUnavailable, err)
	}
	return nil
}

// jobStateError distinguishes a missing job from one in a terminal state
// after a guarded write matched zero rows.
func (s *PostgresStore) jobStateError(ctx context.Context, jobID int64) error {
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job == nil {
		return fmt.Errorf("job %d: %w", jobID, sentinel.ErrNotFound)
	}
	return fmt.Errorf("job %d is %s: %w", jobID, job.Status, sentinel.ErrInvalidJobState)
}
