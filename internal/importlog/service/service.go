// Package service implements the import job log: per-line outcomes of batch
// imports grouped under a parent job with a strict lifecycle.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	auditmodels "fieldledger/internal/audit/models"
	auditservice "fieldledger/internal/audit/service"
	"fieldledger/internal/importlog/metrics"
	"fieldledger/internal/importlog/models"
	"fieldledger/pkg/domain"
	"fieldledger/pkg/platform/sentinel"
	"fieldledger/pkg/requestcontext"
)

// Sequence categories for job and line identifiers.
const (
	CategoryJob  = "import.job"
	CategoryLine = "import.job.line"
)

// Store persists jobs and their lines. State-machine guards are enforced in
// the store's write path so concurrent callers cannot race past them:
// AppendLine fails with sentinel.ErrInvalidJobState unless the job is
// running, and FinalizeJob transitions running jobs exactly once.
type Store interface {
	CreateJob(ctx context.Context, job models.Job) error
	GetJob(ctx context.Context, jobID int64) (*models.Job, error)
	AppendLine(ctx context.Context, line models.LogLine) error
	// FinalizeJob applies the terminal transition and returns the resulting
	// status; succeeded degrades to partial when the job has error lines.
	FinalizeJob(ctx context.Context, jobID int64, outcome models.Status, endedAt time.Time) (models.Status, error)
	Lines(ctx context.Context, jobID int64, severity models.Severity) ([]models.LogLine, error)
	CountBySeverity(ctx context.Context, jobID int64) (map[models.Severity]int, error)
	// DeleteJob removes the job and cascades to its lines.
	DeleteJob(ctx context.Context, jobID int64) error
}

// Sequencer allocates identifiers. Satisfied by the sequence service.
type Sequencer interface {
	Next(ctx context.Context, category string) (int64, error)
}

// AuditRecorder lets the job lifecycle emit audit events explicitly at its
// own mutation points. Satisfied by the audit service.
type AuditRecorder interface {
	Record(ctx context.Context, req auditservice.RecordRequest) (*auditmodels.Event, error)
}

type Service struct {
	store   Store
	seq     Sequencer
	auditor AuditRecorder
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditRecorder(auditor AuditRecorder) Option {
	return func(s *Service) {
		s.auditor = auditor
	}
}

func New(store Store, seq Sequencer, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("importlog store is required")
	}
	if seq == nil {
		return nil, fmt.Errorf("sequencer is required")
	}

	svc := &Service{store: store, seq: seq}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// StartJob creates a job in the running state.
func (s *Service) StartJob(ctx context.Context) (*models.Job, error) {
	id, err := s.seq.Next(ctx, CategoryJob)
	if err != nil {
		return nil, err
	}

	job := models.Job{
		ID:        id,
		Status:    models.StatusRunning,
		StartedAt: requestcontext.Now(ctx).UTC(),
	}
	if err := s.store.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("start import job: %w", err)
	}

	if s.metrics != nil {
		s.metrics.IncrementJobsStarted()
	}
	s.auditJob(ctx, job.ID, auditmodels.ActionCreate, map[string]any{"status": job.Status})
	return &job, nil
}

// GetJob returns a job by ID.
func (s *Service) GetJob(ctx context.Context, jobID int64) (*models.Job, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("get import job %d: %w", jobID, err)
	}
	if job == nil {
		return nil, fmt.Errorf("import job %d: %w", jobID, sentinel.ErrNotFound)
	}
	return job, nil
}

// AppendRequest carries one line outcome. LineNumber is the caller-supplied
// position in the source input; several outcomes may share it.
type AppendRequest struct {
	LineNumber       int
	RecordIdentifier string
	Severity         models.Severity
	Message          string
	RawInput         string
}

// Append records one outcome line for a running job. The line is durably
// persisted before Append returns; appending to a terminal job fails with
// sentinel.ErrInvalidJobState.
func (s *Service) Append(ctx context.Context, jobID int64, req AppendRequest) (*models.LogLine, error) {
	if !req.Severity.IsValid() {
		return nil, fmt.Errorf("%w: unknown severity %q", sentinel.ErrInvalidArgument, req.Severity)
	}
	if req.Message == "" {
		return nil, fmt.Errorf("%w: message is required", sentinel.ErrInvalidArgument)
	}

	id, err := s.seq.Next(ctx, CategoryLine)
	if err != nil {
		return nil, err
	}

	line := models.LogLine{
		ID:               id,
		JobID:            jobID,
		LineNumber:       req.LineNumber,
		RecordIdentifier: req.RecordIdentifier,
		Severity:         req.Severity,
		Message:          req.Message,
		RawInput:         req.RawInput,
	}
	if err := s.store.AppendLine(ctx, line); err != nil {
		if s.metrics != nil {
			s.metrics.IncrementAppendFailed()
		}
		if s.logger != nil {
			// Losing an import log line silently would hide failed rows
			// from the operator running the import.
			s.logger.ErrorContext(ctx, "import log append failed",
				"job_id", jobID,
				"line_number", req.LineNumber,
				"error", err,
			)
		}
		return nil, fmt.Errorf("append line to job %d: %w", jobID, err)
	}

	if s.metrics != nil {
		s.metrics.IncrementLinesAppended(string(line.Severity))
	}
	return &line, nil
}

// Finalize moves a running job to a terminal state. Outcome must be succeeded
// or failed; succeeded degrades to partial when at least one error-severity
// line was appended. Finalizing a job twice fails with
// sentinel.ErrInvalidJobState.
func (s *Service) Finalize(ctx context.Context, jobID int64, outcome models.Status) (*models.Job, error) {
	if outcome != models.StatusSucceeded && outcome != models.StatusFailed {
		return nil, fmt.Errorf("%w: outcome must be %q or %q", sentinel.ErrInvalidArgument, models.StatusSucceeded, models.StatusFailed)
	}

	endedAt := requestcontext.Now(ctx).UTC()
	final, err := s.store.FinalizeJob(ctx, jobID, outcome, endedAt)
	if err != nil {
		return nil, fmt.Errorf("finalize import job %d: %w", jobID, err)
	}

	if s.metrics != nil {
		s.metrics.IncrementJobsFinalized(string(final))
	}
	s.auditJob(ctx, jobID, auditmodels.ActionUpdate, map[string]any{"status": final})

	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("get import job %d: %w", jobID, err)
	}
	return job, nil
}

// Lines returns the job's lines ordered by (line_number, id) ascending,
// optionally restricted to one severity for report views.
func (s *Service) Lines(ctx context.Context, jobID int64, severity models.Severity) ([]models.LogLine, error) {
	if severity != "" && !severity.IsValid() {
		return nil, fmt.Errorf("%w: unknown severity %q", sentinel.ErrInvalidArgument, severity)
	}
	if _, err := s.GetJob(ctx, jobID); err != nil {
		return nil, err
	}

	lines, err := s.store.Lines(ctx, jobID, severity)
	if err != nil {
		return nil, fmt.Errorf("list lines for job %d: %w", jobID, err)
	}
	return lines, nil
}

// Summary returns the job status plus per-severity line counts.
func (s *Service) Summary(ctx context.Context, jobID int64) (*models.Summary, error) {
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	counts, err := s.store.CountBySeverity(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("count lines for job %d: %w", jobID, err)
	}
	return &models.Summary{
		JobID:    job.ID,
		Status:   job.Status,
		Infos:    counts[models.SeverityInfo],
		Warnings: counts[models.SeverityWarning],
		Errors:   counts[models.SeverityError],
	}, nil
}

// PurgeJob removes a job and all its lines. This is the administrative bulk
// retention path; individual lines are never deleted.
func (s *Service) PurgeJob(ctx context.Context, jobID int64) error {
	if _, err := s.GetJob(ctx, jobID); err != nil {
		return err
	}
	if err := s.store.DeleteJob(ctx, jobID); err != nil {
		return fmt.Errorf("purge import job %d: %w", jobID, err)
	}
	s.auditJob(ctx, jobID, auditmodels.ActionDelete, nil)
	return nil
}

// auditJob emits a lifecycle audit event. Failures are logged and do not
// fail the job operation itself; the audit trail owns its own durability.
func (s *Service) auditJob(ctx context.Context, jobID int64, action auditmodels.Action, detail map[string]any) {
	if s.auditor == nil {
		return
	}

	var payload json.RawMessage
	if detail != nil {
		if b, err := json.Marshal(detail); err == nil {
			payload = b
		}
	}

	_, err := s.auditor.Record(ctx, auditservice.RecordRequest{
		Subject: domain.SubjectRef{Type: domain.SubjectImportJob, ID: strconv.FormatInt(jobID, 10)},
		Action:  action,
		Payload: payload,
	})
	if err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "import job audit event failed",
			"job_id", jobID,
			"action", action,
			"error", err,
		)
	}
}
