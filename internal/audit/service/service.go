// Package service implements the audit event store: append-only records tied
// to arbitrary entities via weak (type, id) references.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"fieldledger/internal/audit/metrics"
	"fieldledger/internal/audit/models"
	"fieldledger/pkg/domain"
	"fieldledger/pkg/platform/sentinel"
	"fieldledger/pkg/requestcontext"
)

// CategoryEvent is the sequence category audit event identifiers come from.
const CategoryEvent = "audit.event"

// DefaultPageSize bounds queries that do not specify a limit; MaxPageSize
// caps what callers may request, since the store grows unboundedly.
const (
	DefaultPageSize = 100
	MaxPageSize     = 1000
)

// Store persists audit events. Append is durable before it returns. Query
// resumes strictly after the cursor in (timestamp, id) order.
type Store interface {
	Append(ctx context.Context, event models.Event) error
	Query(ctx context.Context, filter models.Filter, after models.Cursor, limit int) ([]models.Event, error)
	// ListAfterID returns events with ID greater than afterID in ID order.
	// Used by the relay to tail the store without a separate outbox table.
	ListAfterID(ctx context.Context, afterID int64, limit int) ([]models.Event, error)
}

// Sequencer allocates identifiers. Satisfied by the sequence service.
type Sequencer interface {
	Next(ctx context.Context, category string) (int64, error)
}

type Service struct {
	store   Store
	seq     Sequencer
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

func New(store Store, seq Sequencer, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("audit store is required")
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

// RecordRequest carries everything a caller knows about the event. Actor,
// timestamp and request ID fall back to request-scoped context values when
// unset, so business modules only supply what is specific to their action.
type RecordRequest struct {
	Subject domain.SubjectRef
	Actor   string
	Action  models.Action
	Payload json.RawMessage
	Source  string
}

// Record allocates an identifier, appends the event and returns it. The
// subject is never checked against a live entity: audit trails must survive
// entity deletion. Record performs no secondary side effects; notification
// and retry are the caller's concern.
func (s *Service) Record(ctx context.Context, req RecordRequest) (*models.Event, error) {
	if req.Subject.Type.IsNil() {
		return nil, fmt.Errorf("%w: subject type is required", sentinel.ErrInvalidArgument)
	}
	if !req.Action.IsValid() {
		return nil, fmt.Errorf("%w: unknown action %q", sentinel.ErrInvalidArgument, req.Action)
	}

	id, err := s.seq.Next(ctx, CategoryEvent)
	if err != nil {
		s.noteRecordFailure(ctx, err)
		return nil, err
	}

	actor := req.Actor
	if actor == "" {
		actor = requestcontext.Actor(ctx)
	}

	event := models.Event{
		ID:        id,
		Subject:   req.Subject,
		Actor:     actor,
		Action:    req.Action,
		Timestamp: requestcontext.Now(ctx).UTC(),
		Payload:   req.Payload,
		Source:    req.Source,
		RequestID: requestcontext.RequestID(ctx),
	}

	if err := s.store.Append(ctx, event); err != nil {
		s.noteRecordFailure(ctx, err)
		return nil, fmt.Errorf("record audit event: %w", err)
	}

	if s.metrics != nil {
		s.metrics.IncrementRecorded(string(event.Action))
	}
	return &event, nil
}

// Page is one bounded slice of a query result. Next is non-empty while more
// events may follow; re-running the same query with the same cursor yields
// the same page absent concurrent writes.
type Page struct {
	Events []models.Event
	Next   string
}

// Query returns events matching the filter, ordered by (timestamp, id)
// ascending, starting strictly after the cursor token.
func (s *Service) Query(ctx context.Context, filter models.Filter, cursorToken string, limit int) (*Page, error) {
	after, err := models.DecodeCursor(cursorToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sentinel.ErrInvalidArgument, err)
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	events, err := s.store.Query(ctx, filter, after, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}

	if s.metrics != nil {
		s.metrics.IncrementQueries()
	}

	page := &Page{Events: events}
	if len(events) == limit {
		last := events[len(events)-1]
		page.Next = models.Cursor{Timestamp: last.Timestamp, ID: last.ID}.Encode()
	}
	return page, nil
}

// Iterate streams matching events page by page to fn. Returning false from fn
// stops the iteration early; no resources outlive the call.
func (s *Service) Iterate(ctx context.Context, filter models.Filter, fn func(models.Event) bool) error {
	cursor := ""
	for {
		page, err := s.Query(ctx, filter, cursor, DefaultPageSize)
		if err != nil {
			return err
		}
		for _, event := range page.Events {
			if !fn(event) {
				return nil
			}
		}
		if page.Next == "" {
			return nil
		}
		cursor = page.Next
	}
}

func (s *Service) noteRecordFailure(ctx context.Context, err error) {
	if s.metrics != nil {
		s.metrics.IncrementRecordFailed()
	}
	// Silent loss of an audit trail is a compliance failure; make every
	// write failure visible to operators.
	if s.logger != nil {
		s.logger.ErrorContext(ctx, "audit event write failed",
			"error", err,
			"timestamp", time.Now().UTC(),
		)
	}
}
