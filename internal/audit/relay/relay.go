// Package relay streams recorded audit events to a Kafka topic for downstream
// SIEM and compliance consumers. The relay tails the audit store in ID order,
// so Record stays a passive append with no secondary side effects of its own.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"fieldledger/internal/audit/models"
)

// Store is the slice of the audit store the relay needs.
type Store interface {
	ListAfterID(ctx context.Context, afterID int64, limit int) ([]models.Event, error)
}

// Publisher delivers one serialized event. Kafka in production, a recording
// fake in tests.
type Publisher interface {
	Publish(ctx context.Context, key string, value []byte) error
}

// Relay periodically drains events appended since its high-water mark.
// Delivery is at-least-once: a failed publish leaves the mark untouched and
// the batch is retried on the next tick, so consumers must dedupe on event ID.
type Relay struct {
	store     Store
	publisher Publisher
	logger    *slog.Logger
	interval  time.Duration
	batchSize int

	lastID int64
}

func New(store Store, publisher Publisher, logger *slog.Logger, interval time.Duration, batchSize int) (*Relay, error) {
	if store == nil {
		return nil, fmt.Errorf("audit store is required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 500
	}
	return &Relay{
		store:     store,
		publisher: publisher,
		logger:    logger,
		interval:  interval,
		batchSize: batchSize,
	}, nil
}

// Run drains on a fixed interval until the context is cancelled. Store and
// publish failures are logged and retried on the next tick rather than
// stopping the relay.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.Drain(ctx); err != nil {
				if r.logger != nil {
					r.logger.ErrorContext(ctx, "audit relay drain failed",
						"after_id", r.lastID,
						"error", err,
					)
				}
			}
		}
	}
}

// Drain publishes everything past the high-water mark, advancing it per event
// so a mid-batch failure never re-publishes what already succeeded.
func (r *Relay) Drain(ctx context.Context) error {
	for {
		events, err := r.store.ListAfterID(ctx, r.lastID, r.batchSize)
		if err != nil {
			return fmt.Errorf("list events after %d: %w", r.lastID, err)
		}
		if len(events) == 0 {
			return nil
		}

		for _, event := range events {
			value, err := json.Marshal(event)
			if err != nil {
				return fmt.Errorf("marshal event %d: %w", event.ID, err)
			}
			if err := r.publisher.Publish(ctx, messageKey(event), value); err != nil {
				return fmt.Errorf("publish event %d: %w", event.ID, err)
			}
			r.lastID = event.ID
		}

		if len(events) < r.batchSize {
			return nil
		}
	}
}

// LastID returns the relay's high-water mark.
func (r *Relay) LastID() int64 {
	return r.lastID
}

// messageKey partitions by subject so all events for one entity land on one
// partition in order.
func messageKey(event models.Event) string {
	if !event.Subject.IsNil() {
		return event.Subject.String()
	}
	return strconv.FormatInt(event.ID, 10)
}
