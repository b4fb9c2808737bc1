// Package sequence issues unique, monotonically increasing identifiers per
// entity category. Identifiers are never recycled; gaps after a crash are
// acceptable, duplicates are not.
package sequence

import (
	"context"
	"fmt"
	"log/slog"

	"fieldledger/internal/sequence/metrics"
	"fieldledger/pkg/platform/sentinel"
)

// Store is the atomic counter backend. Next must be a single serialized
// increment-and-fetch; two concurrent callers never observe the same value.
type Store interface {
	Next(ctx context.Context, category string) (int64, error)
}

type Service struct {
	store   Store
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

func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("sequence store is required")
	}

	svc := &Service{store: store}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Next allocates the next identifier for a category. When the backing counter
// store is unreachable the error wraps sentinel.ErrStorageUnavailable; callers
// must surface it rather than fabricate an identifier locally.
func (s *Service) Next(ctx context.Context, category string) (int64, error) {
	if category == "" {
		return 0, fmt.Errorf("%w: category is required", sentinel.ErrInvalidArgument)
	}

	value, err := s.store.Next(ctx, category)
	if err != nil {
		if s.metrics != nil {
			s.metrics.IncrementAllocationFailed(category)
		}
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "identifier allocation failed",
				"category", category,
				"error", err,
			)
		}
		return 0, fmt.Errorf("next identifier for %q: %w", category, err)
	}

	if s.metrics != nil {
		s.metrics.IncrementAllocated(category)
	}
	return value, nil
}
