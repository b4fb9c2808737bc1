package integration

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// Backoff retries an operation with exponential delays and full jitter.
// Only retryable faults are retried; everything else fails fast.
type Backoff struct {
	Base        time.Duration
	Max         time.Duration
	MaxAttempts int
}

// DefaultBackoff suits interactive sync calls: three quick attempts.
var DefaultBackoff = Backoff{
	Base:        250 * time.Millisecond,
	Max:         5 * time.Second,
	MaxAttempts: 3,
}

// Do runs fn until it succeeds, exhausts attempts, returns a non-retryable
// fault, or the context ends. The attempt number passed to fn starts at 1.
// The last error is returned unchanged so callers can inspect the fault.
func (b Backoff) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) error {
	attempts := b.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn(ctx, attempt)
		if lastErr == nil {
			return nil
		}

		var fault *Fault
		if !errors.As(lastErr, &fault) || !fault.Retryable() {
			return lastErr
		}
		if attempt == attempts {
			return lastErr
		}

		select {
		case <-time.After(b.delay(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}

func (b Backoff) delay(attempt int) time.Duration {
	base := b.Base
	if base <= 0 {
		base = 250 * time.Millisecond
	}
	max := b.Max
	if max <= 0 {
		max = 5 * time.Second
	}

	d := base << (attempt - 1)
	if d > max || d <= 0 {
		d = max
	}
	return time.Duration(rand.Int63n(int64(d)) + 1)
}
