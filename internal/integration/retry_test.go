package integration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastBackoff(attempts int) Backoff {
	return Backoff{Base: time.Millisecond, Max: 2 * time.Millisecond, MaxAttempts: attempts}
}

func retryableFault() *Fault {
	return &Fault{Kind: KindServiceUnavailable, Message: "unexpected status 503", StatusCode: 503}
}

func TestDoSucceedsAfterRetryableFaults(t *testing.T) {
	var attempts []int
	err := fastBackoff(4).Do(context.Background(), func(_ context.Context, attempt int) error {
		attempts = append(attempts, attempt)
		if attempt < 3 {
			return retryableFault()
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, attempts)
}

func TestDoStopsOnNonRetryableFault(t *testing.T) {
	calls := 0
	fault := &Fault{Kind: KindAuthentication, Message: "unexpected status 403", StatusCode: 403}

	err := fastBackoff(5).Do(context.Background(), func(context.Context, int) error {
		calls++
		return fault
	})
	assert.Equal(t, 1, calls)
	var got *Fault
	require.ErrorAs(t, err, &got)
	assert.Equal(t, KindAuthentication, got.Kind)
}

func TestDoStopsOnUnclassifiedError(t *testing.T) {
	calls := 0
	err := fastBackoff(5).Do(context.Background(), func(context.Context, int) error {
		calls++
		return errors.New("not a fault")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoExhaustsAttempts(t *testing.T) {
	calls := 0
	err := fastBackoff(3).Do(context.Background(), func(context.Context, int) error {
		calls++
		return retryableFault()
	})
	assert.Equal(t, 3, calls)
	var got *Fault
	require.ErrorAs(t, err, &got)
	assert.Equal(t, KindServiceUnavailable, got.Kind)
}

func TestDoHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := Backoff{Base: time.Hour, Max: time.Hour, MaxAttempts: 5}.Do(ctx, func(context.Context, int) error {
		calls++
		cancel()
		return retryableFault()
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls, "cancellation preempts the backoff sleep")
}

func TestDoDefaultsToSingleAttempt(t *testing.T) {
	calls := 0
	_ = Backoff{}.Do(context.Background(), func(context.Context, int) error {
		calls++
		return retryableFault()
	})
	assert.Equal(t, 1, calls)
}
