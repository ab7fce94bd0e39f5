package errors

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func instantSleep(ctx context.Context, d time.Duration) error { return nil }

func TestRetry_SucceedsAfterTransientErrors(t *testing.T) {
	rc := NewRetryControllerWith(time.Millisecond, time.Second, 5).WithSleep(instantSleep)

	calls := 0
	err := rc.Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return ErrThrottled
		}
		return nil
	}, NewClassifier())

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_PermanentErrorReturnsImmediately(t *testing.T) {
	rc := NewRetryControllerWith(time.Millisecond, time.Second, 5).WithSleep(instantSleep)

	calls := 0
	err := rc.Do(context.Background(), func() error {
		calls++
		return ErrNotFound
	}, NewClassifier())

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetry_BudgetExhaustion(t *testing.T) {
	rc := NewRetryControllerWith(time.Millisecond, time.Second, 3).WithSleep(instantSleep)

	calls := 0
	err := rc.Do(context.Background(), func() error {
		calls++
		return ErrThrottled
	}, NewClassifier())

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrThrottled))
	assert.Equal(t, 4, calls, "initial attempt plus three retries")
}

func TestRetry_CancelledContextStopsRetrying(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	rc := NewRetryControllerWith(time.Millisecond, time.Second, 5).
		WithSleep(func(ctx context.Context, d time.Duration) error {
			cancel()
			return ctx.Err()
		})

	calls := 0
	err := rc.Do(ctx, func() error {
		calls++
		return ErrThrottled
	}, NewClassifier())

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDelay_BoundedAndNonNegative(t *testing.T) {
	rc := NewRetryControllerWith(10*time.Millisecond, time.Second, 10)

	for attempt := 0; attempt < 20; attempt++ {
		d := rc.Delay(attempt)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		// Cap plus 25% jitter headroom.
		assert.LessOrEqual(t, d, time.Second+time.Second/4)
	}
}

func TestDelay_GrowsExponentiallyBeforeCap(t *testing.T) {
	rc := NewRetryControllerWith(10*time.Millisecond, time.Hour, 10)

	// Jitter is +/-25%, so attempt 3 (80ms nominal) always exceeds
	// attempt 0's maximum (12.5ms).
	assert.Greater(t, rc.Delay(3), rc.Delay(0))
}
