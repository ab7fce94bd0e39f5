package errors

import (
	"context"
	"math/rand"
	"time"
)

// SleepFunc blocks for the given duration or until the context is done.
// Injectable so tests run without real delays.
type SleepFunc func(ctx context.Context, d time.Duration) error

func defaultSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RetryController implements bounded exponential backoff with jitter.
type RetryController struct {
	initialDelay time.Duration
	maxDelay     time.Duration
	maxRetries   int
	sleep        SleepFunc
}

// NewRetryController creates a retry controller with default settings.
// Default: initial delay 10ms, max delay 1s, max retries 5.
func NewRetryController() *RetryController {
	return NewRetryControllerWith(10*time.Millisecond, time.Second, 5)
}

// NewRetryControllerWith creates a retry controller with explicit bounds.
func NewRetryControllerWith(initial, max time.Duration, retries int) *RetryController {
	return &RetryController{
		initialDelay: initial,
		maxDelay:     max,
		maxRetries:   retries,
		sleep:        defaultSleep,
	}
}

// WithSleep replaces the sleep function. Used by tests for determinism.
func (rc *RetryController) WithSleep(fn SleepFunc) *RetryController {
	rc.sleep = fn
	return rc
}

// MaxRetries returns the retry budget.
func (rc *RetryController) MaxRetries() int {
	return rc.maxRetries
}

// Do executes fn with retry based on error classification. Permanent and
// validation errors return immediately; transient and network errors are
// retried until the budget is exhausted or the context is cancelled.
func (rc *RetryController) Do(ctx context.Context, fn func() error, classifier *Classifier) error {
	var lastErr error

	for attempt := 0; attempt <= rc.maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err
		category := classifier.Classify(err)

		if !classifier.ShouldRetry(category) {
			return err
		}

		if attempt >= rc.maxRetries {
			return err
		}

		if serr := rc.sleep(ctx, rc.Delay(attempt)); serr != nil {
			return lastErr
		}
	}

	return lastErr
}

// Sleep waits out the backoff delay for the given attempt, honoring the context.
func (rc *RetryController) Sleep(ctx context.Context, attempt int) error {
	return rc.sleep(ctx, rc.Delay(attempt))
}

// Delay calculates the backoff for a given attempt: exponential with
// +/-25% jitter, capped at the max delay.
func (rc *RetryController) Delay(attempt int) time.Duration {
	delay := rc.initialDelay * time.Duration(1<<uint(attempt))

	if delay > rc.maxDelay || delay <= 0 {
		delay = rc.maxDelay
	}

	jitter := time.Duration(float64(delay) * 0.25 * (rand.Float64()*2 - 1))
	delay += jitter

	if delay < 0 {
		delay = rc.initialDelay
	}

	return delay
}
