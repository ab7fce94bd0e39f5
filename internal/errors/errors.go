package errors

import (
	"errors"
)

// Engine error taxonomy. Caller errors surface immediately; transient
// store errors are retried inside the executor and surface only after
// the retry budget is exhausted.
var (
	// ErrUnsupportedOperator is returned when a condition carries an
	// operator outside the supported set (eq, lt, lte, gt, gte, in).
	ErrUnsupportedOperator = errors.New("unsupported condition operator")

	// ErrConflictingCondition is returned when two mutually exclusive
	// conditions target the same field (e.g. two range directions).
	ErrConflictingCondition = errors.New("conflicting conditions on field")

	// ErrMapping is returned when a record cannot be converted to or
	// from a raw store item.
	ErrMapping = errors.New("record mapping failed")

	// ErrNotFound is returned when a direct key lookup finds no item.
	ErrNotFound = errors.New("record not found")

	// ErrThrottled is returned when the store rejects a request due to
	// throughput limits. Retried with backoff.
	ErrThrottled = errors.New("request throttled by store")

	// ErrUnprocessedItems is returned when a batch call still has
	// unprocessed items after the retry budget is exhausted.
	ErrUnprocessedItems = errors.New("unprocessed items remain after retries")

	// ErrStoreUnavailable is returned when the store cannot be reached.
	// Fatal for the current call after a small fixed number of attempts.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrExecutorStopped is returned when submitting work to a released executor.
	ErrExecutorStopped = errors.New("executor is stopped")

	// ErrUnknownRecordType is returned when no schema descriptor is
	// registered for the requested record type.
	ErrUnknownRecordType = errors.New("unknown record type")
)
