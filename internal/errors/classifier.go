package errors

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
)

// ErrorCategory represents the category of an error for retry logic.
type ErrorCategory int

const (
	ErrorTransient  ErrorCategory = iota // Throttling - retry with backoff
	ErrorPermanent                       // Permanent errors - no retry
	ErrorCritical                        // Store outage - limited retry, then fatal
	ErrorValidation                      // Caller/data errors - no retry
	ErrorNetwork                         // Network-related - retry with backoff
)

// Classifier categorizes errors for retry logic in the executor.
type Classifier struct{}

// NewClassifier creates a new error classifier.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Classify determines the category of an error.
func (c *Classifier) Classify(err error) ErrorCategory {
	if err == nil {
		return ErrorPermanent // Should not happen, but safe default
	}

	// Cancellation is caller-driven, never retried.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ErrorPermanent
	}

	// Typed DynamoDB errors
	var throttle *types.ProvisionedThroughputExceededException
	if errors.As(err, &throttle) {
		return ErrorTransient
	}
	var limit *types.LimitExceededException
	if errors.As(err, &limit) {
		return ErrorTransient
	}
	var requestLimit *types.RequestLimitExceeded
	if errors.As(err, &requestLimit) {
		return ErrorTransient
	}
	var internal *types.InternalServerError
	if errors.As(err, &internal) {
		return ErrorNetwork
	}
	var missing *types.ResourceNotFoundException
	if errors.As(err, &missing) {
		return ErrorPermanent
	}

	// Generic AWS API errors by code
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException", "ProvisionedThroughputExceededException", "RequestLimitExceeded":
			return ErrorTransient
		case "ServiceUnavailable", "InternalServerError", "InternalFailure":
			return ErrorNetwork
		case "ValidationException", "SerializationException":
			return ErrorValidation
		}
		return ErrorPermanent
	}

	// Known engine errors
	switch {
	case errors.Is(err, ErrThrottled):
		return ErrorTransient
	case errors.Is(err, ErrStoreUnavailable):
		return ErrorCritical
	case errors.Is(err, ErrUnsupportedOperator),
		errors.Is(err, ErrConflictingCondition),
		errors.Is(err, ErrMapping):
		return ErrorValidation
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrUnknownRecordType):
		return ErrorPermanent
	case errors.Is(err, ErrExecutorStopped):
		return ErrorPermanent
	}

	// Default: treat as permanent (no retry)
	return ErrorPermanent
}

// ShouldRetry returns true if the error category indicates retry is appropriate.
func (c *Classifier) ShouldRetry(category ErrorCategory) bool {
	return category == ErrorTransient || category == ErrorNetwork
}

// IsCritical returns true if the error indicates a store outage.
func (c *Classifier) IsCritical(category ErrorCategory) bool {
	return category == ErrorCritical
}
