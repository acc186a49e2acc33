package domain

import "errors"

var (
	// ErrMalformedDelivery is returned when a queue message cannot be decoded
	ErrMalformedDelivery = errors.New("malformed notification delivery")

	// ErrMaxRetriesExceeded is returned when a notification has used all its attempts
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
)

// RetryableError wraps transient errors that should trigger another attempt
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return "retryable error: " + e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// NewRetryableError creates a new retryable error
func NewRetryableError(err error) error {
	return &RetryableError{Err: err}
}
