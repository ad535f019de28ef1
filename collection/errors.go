package collection

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrCollectionTimeout = errors.New("collection timed out")
	ErrMalformedPayload  = errors.New("malformed worker payload")
)

// CollectionTimeoutError is returned when a worker's payload did not arrive in
// time and timed out slots are not skipped.
type CollectionTimeoutError struct {
	Attempt int
	Timeout time.Duration
}

func (e *CollectionTimeoutError) Error() string {
	return fmt.Sprintf("%s: %s", ErrCollectionTimeout, timeoutMessage(e.Attempt, e.Timeout))
}

func (e *CollectionTimeoutError) Is(target error) bool {
	return target == ErrCollectionTimeout
}

// MalformedPayloadError is returned when a popped payload cannot be decoded.
type MalformedPayloadError struct {
	Attempt int
	Err     error
}

func (e *MalformedPayloadError) Error() string {
	return fmt.Sprintf("%s from worker %d: %v", ErrMalformedPayload, e.Attempt, e.Err)
}

func (e *MalformedPayloadError) Is(target error) bool {
	return target == ErrMalformedPayload
}

func (e *MalformedPayloadError) Unwrap() error { return e.Err }

func timeoutMessage(attempt int, timeout time.Duration) string {
	return fmt.Sprintf("Timed out waiting for queue (%g sec, worker %d).", timeout.Seconds(), attempt)
}
