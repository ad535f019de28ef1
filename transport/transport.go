package transport

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimedOut is returned by PopWithTimeout when no payload arrived in time.
var ErrTimedOut = errors.New("timed out waiting for queue")

// Transport is the queue shared by every worker and the coordinator. It must
// allow concurrent pushes and a single consumer popping.
type Transport interface {
	// Push appends a payload to the queue.
	Push(ctx context.Context, payload []byte) error
	// PopWithTimeout blocks for up to timeout waiting for a payload, returning
	// ErrTimedOut if none arrives.
	PopWithTimeout(ctx context.Context, timeout time.Duration) ([]byte, error)
	// Close releases the underlying connection.
	Close() error
}

// Error wraps a connectivity failure of the underlying queue.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("queue transport %s failed: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
