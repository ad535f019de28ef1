package transport

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrClosed = errors.New("queue closed")

// MemoryQueue is a Transport for a single process, used when workers run as
// goroutines and in tests.
type MemoryQueue struct {
	payloads  chan []byte
	closed    chan struct{}
	closeOnce *sync.Once
}

func NewMemoryQueue(capacity int) *MemoryQueue {
	return &MemoryQueue{
		payloads:  make(chan []byte, capacity),
		closed:    make(chan struct{}),
		closeOnce: &sync.Once{},
	}
}

func (q *MemoryQueue) Push(ctx context.Context, payload []byte) error {
	select {
	case <-q.closed:
		return &Error{Op: "push", Err: ErrClosed}
	default:
	}

	select {
	case q.payloads <- payload:
		return nil
	case <-q.closed:
		return &Error{Op: "push", Err: ErrClosed}
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *MemoryQueue) PopWithTimeout(ctx context.Context, timeout time.Duration) ([]byte, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case payload := <-q.payloads:
		return payload, nil
	case <-timer.C:
		return nil, ErrTimedOut
	case <-q.closed:
		return nil, &Error{Op: "pop", Err: ErrClosed}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (q *MemoryQueue) Len() int {
	return len(q.payloads)
}

func (q *MemoryQueue) Close() error {
	q.closeOnce.Do(func() { close(q.closed) })
	return nil
}
