package rmqqueue

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/adjust/rmq/v3"
	"github.com/go-redis/redis/v7"
	"github.com/kcz17/benchmetrics/transport"
)

const (
	connectionTag = "benchmetrics"
	prefetchLimit = 1
	pollDuration  = 100 * time.Millisecond
)

// RMQQueue implements transport.Transport on top of adjust/rmq. Unlike the
// plain Redis list, a payload is only acknowledged once the coordinator has
// popped it, so payloads held by a crashed coordinator are returned to the
// queue by rmq's cleaner.
type RMQQueue struct {
	queue rmq.Queue

	// deliveries hands payloads from the rmq consumer goroutine to
	// PopWithTimeout. It is unbuffered so at most one delivery is waiting.
	deliveries chan rmq.Delivery
	closed     chan struct{}

	startMux *sync.Mutex
	started  bool
	close    *sync.Once
}

func NewRMQQueue(addr string, password string, db int, name string) (*RMQQueue, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// Create a goroutine for reading and logging background heartbeat errors.
	errChan := make(chan error, 10)
	go func() {
		for err := range errChan {
			log.Printf("rmq background error: %v\n", err)
		}
	}()

	connection, err := rmq.OpenConnectionWithRedisClient(connectionTag, client, errChan)
	if err != nil {
		return nil, &transport.Error{Op: "connect", Err: err}
	}
	queue, err := connection.OpenQueue(name)
	if err != nil {
		return nil, &transport.Error{Op: "connect", Err: fmt.Errorf("could not open queue %s: %w", name, err)}
	}

	return &RMQQueue{
		queue:      queue,
		deliveries: make(chan rmq.Delivery),
		closed:     make(chan struct{}),
		startMux:   &sync.Mutex{},
		close:      &sync.Once{},
	}, nil
}

func (q *RMQQueue) Push(_ context.Context, payload []byte) error {
	if err := q.queue.PublishBytes(payload); err != nil {
		return &transport.Error{Op: "push", Err: err}
	}
	return nil
}

func (q *RMQQueue) PopWithTimeout(ctx context.Context, timeout time.Duration) ([]byte, error) {
	select {
	case <-q.closed:
		return nil, &transport.Error{Op: "pop", Err: transport.ErrClosed}
	default:
	}
	if err := q.startConsuming(); err != nil {
		return nil, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case delivery := <-q.deliveries:
		payload := []byte(delivery.Payload())
		if err := delivery.Ack(); err != nil {
			return nil, &transport.Error{Op: "ack", Err: err}
		}
		return payload, nil
	case <-timer.C:
		return nil, transport.ErrTimedOut
	case <-q.closed:
		return nil, &transport.Error{Op: "pop", Err: transport.ErrClosed}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// startConsuming registers the consumer on first pop, so worker processes
// that only push never consume.
func (q *RMQQueue) startConsuming() error {
	q.startMux.Lock()
	defer q.startMux.Unlock()
	if q.started {
		return nil
	}

	if err := q.queue.StartConsuming(prefetchLimit, pollDuration); err != nil {
		return &transport.Error{Op: "consume", Err: err}
	}
	if _, err := q.queue.AddConsumerFunc(connectionTag, q.consume); err != nil {
		return &transport.Error{Op: "consume", Err: err}
	}

	q.started = true
	return nil
}

func (q *RMQQueue) consume(delivery rmq.Delivery) {
	select {
	case q.deliveries <- delivery:
	case <-q.closed:
		// Left unacked; the rmq cleaner returns it to the ready list.
	}
}

func (q *RMQQueue) Close() error {
	q.close.Do(func() {
		close(q.closed)
		q.startMux.Lock()
		started := q.started
		q.startMux.Unlock()
		if started {
			<-q.queue.StopConsuming()
		}
	})
	return nil
}
