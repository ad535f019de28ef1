package redisqueue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v7"
	"github.com/kcz17/benchmetrics/transport"
)

// DefaultKey is the list workers push their payloads onto.
const DefaultKey = "metrics"

// RedisQueue implements transport.Transport with a Redis list: workers LPUSH
// and the coordinator BRPOPs, so payloads are consumed oldest first.
type RedisQueue struct {
	client *redis.Client
	key    string
}

func NewRedisQueue(addr string, password string, db int, key string) *RedisQueue {
	return NewRedisQueueWithClient(redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}), key)
}

func NewRedisQueueWithClient(client *redis.Client, key string) *RedisQueue {
	if key == "" {
		key = DefaultKey
	}
	return &RedisQueue{client: client, key: key}
}

func (q *RedisQueue) Push(ctx context.Context, payload []byte) error {
	if err := q.client.WithContext(ctx).LPush(q.key, payload).Err(); err != nil {
		return &transport.Error{Op: "push", Err: err}
	}
	return nil
}

func (q *RedisQueue) PopWithTimeout(ctx context.Context, timeout time.Duration) ([]byte, error) {
	result, err := q.client.WithContext(ctx).BRPop(blockingTimeout(timeout), q.key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, transport.ErrTimedOut
	}
	if err != nil {
		return nil, &transport.Error{Op: "pop", Err: err}
	}

	// BRPOP replies with the key followed by the popped value.
	if len(result) != 2 {
		return nil, &transport.Error{Op: "pop", Err: fmt.Errorf("expected BRPOP reply of 2 elements; got %d", len(result))}
	}
	return []byte(result[1]), nil
}

func (q *RedisQueue) Close() error {
	return q.client.Close()
}

// blockingTimeout rounds timeout up to whole seconds. BRPOP takes integer
// seconds and treats 0 as block forever, so sub-second timeouts become 1s.
func blockingTimeout(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		return time.Second
	}
	if rem := timeout % time.Second; rem != 0 {
		timeout += time.Second - rem
	}
	return timeout
}
