package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"guidinghand/internal/tasks"
)

const defaultBlockTimeout = 2 * time.Second

// Redis is a durable queue on a Redis list. Producers LPUSH and consumers
// BRPOP, so tasks are delivered oldest first to exactly one consumer.
type Redis struct {
	rdb          redis.UniversalClient
	key          string
	blockTimeout time.Duration
}

// NewRedis creates a queue on the list named key.
func NewRedis(rdb redis.UniversalClient, key string) *Redis {
	return &Redis{rdb: rdb, key: key, blockTimeout: defaultBlockTimeout}
}

func (q *Redis) Enqueue(ctx context.Context, t tasks.Task) error {
	payload, err := tasks.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	if err := q.rdb.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("redis LPUSH: %w", err)
	}
	return nil
}

// Dequeue polls with a short BRPOP timeout so ctx cancellation is noticed
// promptly. A payload that does not decode is dropped and reported as an
// error.
func (q *Redis) Dequeue(ctx context.Context) (tasks.Task, error) {
	for {
		if err := ctx.Err(); err != nil {
			return tasks.Task{}, err
		}
		res, err := q.rdb.BRPop(ctx, q.blockTimeout, q.key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return tasks.Task{}, ctxErr
			}
			return tasks.Task{}, fmt.Errorf("redis BRPOP: %w", err)
		}
		// res is [key, value]
		if len(res) != 2 {
			return tasks.Task{}, fmt.Errorf("redis BRPOP: unexpected reply of length %d", len(res))
		}
		t, err := tasks.Unmarshal([]byte(res[1]))
		if err != nil {
			return tasks.Task{}, fmt.Errorf("drop malformed task: %w", err)
		}
		return t, nil
	}
}

// Len returns the number of pending tasks.
func (q *Redis) Len(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, q.key).Result()
}
