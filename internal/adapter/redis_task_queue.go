package adapter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"questionnaire-engine/internal/cache"
	"questionnaire-engine/internal/domain"

	"github.com/redis/go-redis/v9"
)

// RedisTaskQueue is a FIFO of ids on a redis list. A dedupe key per id keeps
// the same id from being queued twice while it is pending or in progress.
type RedisTaskQueue struct {
	client    *redis.Client
	name      string
	dedupeTTL time.Duration
}

func NewRedisTaskQueue(client *redis.Client, name string, dedupeTTL time.Duration) domain.TaskQueue {
	return &RedisTaskQueue{client: client, name: name, dedupeTTL: dedupeTTL}
}

func (q *RedisTaskQueue) Enqueue(ctx context.Context, id string) (bool, error) {
	fresh, err := q.client.SetNX(ctx, cache.QueueDedupeKey(q.name, id), "1", q.dedupeTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to set dedupe key: %w", err)
	}
	if !fresh {
		return false, nil
	}
	if err := q.client.LPush(ctx, cache.QueueListKey(q.name), id).Err(); err != nil {
		return false, fmt.Errorf("failed to push task: %w", err)
	}
	return true, nil
}

func (q *RedisTaskQueue) Dequeue(ctx context.Context, timeout time.Duration) (string, error) {
	res, err := q.client.BRPop(ctx, timeout, cache.QueueListKey(q.name)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", domain.ErrQueueEmpty
		}
		return "", err
	}
	if len(res) != 2 {
		return "", fmt.Errorf("unexpected BRPOP reply: %v", res)
	}
	return res[1], nil
}

func (q *RedisTaskQueue) Ack(ctx context.Context, id string) error {
	return q.client.Del(ctx, cache.QueueDedupeKey(q.name, id)).Err()
}
