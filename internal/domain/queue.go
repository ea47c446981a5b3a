package domain

import (
	"context"
	"errors"
	"time"
)

// ErrQueueEmpty is returned by TaskQueue.Dequeue when nothing arrived within
// the poll timeout.
var ErrQueueEmpty = errors.New("queue: empty")

// TaskQueue carries submission ids from the API to the evaluation worker.
type TaskQueue interface {
	// Enqueue pushes id unless the same id was pushed within the dedupe
	// window. It reports whether the id was pushed.
	Enqueue(ctx context.Context, id string) (bool, error)

	// Dequeue blocks up to timeout for the next id.
	Dequeue(ctx context.Context, timeout time.Duration) (string, error)

	// Ack clears the dedupe key so the id can be queued again.
	Ack(ctx context.Context, id string) error
}

// Locker guards a key across processes.
type Locker interface {
	// TryLock returns a release func when the lock was taken, or ok=false
	// when someone else holds it.
	TryLock(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, ok bool, err error)
}
