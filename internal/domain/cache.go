package domain

import (
	"context"
	"time"
)

// CacheError represents an error originating from the cache.
type CacheError string

func (e CacheError) Error() string {
	return string(e)
}

// ErrCacheMiss is returned when a key is not found in the cache.
const ErrCacheMiss = CacheError("cache: key not found")

// Cache is the key/value port used for definition caching and the
// evaluation lock.
type Cache interface {
	// Get returns ErrCacheMiss if the key is not found.
	Get(ctx context.Context, key string) (string, error)

	// Set overwrites the key. An expiration of 0 keeps it indefinitely.
	Set(ctx context.Context, key string, value string, expiration time.Duration) error

	// SetNX sets the key only if it does not exist and reports whether it did.
	SetNX(ctx context.Context, key string, value string, expiration time.Duration) (bool, error)

	// CompareAndDelete deletes the key only while it still holds value.
	CompareAndDelete(ctx context.Context, key string, value string) (bool, error)

	// Delete does not fail on a missing key.
	Delete(ctx context.Context, key string) error

	Ping(ctx context.Context) error
}
