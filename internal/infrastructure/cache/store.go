package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Get when the key does not exist or has expired.
var ErrMiss = errors.New("cache: key not found")

// Store is a TTL key-value cache shared by application components. The two
// implementations are Redis for distributed deployments and an in-memory
// map for single-instance setups and tests; both keep the same semantics so
// callers never care which one they got.
type Store interface {
	// Get returns the value for key, or ErrMiss when absent.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key. A non-positive ttl means no expiration.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// SetNX stores value only when the key is absent. Returns true when the
	// value was stored.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// Delete removes the given keys. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error

	// Exists reports whether the key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// Increment atomically increments the counter at key and returns the new
	// value. The ttl applies only when the counter is created, so a fixed
	// window survives its increments.
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// Ping checks the backing store is reachable.
	Ping(ctx context.Context) error

	// Close releases resources held by the store.
	Close() error
}
