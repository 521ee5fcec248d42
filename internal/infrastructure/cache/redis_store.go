package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/apibase/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "cache:"

// RedisStore implements Store using Redis. This is suitable for distributed
// deployments where multiple instances need to share cached state.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisStore creates a Redis-backed store from the configuration and
// verifies the connection.
func NewRedisStore(cfg config.RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{
		client:    client,
		keyPrefix: defaultKeyPrefix,
	}, nil
}

// NewRedisStoreWithClient creates a store with an existing Redis client.
// This is useful for testing or when sharing a client across components.
func NewRedisStoreWithClient(client *redis.Client, keyPrefix string) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &RedisStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Get returns the value for key, or ErrMiss when absent
func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, s.keyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrMiss
	}
	if err != nil {
		return "", fmt.Errorf("failed to get key: %w", err)
	}
	return value, nil
}

// Set stores value under key. A non-positive ttl means no expiration.
func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := s.client.Set(ctx, s.keyPrefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set key: %w", err)
	}
	return nil
}

// SetNX stores value only when the key is absent
func (s *RedisStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	if ttl < 0 {
		ttl = 0
	}
	stored, err := s.client.SetNX(ctx, s.keyPrefix+key, value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to set key: %w", err)
	}
	return stored, nil
}

// Delete removes the given keys
func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, key := range keys {
		prefixed[i] = s.keyPrefix + key
	}
	if err := s.client.Del(ctx, prefixed...).Err(); err != nil {
		return fmt.Errorf("failed to delete keys: %w", err)
	}
	return nil
}

// Exists reports whether the key is present
func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	count, err := s.client.Exists(ctx, s.keyPrefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check key: %w", err)
	}
	return count > 0, nil
}

// Increment atomically increments the counter at key. The ttl is applied
// only when the counter is created.
func (s *RedisStore) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	prefixed := s.keyPrefix + key
	count, err := s.client.Incr(ctx, prefixed).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment key: %w", err)
	}
	if count == 1 && ttl > 0 {
		if err := s.client.Expire(ctx, prefixed, ttl).Err(); err != nil {
			return 0, fmt.Errorf("failed to expire key: %w", err)
		}
	}
	return count, nil
}

// Ping checks the Redis connection
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis client
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// GetClient returns the underlying Redis client (for testing/monitoring)
func (s *RedisStore) GetClient() *redis.Client {
	return s.client
}

// Ensure RedisStore implements Store
var _ Store = (*RedisStore)(nil)
