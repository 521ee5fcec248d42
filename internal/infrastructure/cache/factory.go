package cache

import (
	"fmt"

	"github.com/apibase/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// StoreFactory creates cache stores based on configuration
type StoreFactory struct {
	redisConfig         config.RedisConfig
	logger              *zap.Logger
	allowMemoryFallback bool
}

// StoreFactoryOption is a functional option for configuring the factory
type StoreFactoryOption func(*StoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) StoreFactoryOption {
	return func(f *StoreFactory) {
		f.logger = logger
	}
}

// WithMemoryFallback controls whether to fall back to the in-memory store
// when Redis is unavailable. Default is true (allow fallback).
func WithMemoryFallback(allow bool) StoreFactoryOption {
	return func(f *StoreFactory) {
		f.allowMemoryFallback = allow
	}
}

// NewStoreFactory creates a new factory
func NewStoreFactory(cfg config.RedisConfig, opts ...StoreFactoryOption) *StoreFactory {
	f := &StoreFactory{
		redisConfig:         cfg,
		logger:              zap.NewNop(),
		allowMemoryFallback: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateRedisStore creates a Redis-backed store
func (f *StoreFactory) CreateRedisStore() (Store, error) {
	store, err := NewRedisStore(f.redisConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis cache store: %w", err)
	}
	return store, nil
}

// CreateMemoryStore creates an in-memory store.
// WARNING: in-memory stores do not share state across process instances.
func (f *StoreFactory) CreateMemoryStore() Store {
	return NewMemoryStore()
}

// CreateStore creates a cache store based on the configuration. When Redis
// is disabled the in-memory store is used directly; when Redis is enabled
// but unreachable the factory falls back to memory unless fallback is
// disallowed.
func (f *StoreFactory) CreateStore() (Store, error) {
	if !f.redisConfig.Enabled {
		f.logger.Info("redis disabled, using in-memory cache store")
		return f.CreateMemoryStore(), nil
	}

	store, err := f.CreateRedisStore()
	if err == nil {
		f.logger.Info("using Redis cache store",
			zap.String("addr", f.redisConfig.Addr()),
		)
		return store, nil
	}

	if !f.allowMemoryFallback {
		return nil, fmt.Errorf("Redis required for cache but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory cache store. "+
		"Cached state will not be shared across instances.",
		zap.Error(err),
	)
	return f.CreateMemoryStore(), nil
}
