package cache

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"
)

// memoryEntry represents a stored value with expiration
type memoryEntry struct {
	value     string
	expiresAt time.Time // zero means no expiration
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// MemoryStore implements Store using an in-memory map. It is suitable for
// single-instance deployments and testing; state is not shared across
// processes.
type MemoryStore struct {
	mu        sync.RWMutex
	entries   map[string]memoryEntry
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewMemoryStore creates a new in-memory store. It starts a background
// goroutine to clean up expired entries.
func NewMemoryStore() *MemoryStore {
	store := &MemoryStore{
		entries:  make(map[string]memoryEntry),
		stopChan: make(chan struct{}),
	}

	store.wg.Add(1)
	go store.cleanupLoop()

	return store
}

// Get returns the value for key, or ErrMiss when absent or expired
func (s *MemoryStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.entries[key]
	if !exists || e.expired(time.Now()) {
		return "", ErrMiss
	}
	return e.value, nil
}

// Set stores value under key, overwriting any previous value
func (s *MemoryStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = memoryEntry{
		value:     value,
		expiresAt: expiryFor(ttl),
	}
	return nil
}

// SetNX stores value only when the key is absent or expired
func (s *MemoryStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, exists := s.entries[key]; exists && !e.expired(time.Now()) {
		return false, nil
	}

	s.entries[key] = memoryEntry{
		value:     value,
		expiresAt: expiryFor(ttl),
	}
	return true, nil
}

// Delete removes the given keys
func (s *MemoryStore) Delete(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		delete(s.entries, key)
	}
	return nil
}

// Exists reports whether the key is present and not expired
func (s *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.entries[key]
	return exists && !e.expired(time.Now()), nil
}

// Increment atomically increments the counter at key. The ttl is applied
// only when the counter is created.
func (s *MemoryStore) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.entries[key]
	if !exists || e.expired(time.Now()) {
		s.entries[key] = memoryEntry{
			value:     "1",
			expiresAt: expiryFor(ttl),
		}
		return 1, nil
	}

	count, err := strconv.ParseInt(e.value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("cache: value at %q is not an integer", key)
	}
	count++

	e.value = strconv.FormatInt(count, 10)
	s.entries[key] = e
	return count, nil
}

// Ping always succeeds for the in-memory store
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Close stops the cleanup goroutine and releases resources.
// Safe to call multiple times.
func (s *MemoryStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

// cleanupLoop periodically removes expired entries
func (s *MemoryStore) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

// cleanup removes expired entries from the store
func (s *MemoryStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for key, e := range s.entries {
		if e.expired(now) {
			delete(s.entries, key)
		}
	}
}

// Size returns the number of entries in the store (for testing/monitoring)
func (s *MemoryStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func expiryFor(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return time.Now().Add(ttl)
}

// Ensure MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)
