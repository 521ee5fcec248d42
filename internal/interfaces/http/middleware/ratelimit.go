package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/apibase/backend/internal/infrastructure/cache"
	"github.com/apibase/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Rate limit response headers.
const (
	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
)

// RateLimiter keeps an in-memory token bucket per key, refilled once per
// window. Buckets idle for two windows are evicted in the background.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   int
	window  time.Duration
	stopCh  chan struct{}
	once    sync.Once
}

type bucket struct {
	tokens      int
	windowStart time.Time
}

// NewRateLimiter starts a limiter granting limit requests per window per key.
// Call Stop when done with it.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		buckets: make(map[string]*bucket),
		limit:   limit,
		window:  window,
		stopCh:  make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window * 2)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCh:
			return
		case <-ticker.C:
			rl.evictStale()
		}
	}
}

// evictStale drops buckets that have sat idle for more than two windows.
func (rl *RateLimiter) evictStale() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-2 * rl.window)
	for key, b := range rl.buckets {
		if b.windowStart.Before(cutoff) {
			delete(rl.buckets, key)
		}
	}
}

// Stop ends the background eviction goroutine. Safe to call repeatedly.
func (rl *RateLimiter) Stop() {
	rl.once.Do(func() {
		close(rl.stopCh)
	})
}

// Allow consumes one token for key and reports whether one was available.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b := rl.bucketFor(key)
	if b.tokens <= 0 {
		return false
	}
	b.tokens--
	return true
}

// bucketFor returns key's bucket, creating it full or refilling it when the
// current window has elapsed. Callers must hold mu.
func (rl *RateLimiter) bucketFor(key string) *bucket {
	now := time.Now()
	b, ok := rl.buckets[key]
	switch {
	case !ok:
		b = &bucket{tokens: rl.limit, windowStart: now}
		rl.buckets[key] = b
	case now.Sub(b.windowStart) >= rl.window:
		b.tokens = rl.limit
		b.windowStart = now
	}
	return b
}

// Remaining is how many requests key has left in the current window.
func (rl *RateLimiter) Remaining(key string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[key]
	if !ok || time.Since(b.windowStart) >= rl.window {
		return rl.limit
	}
	return b.tokens
}

// RateLimit limits requests per client IP.
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return RateLimitByKey(limiter, func(c *gin.Context) string {
		return c.ClientIP()
	})
}

// RateLimitByKey limits requests with a caller-supplied key extractor. Every
// response carries the limit headers; over-limit requests get 429.
func RateLimitByKey(limiter *RateLimiter, keyFunc func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyFunc(c)
		allowed := limiter.Allow(key)

		c.Header(HeaderRateLimitLimit, strconv.Itoa(limiter.limit))
		c.Header(HeaderRateLimitRemaining, strconv.Itoa(limiter.Remaining(key)))

		if !allowed {
			rateLimitExceeded(c)
			return
		}
		c.Next()
	}
}

// StoreRateLimiter counts requests in a cache.Store with a fixed window,
// so the limit holds across instances when the store is Redis.
type StoreRateLimiter struct {
	store  cache.Store
	limit  int64
	window time.Duration
	logger *zap.Logger
}

// NewStoreRateLimiter creates a store-backed rate limiter allowing limit
// requests per window per key.
func NewStoreRateLimiter(store cache.Store, limit int, window time.Duration, logger *zap.Logger) *StoreRateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StoreRateLimiter{
		store:  store,
		limit:  int64(limit),
		window: window,
		logger: logger,
	}
}

// Allow increments the counter for key and reports whether the request fits
// the window. remaining is how many requests are left in the current window.
func (s *StoreRateLimiter) Allow(c *gin.Context, key string) (allowed bool, remaining int64, err error) {
	count, err := s.store.Increment(c.Request.Context(), "ratelimit:"+key, s.window)
	if err != nil {
		return false, 0, err
	}
	remaining = s.limit - count
	if remaining < 0 {
		remaining = 0
	}
	return count <= s.limit, remaining, nil
}

// StoreRateLimit returns a rate limiting middleware backed by a cache.Store,
// keyed by client IP. Store failures let the request through; availability
// wins over strict limiting.
func StoreRateLimit(limiter *StoreRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()

		allowed, remaining, err := limiter.Allow(c, key)
		if err != nil {
			limiter.logger.Warn("Rate limit store unavailable, allowing request",
				zap.String("key", key),
				zap.Error(err),
			)
			c.Next()
			return
		}

		c.Header(HeaderRateLimitLimit, strconv.FormatInt(limiter.limit, 10))
		c.Header(HeaderRateLimitRemaining, strconv.FormatInt(remaining, 10))

		if !allowed {
			rateLimitExceeded(c)
			return
		}

		c.Next()
	}
}

func rateLimitExceeded(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests,
		dto.NewErrorResponse(dto.ErrCodeRateLimited, "Too many requests. Please try again later."))
}
