package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Counter is the subset of the Redis client the limiter needs. IncrWindow
// must set the window TTL atomically with the first increment.
type Counter interface {
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error)
}

type Limiter interface {
	// Allow registers one hit for key and reports whether it is within the limit.
	Allow(ctx context.Context, key string) (bool, error)
}

// RedisLimiter is a fixed window counter. When Redis fails it degrades to
// the in-memory limiter instead of rejecting visitors.
type RedisLimiter struct {
	counter  Counter
	limit    int64
	window   time.Duration
	prefix   string
	fallback *MemoryLimiter
	logger   *zap.Logger
}

func NewRedisLimiter(counter Counter, prefix string, limit int64, window time.Duration, logger *zap.Logger) *RedisLimiter {
	return &RedisLimiter{
		counter:  counter,
		limit:    limit,
		window:   window,
		prefix:   prefix,
		fallback: NewMemoryLimiter(limit, window),
		logger:   logger,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	k := fmt.Sprintf("ratelimit:%s:%s", l.prefix, key)

	count, err := l.counter.IncrWindow(ctx, k, l.window)
	if err != nil {
		l.logger.Warn("Rate limit counter unavailable, using in-memory fallback", zap.Error(err))
		return l.fallback.Allow(ctx, key)
	}
	return count <= l.limit, nil
}

type window struct {
	count int64
	reset time.Time
}

type MemoryLimiter struct {
	mu      sync.Mutex
	limit   int64
	window  time.Duration
	windows map[string]*window
	now     func() time.Time
}

func NewMemoryLimiter(limit int64, w time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		limit:   limit,
		window:  w,
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || !now.Before(w.reset) {
		w = &window{reset: now.Add(l.window)}
		l.windows[key] = w
		l.sweepLocked(now)
	}
	w.count++
	return w.count <= l.limit, nil
}

// sweepLocked drops expired windows so the map does not grow without bound.
func (l *MemoryLimiter) sweepLocked(now time.Time) {
	for k, w := range l.windows {
		if !now.Before(w.reset) {
			delete(l.windows, k)
		}
	}
}
