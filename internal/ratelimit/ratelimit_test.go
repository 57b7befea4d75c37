package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

// fakeCounter mimics the Redis fixed window: a key created by IncrWindow
// expires after the window it was created with.
type fakeCounter struct {
	counts  map[string]int64
	expires map[string]time.Time
	windows map[string]time.Duration
	now     time.Time
	err     error
	failN   int
}

func newFakeCounter() *fakeCounter {
	return &fakeCounter{
		counts:  map[string]int64{},
		expires: map[string]time.Time{},
		windows: map[string]time.Duration{},
		now:     time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func (f *fakeCounter) IncrWindow(_ context.Context, key string, window time.Duration) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	if f.failN > 0 {
		f.failN--
		return 0, errors.New("i/o timeout")
	}
	if exp, ok := f.expires[key]; ok && !f.now.Before(exp) {
		delete(f.counts, key)
		delete(f.expires, key)
	}
	if _, ok := f.expires[key]; !ok {
		f.expires[key] = f.now.Add(window)
	}
	f.windows[key] = window
	f.counts[key]++
	return f.counts[key], nil
}

func TestRedisLimiter_AllowsUpToLimit(t *testing.T) {
	ctx := context.Background()
	counter := newFakeCounter()
	l := NewRedisLimiter(counter, "calculator", 3, time.Minute, zap.NewNop())

	for i := 1; i <= 3; i++ {
		ok, err := l.Allow(ctx, "1.2.3.4")
		if err != nil || !ok {
			t.Fatalf("hit %d: ok=%v err=%v", i, ok, err)
		}
	}
	if ok, _ := l.Allow(ctx, "1.2.3.4"); ok {
		t.Fatal("fourth hit should be limited")
	}
	if counter.windows["ratelimit:calculator:1.2.3.4"] != time.Minute {
		t.Fatalf("window not passed to counter: %v", counter.windows)
	}
	if ok, _ := l.Allow(ctx, "5.6.7.8"); !ok {
		t.Fatal("other key must not be limited")
	}
}

func TestRedisLimiter_FallsBackToMemory(t *testing.T) {
	ctx := context.Background()
	counter := newFakeCounter()
	counter.err = errors.New("connection refused")
	l := NewRedisLimiter(counter, "calculator", 1, time.Minute, zap.NewNop())

	if ok, err := l.Allow(ctx, "ip"); err != nil || !ok {
		t.Fatalf("first hit: ok=%v err=%v", ok, err)
	}
	if ok, _ := l.Allow(ctx, "ip"); ok {
		t.Fatal("fallback limiter should enforce the limit")
	}
}

func TestRedisLimiter_CounterFailureDoesNotPinKey(t *testing.T) {
	ctx := context.Background()
	counter := newFakeCounter()
	counter.failN = 1
	l := NewRedisLimiter(counter, "calculator", 2, time.Minute, zap.NewNop())

	// The failed hit is served by the in-memory window.
	if ok, err := l.Allow(ctx, "ip"); err != nil || !ok {
		t.Fatalf("first hit: ok=%v err=%v", ok, err)
	}
	for i := 0; i < 10; i++ {
		_, _ = l.Allow(ctx, "ip")
	}
	if ok, _ := l.Allow(ctx, "ip"); ok {
		t.Fatal("limit should apply inside the window")
	}
	if _, ok := counter.expires["ratelimit:calculator:ip"]; !ok {
		t.Fatal("counter key has no expiry")
	}

	counter.now = counter.now.Add(time.Minute)
	if ok, err := l.Allow(ctx, "ip"); err != nil || !ok {
		t.Fatalf("after window: ok=%v err=%v", ok, err)
	}
}

func TestMemoryLimiter_WindowResets(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	l := NewMemoryLimiter(2, time.Minute)
	l.now = func() time.Time { return now }

	_, _ = l.Allow(ctx, "k")
	_, _ = l.Allow(ctx, "k")
	if ok, _ := l.Allow(ctx, "k"); ok {
		t.Fatal("third hit should be limited")
	}

	now = now.Add(time.Minute)
	if ok, _ := l.Allow(ctx, "k"); !ok {
		t.Fatal("new window should allow")
	}
}
