package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()

	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	c := New(addr, "", 0)
	if err := c.Ping(context.Background()); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestIncrWindow_SetsTTLOnFirstHit(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)
	key := "test:window:" + uuid.NewString()
	t.Cleanup(func() { _ = c.Del(ctx, key) })

	for want := int64(1); want <= 3; want++ {
		got, err := c.IncrWindow(ctx, key, time.Minute)
		if err != nil || got != want {
			t.Fatalf("IncrWindow = %d, %v; want %d", got, err, want)
		}
	}
	ttl, err := c.client.TTL(ctx, key).Result()
	if err != nil || ttl <= 0 || ttl > time.Minute {
		t.Fatalf("ttl = %v, %v", ttl, err)
	}
}

func TestIncrWindow_RepairsKeyWithoutTTL(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)
	key := "test:window:" + uuid.NewString()
	t.Cleanup(func() { _ = c.Del(ctx, key) })

	if err := c.client.Set(ctx, key, 7, 0).Err(); err != nil {
		t.Fatalf("seed: %v", err)
	}
	got, err := c.IncrWindow(ctx, key, time.Minute)
	if err != nil || got != 8 {
		t.Fatalf("IncrWindow = %d, %v", got, err)
	}
	if ttl, _ := c.client.TTL(ctx, key).Result(); ttl <= 0 {
		t.Fatalf("ttl = %v, want a window", ttl)
	}
}
