package redis

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"webcalc/internal/calculator"
	"webcalc/internal/wizard"
	"webcalc/pkg/redis"
)

// newTestStorage connects to the Redis at REDIS_TEST_ADDR and skips otherwise.
func newTestStorage(t *testing.T) *Storage {
	t.Helper()

	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	client := redis.New(addr, "", 0)
	if err := client.Ping(context.Background()); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	t.Cleanup(client.Close)
	return New(client)
}

func TestStateRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	state := wizard.NewState(uuid.NewString(), time.Now())
	state.Data.ProjectType = calculator.ProjectEshop
	state.Data.Addons = []calculator.Addon{calculator.AddonSEO}
	state.Step = wizard.StepAddons

	if err := s.Save(ctx, state, time.Minute); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Load(ctx, state.SessionID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Step != wizard.StepAddons || got.Data.ProjectType != calculator.ProjectEshop || len(got.Data.Addons) != 1 {
		t.Fatalf("got %+v", got)
	}

	if err := s.Delete(ctx, state.SessionID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Load(ctx, state.SessionID); !errors.Is(err, wizard.ErrSessionNotFound) {
		t.Fatalf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestFlags(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	sid := uuid.NewString()

	first, err := s.SetOnce(ctx, sid, "calc-exit-shown", time.Minute)
	if err != nil || !first {
		t.Fatalf("first SetOnce = %v, %v", first, err)
	}
	second, _ := s.SetOnce(ctx, sid, "calc-exit-shown", time.Minute)
	if second {
		t.Fatal("second SetOnce must report already set")
	}
	if set, _ := s.IsSet(ctx, sid, "calc-exit-shown"); !set {
		t.Fatal("flag should be set")
	}
}
