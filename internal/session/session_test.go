package session

import (
	"context"
	"testing"
	"time"
)

func TestShowExitIntent_OncePerSession(t *testing.T) {
	ctx := context.Background()
	p := NewPopups(NewMemoryFlags(), time.Hour)

	shown := 0
	for i := 0; i < 5; i++ {
		ok, err := p.ShowExitIntent(ctx, "browser-a")
		if err != nil {
			t.Fatalf("ShowExitIntent: %v", err)
		}
		if ok {
			shown++
		}
	}
	if shown != 1 {
		t.Fatalf("popup shown %d times, want 1", shown)
	}

	ok, _ := p.ShowExitIntent(ctx, "browser-b")
	if !ok {
		t.Fatal("another session must see the popup")
	}
}

func TestBarDismissal(t *testing.T) {
	ctx := context.Background()
	p := NewPopups(NewMemoryFlags(), time.Hour)

	if d, _ := p.BarDismissed(ctx, "s"); d {
		t.Fatal("bar should be visible initially")
	}
	if err := p.DismissBar(ctx, "s"); err != nil {
		t.Fatalf("DismissBar: %v", err)
	}
	if err := p.DismissBar(ctx, "s"); err != nil {
		t.Fatalf("second DismissBar: %v", err)
	}
	if d, _ := p.BarDismissed(ctx, "s"); !d {
		t.Fatal("bar should be dismissed")
	}
}

func TestMemoryFlags_Expire(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemoryFlags()
	m.now = func() time.Time { return now }

	_, _ = m.SetOnce(ctx, "s", KeyExitShown, time.Minute)
	now = now.Add(time.Hour)

	ok, _ := m.SetOnce(ctx, "s", KeyExitShown, time.Minute)
	if !ok {
		t.Fatal("expired flag should be settable again")
	}
}
