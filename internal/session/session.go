// Package session holds per-browser-session flags such as "exit popup
// already shown".
package session

import (
	"context"
	"sync"
	"time"
)

const (
	KeyExitShown    = "calc-exit-shown"
	KeyBarDismissed = "calc-bar-dismissed"
)

// FlagStore records boolean flags scoped to one browser session.
type FlagStore interface {
	// SetOnce sets the flag and reports whether it was unset before.
	SetOnce(ctx context.Context, sessionID, key string, ttl time.Duration) (bool, error)
	IsSet(ctx context.Context, sessionID, key string) (bool, error)
}

// Popups gates the exit-intent popup and the sticky calculator bar.
type Popups struct {
	flags FlagStore
	ttl   time.Duration
}

func NewPopups(flags FlagStore, ttl time.Duration) *Popups {
	return &Popups{flags: flags, ttl: ttl}
}

// ShowExitIntent reports whether the exit-intent popup may be shown. It
// returns true at most once per session.
func (p *Popups) ShowExitIntent(ctx context.Context, sessionID string) (bool, error) {
	return p.flags.SetOnce(ctx, sessionID, KeyExitShown, p.ttl)
}

func (p *Popups) DismissBar(ctx context.Context, sessionID string) error {
	_, err := p.flags.SetOnce(ctx, sessionID, KeyBarDismissed, p.ttl)
	return err
}

func (p *Popups) BarDismissed(ctx context.Context, sessionID string) (bool, error) {
	return p.flags.IsSet(ctx, sessionID, KeyBarDismissed)
}

// MemoryFlags is an in-process FlagStore.
type MemoryFlags struct {
	mu    sync.Mutex
	flags map[string]time.Time
	now   func() time.Time
}

func NewMemoryFlags() *MemoryFlags {
	return &MemoryFlags{flags: make(map[string]time.Time), now: time.Now}
}

func (m *MemoryFlags) SetOnce(_ context.Context, sessionID, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := sessionID + ":" + key
	if m.isSetLocked(k) {
		return false, nil
	}
	var expires time.Time
	if ttl > 0 {
		expires = m.now().Add(ttl)
	}
	m.flags[k] = expires
	return true, nil
}

func (m *MemoryFlags) IsSet(_ context.Context, sessionID, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isSetLocked(sessionID + ":" + key), nil
}

func (m *MemoryFlags) isSetLocked(k string) bool {
	expires, ok := m.flags[k]
	if !ok {
		return false
	}
	if !expires.IsZero() && m.now().After(expires) {
		delete(m.flags, k)
		return false
	}
	return true
}
