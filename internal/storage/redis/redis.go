// Package redis keeps wizard sessions and per-visitor flags in Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"webcalc/internal/wizard"
	"webcalc/pkg/redis"
)

// Storage implements wizard.Store and session.FlagStore on top of Redis.
type Storage struct {
	client *redis.Client
}

func New(client *redis.Client) *Storage {
	return &Storage{client: client}
}

func (s *Storage) Load(ctx context.Context, sessionID string) (wizard.State, error) {
	data, err := s.client.Get(ctx, buildStateKey(sessionID))
	if errors.Is(err, redis.ErrNotFound) {
		return wizard.State{}, wizard.ErrSessionNotFound
	}
	if err != nil {
		return wizard.State{}, fmt.Errorf("get state: %w", err)
	}

	var state wizard.State
	if err := json.Unmarshal(data, &state); err != nil {
		return wizard.State{}, fmt.Errorf("unmarshal failure: %w", err)
	}
	return state, nil
}

func (s *Storage) Save(ctx context.Context, state wizard.State, ttl time.Duration) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	return s.client.Set(ctx, buildStateKey(state.SessionID), data, ttl)
}

func (s *Storage) Delete(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, buildStateKey(sessionID))
}

func (s *Storage) SetOnce(ctx context.Context, sessionID, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, buildFlagKey(sessionID, key), []byte("1"), ttl)
	if err != nil {
		return false, fmt.Errorf("set flag: %w", err)
	}
	return ok, nil
}

func (s *Storage) IsSet(ctx context.Context, sessionID, key string) (bool, error) {
	ok, err := s.client.Exists(ctx, buildFlagKey(sessionID, key))
	if err != nil {
		return false, fmt.Errorf("check flag: %w", err)
	}
	return ok, nil
}

func buildStateKey(sessionID string) string {
	return "wizard:" + sessionID
}

func buildFlagKey(sessionID, key string) string {
	return fmt.Sprintf("flag:%s:%s", sessionID, key)
}
