package wizard

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"webcalc/internal/analytics"
	"webcalc/internal/calculator"
)

// Service runs wizards on behalf of browser sessions. Every call loads the
// state, applies one transition and saves it back while holding the
// session's lock, so concurrent requests of one visitor cannot overwrite
// each other.
type Service struct {
	locks     *sessionLocks
	store     Store
	submitter Submitter
	reporter  analytics.Reporter
	logger    *zap.Logger
	ttl       time.Duration
	now       func() time.Time
}

func NewService(store Store, submitter Submitter, reporter analytics.Reporter, logger *zap.Logger, ttl time.Duration) *Service {
	if reporter == nil {
		reporter = analytics.Noop{}
	}
	return &Service{
		locks:     newSessionLocks(),
		store:     store,
		submitter: submitter,
		reporter:  reporter,
		logger:    logger,
		ttl:       ttl,
		now:       time.Now,
	}
}

// Start opens a fresh calculator. Reopening the calculator always starts a
// new session so nothing leaks from a previous one.
func (s *Service) Start(ctx context.Context) (State, error) {
	state := NewState(uuid.NewString(), s.now().UTC())
	if err := s.store.Save(ctx, state, s.ttl); err != nil {
		return State{}, fmt.Errorf("save new session: %w", err)
	}
	s.logger.Debug("Calculator session started", zap.String("session_id", state.SessionID))
	return state, nil
}

func (s *Service) Get(ctx context.Context, sessionID string) (State, error) {
	return s.store.Load(ctx, sessionID)
}

func (s *Service) Discard(ctx context.Context, sessionID string) error {
	defer s.locks.lock(sessionID)()
	return s.store.Delete(ctx, sessionID)
}

func (s *Service) SelectProjectType(ctx context.Context, sessionID string, pt calculator.ProjectType) (State, error) {
	return s.apply(ctx, sessionID, func(w *Wizard) error {
		return w.SelectProjectType(pt)
	})
}

func (s *Service) ToggleAddon(ctx context.Context, sessionID string, a calculator.Addon) (State, error) {
	return s.apply(ctx, sessionID, func(w *Wizard) error {
		return w.ToggleAddon(a)
	})
}

func (s *Service) Update(ctx context.Context, sessionID string, p DataPatch) (State, error) {
	return s.apply(ctx, sessionID, func(w *Wizard) error {
		return w.Update(p)
	})
}

func (s *Service) Next(ctx context.Context, sessionID string) (State, error) {
	return s.apply(ctx, sessionID, func(w *Wizard) error {
		return w.GoNext(ctx)
	})
}

func (s *Service) Back(ctx context.Context, sessionID string) (State, error) {
	return s.apply(ctx, sessionID, func(w *Wizard) error {
		return w.GoBack(ctx)
	})
}

// Submit sends the calculator. Failed submissions are saved too, so the
// field errors and the submit error survive until the next request.
func (s *Service) Submit(ctx context.Context, sessionID string) (State, error) {
	defer s.locks.lock(sessionID)()

	state, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return State{}, err
	}

	w := New(state, s.submitter, s.reporter)
	submitErr := w.Submit(ctx)
	if submitErr != nil {
		s.logger.Warn("Calculator submit failed",
			zap.String("session_id", sessionID),
			zap.Error(submitErr))
	}

	if err := s.store.Save(ctx, w.State(), s.ttl); err != nil {
		return State{}, fmt.Errorf("save session: %w", err)
	}
	return w.State(), submitErr
}

// apply saves the state only when fn succeeds, so refused transitions leave
// the stored session untouched.
func (s *Service) apply(ctx context.Context, sessionID string, fn func(*Wizard) error) (State, error) {
	defer s.locks.lock(sessionID)()

	state, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return State{}, err
	}

	w := New(state.Clone(), s.submitter, s.reporter)
	if err := fn(w); err != nil {
		return state, err
	}

	if err := s.store.Save(ctx, w.State(), s.ttl); err != nil {
		return State{}, fmt.Errorf("save session: %w", err)
	}
	return w.State(), nil
}
