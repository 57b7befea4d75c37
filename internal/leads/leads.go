// Package leads accepts finished calculator submissions: it throttles and
// filters bots, prices the project, stores the lead and notifies the team.
package leads

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"webcalc/internal/calculator"
	"webcalc/internal/ratelimit"
	"webcalc/internal/storage"
)

const notifyTimeout = time.Minute

// Meta describes the request a submission arrived with.
type Meta struct {
	IP         string
	UserAgent  string
	Referer    string
	ReceivedAt time.Time
}

type Repository interface {
	SaveLead(ctx context.Context, lead *storage.Lead) error
}

type Notifier interface {
	NotifyNewLead(ctx context.Context, lead storage.Lead) error
}

type Service struct {
	engine      *calculator.Engine
	repo        Repository
	limiter     ratelimit.Limiter
	notifier    Notifier
	logger      *zap.Logger
	minFillTime time.Duration

	wg sync.WaitGroup
}

// NewService wires the lead pipeline. notifier may be nil.
func NewService(
	engine *calculator.Engine,
	repo Repository,
	limiter ratelimit.Limiter,
	notifier Notifier,
	logger *zap.Logger,
	minFillTime time.Duration,
) *Service {
	return &Service{
		engine:      engine,
		repo:        repo,
		limiter:     limiter,
		notifier:    notifier,
		logger:      logger,
		minFillTime: minFillTime,
	}
}

// Submit processes one lead form post. Errors are *RejectError.
func (s *Service) Submit(ctx context.Context, sub calculator.Submission, meta Meta) (*calculator.PriceResult, error) {
	const operation = "leads.Submit"

	if meta.ReceivedAt.IsZero() {
		meta.ReceivedAt = time.Now()
	}
	logger := s.logger.With(zap.String("ip", meta.IP))

	if err := s.checkRate(ctx, meta.IP); err != nil {
		logger.Warn("Lead submission rate limited")
		return nil, err
	}

	if reason, spam := s.isSpam(sub, meta.ReceivedAt); spam {
		logger.Warn("Dropping spam submission", zap.String("reason", reason))
		res, err := s.engine.Estimate(sub.CalculatorData)
		if err != nil {
			return nil, invalid(nil, err)
		}
		return &res, nil
	}

	data := sub.CalculatorData
	if errs := calculator.ValidateSubmission(data); !errs.Empty() {
		logger.Info("Lead submission invalid", zap.Any("fields", errs))
		return nil, invalid(errs, fmt.Errorf("%s: validation failed", operation))
	}

	res, err := s.engine.Estimate(data)
	if err != nil {
		return nil, invalid(nil, fmt.Errorf("%s: %w", operation, err))
	}

	lead := newLead(data, res, meta)
	if err := s.repo.SaveLead(ctx, &lead); err != nil {
		logger.Error("Failed to save lead", zap.Error(err))
		return nil, unavailable(fmt.Errorf("%s: %w", operation, err))
	}

	logger.Info("Lead saved",
		zap.String("lead_id", lead.ID),
		zap.String("project_type", lead.ProjectType),
		zap.Int64("price_min", lead.PriceMin),
		zap.Int64("price_max", lead.PriceMax))

	s.notify(ctx, lead)
	return &res, nil
}

// checkRate counts one submission for ip. Without an address there is no key
// to count under; such submissions are not limited rather than all sharing
// one bucket.
func (s *Service) checkRate(ctx context.Context, ip string) error {
	if ip == "" {
		s.logger.Warn("Lead submission without client IP, rate limit skipped")
		return nil
	}
	allowed, err := s.limiter.Allow(ctx, ip)
	if err != nil {
		s.logger.Error("Rate limit check failed", zap.String("ip", ip), zap.Error(err))
		return nil
	}
	if !allowed {
		return rateLimited()
	}
	return nil
}

// Wait blocks until in-flight notifications are done.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) notify(ctx context.Context, lead storage.Lead) {
	if s.notifier == nil {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		defer cancel()

		if err := s.notifier.NotifyNewLead(ctx, lead); err != nil {
			s.logger.Error("Failed to notify about new lead",
				zap.String("lead_id", lead.ID),
				zap.Error(err))
		}
	}()
}

func (s *Service) isSpam(sub calculator.Submission, receivedAt time.Time) (string, bool) {
	if sub.HoneypotFilled() {
		return "honeypot", true
	}
	if sub.FormTimestamp != nil && s.minFillTime > 0 {
		elapsed := receivedAt.Sub(time.UnixMilli(*sub.FormTimestamp))
		if elapsed < s.minFillTime {
			return "too_fast", true
		}
	}
	return "", false
}

func newLead(d calculator.CalculatorData, res calculator.PriceResult, meta Meta) storage.Lead {
	addons := make(storage.AddonList, 0, len(d.Addons))
	for _, a := range calculator.SortAddons(d.Addons) {
		addons = append(addons, string(a))
	}
	return storage.Lead{
		Status:      storage.StatusNew,
		Source:      storage.SourceCalculator,
		ProjectType: string(d.ProjectType),
		Addons:      addons,
		Name:        strings.TrimSpace(d.Name),
		Email:       strings.ToLower(strings.TrimSpace(d.Email)),
		Phone:       calculator.NormalizePhone(d.Phone),
		Company:     strings.TrimSpace(d.Company),
		GDPRConsent: d.GDPRConsent,
		PriceMin:    res.TotalMin,
		PriceMax:    res.TotalMax,
		Currency:    res.Currency,
		IP:          meta.IP,
		UserAgent:   meta.UserAgent,
		Referer:     meta.Referer,
		CreatedAt:   meta.ReceivedAt,
	}
}
