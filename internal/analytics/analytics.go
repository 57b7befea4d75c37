// Package analytics forwards funnel events to ad and measurement platforms.
// Reporting is best effort: a missing or failing tracker never affects the
// calculator flow.
package analytics

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

type Provider string

const (
	ProviderGtag Provider = "gtag"
	ProviderMeta Provider = "fbq"
)

const (
	EventCalculatorStep     = "calculator_step"
	EventGenerateLead       = "generate_lead"
	EventCalculatorComplete = "calculator_complete"
	EventMetaLead           = "Lead"
	EventMetaComplete       = "CalculatorComplete"
)

type Event struct {
	Provider Provider       `json:"provider"`
	Name     string         `json:"name"`
	Params   map[string]any `json:"params,omitempty"`
}

type Reporter interface {
	Track(ctx context.Context, e Event)
}

// Noop drops every event.
type Noop struct{}

func (Noop) Track(context.Context, Event) {}

// LogReporter writes events to the application log.
type LogReporter struct {
	logger *zap.Logger
}

func NewLogReporter(logger *zap.Logger) *LogReporter {
	return &LogReporter{logger: logger}
}

func (r *LogReporter) Track(_ context.Context, e Event) {
	r.logger.Info("Analytics event",
		zap.String("provider", string(e.Provider)),
		zap.String("event", e.Name),
		zap.Any("params", e.Params))
}

// Multi fans an event out to several reporters.
type Multi []Reporter

func (m Multi) Track(ctx context.Context, e Event) {
	for _, r := range m {
		if r != nil {
			r.Track(ctx, e)
		}
	}
}

// Recorder keeps events in memory so they can be handed back to the browser,
// which fires the real pixels.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Track(_ context.Context, e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Drain returns the recorded events and resets the recorder.
func (r *Recorder) Drain() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.events
	r.events = nil
	return out
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

type recorderKey struct{}

// WithRecorder attaches a per-request recorder to ctx. ContextReporter sends
// events into it.
func WithRecorder(ctx context.Context, rec *Recorder) context.Context {
	return context.WithValue(ctx, recorderKey{}, rec)
}

// ContextReporter forwards events to the Recorder stored in the context, if any.
type ContextReporter struct{}

func (ContextReporter) Track(ctx context.Context, e Event) {
	if rec, ok := ctx.Value(recorderKey{}).(*Recorder); ok && rec != nil {
		rec.Track(ctx, e)
	}
}
