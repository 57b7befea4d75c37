package wizard

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"webcalc/internal/analytics"
	"webcalc/internal/calculator"
)

var (
	ErrStepIncomplete   = errors.New("current step is not complete")
	ErrSubmitRequired   = errors.New("contact step is finished by submitting")
	ErrTerminal         = errors.New("calculator is already finished")
	ErrNotOnContactStep = errors.New("submit is only possible on the contact step")
)

// MsgConnectionFailed is shown when the lead endpoint cannot be reached or
// returns no usable message.
const MsgConnectionFailed = "Nepodařilo se spojit se serverem. Zkuste to prosím znovu."

// ValidationError carries the contact step field errors.
type ValidationError struct {
	Fields calculator.FieldErrors
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("contact validation failed: %d field(s)", len(e.Fields))
}

// Submitter delivers a finished calculator to the lead endpoint.
type Submitter interface {
	Submit(ctx context.Context, s calculator.Submission) (*calculator.PriceResult, error)
}

// userMessager is implemented by submit errors that carry a message meant
// for the visitor.
type userMessager interface {
	UserMessage() string
}

// State is the serialisable part of a wizard.
type State struct {
	SessionID   string                    `json:"sessionId"`
	Step        Step                      `json:"step"`
	Direction   Direction                 `json:"direction"`
	Data        calculator.CalculatorData `json:"data"`
	Errors      calculator.FieldErrors    `json:"errors,omitempty"`
	SubmitError string                    `json:"submitError,omitempty"`
	Result      *calculator.PriceResult   `json:"result,omitempty"`
	StartedAt   time.Time                 `json:"startedAt"`
}

func NewState(sessionID string, now time.Time) State {
	return State{
		SessionID: sessionID,
		Step:      StepProjectType,
		Direction: Forward,
		Data:      calculator.NewCalculatorData(),
		StartedAt: now,
	}
}

// Clone returns a copy that shares no maps or slices with s.
func (s State) Clone() State {
	s.Data.Addons = slices.Clone(s.Data.Addons)
	s.Errors = maps.Clone(s.Errors)
	if s.Result != nil {
		res := *s.Result
		res.Breakdown = slices.Clone(res.Breakdown)
		res.IncludedFeatures = slices.Clone(res.IncludedFeatures)
		s.Result = &res
	}
	return s
}

// DataPatch is a partial update of CalculatorData. Nil fields are left alone.
type DataPatch struct {
	ProjectType *calculator.ProjectType `json:"projectType,omitempty"`
	Addons      *[]calculator.Addon     `json:"addons,omitempty"`
	Name        *string                 `json:"name,omitempty"`
	Email       *string                 `json:"email,omitempty"`
	Phone       *string                 `json:"phone,omitempty"`
	Company     *string                 `json:"company,omitempty"`
	GDPRConsent *bool                   `json:"gdprConsent,omitempty"`
	Website     *string                 `json:"website,omitempty"`
	Fax         *string                 `json:"fax,omitempty"`
}

// Wizard drives one calculator session through its four steps.
type Wizard struct {
	state     State
	submitter Submitter
	reporter  analytics.Reporter
}

func New(state State, submitter Submitter, reporter analytics.Reporter) *Wizard {
	if reporter == nil {
		reporter = analytics.Noop{}
	}
	if state.Data.Addons == nil {
		state.Data.Addons = []calculator.Addon{}
	}
	return &Wizard{state: state, submitter: submitter, reporter: reporter}
}

func (w *Wizard) State() State {
	return w.state
}

func (w *Wizard) Step() Step {
	return w.state.Step
}

// CanProceed reports whether GoNext would advance from the current step.
func (w *Wizard) CanProceed() bool {
	switch w.state.Step {
	case StepProjectType:
		return w.state.Data.ProjectType.Valid()
	case StepAddons:
		return true
	default:
		return false
	}
}

// SelectProjectType sets the project type. Selecting the same type again is a no-op.
func (w *Wizard) SelectProjectType(pt calculator.ProjectType) error {
	if w.state.Step == StepResult {
		return ErrTerminal
	}
	if !pt.Valid() {
		return fmt.Errorf("%w: %q", calculator.ErrUnknownProjectType, pt)
	}
	w.state.Data.ProjectType = pt
	return nil
}

func (w *Wizard) ToggleAddon(a calculator.Addon) error {
	if w.state.Step == StepResult {
		return ErrTerminal
	}
	if !a.Valid() {
		return fmt.Errorf("%w: %q", calculator.ErrUnknownAddon, a)
	}
	w.state.Data.Addons = calculator.ToggleAddon(w.state.Data.Addons, a)
	return nil
}

// Update shallow-merges p into the collected data without validating it.
// Field errors of edited fields are cleared.
func (w *Wizard) Update(p DataPatch) error {
	if w.state.Step == StepResult {
		return ErrTerminal
	}
	d := &w.state.Data
	if p.ProjectType != nil {
		d.ProjectType = *p.ProjectType
		w.clearError(calculator.FieldProjectType)
	}
	if p.Addons != nil {
		d.Addons = calculator.SortAddons(*p.Addons)
		w.clearError(calculator.FieldAddons)
	}
	if p.Name != nil {
		d.Name = *p.Name
		w.clearError(calculator.FieldName)
	}
	if p.Email != nil {
		d.Email = *p.Email
		w.clearError(calculator.FieldEmail)
	}
	if p.Phone != nil {
		d.Phone = *p.Phone
		w.clearError(calculator.FieldPhone)
	}
	if p.Company != nil {
		d.Company = *p.Company
	}
	if p.GDPRConsent != nil {
		d.GDPRConsent = *p.GDPRConsent
		w.clearError(calculator.FieldGDPRConsent)
	}
	if p.Website != nil {
		d.Website = *p.Website
	}
	if p.Fax != nil {
		d.Fax = *p.Fax
	}
	return nil
}

func (w *Wizard) clearError(field string) {
	delete(w.state.Errors, field)
	if len(w.state.Errors) == 0 {
		w.state.Errors = nil
	}
}

// GoNext advances one step. The contact step only moves on through Submit.
func (w *Wizard) GoNext(ctx context.Context) error {
	switch w.state.Step {
	case StepResult:
		return ErrTerminal
	case StepContact:
		return ErrSubmitRequired
	}
	if !w.CanProceed() {
		return ErrStepIncomplete
	}
	w.moveTo(ctx, w.state.Step+1, Forward)
	return nil
}

// GoBack returns to the previous step. It is a no-op on the first step and
// refused once the result is shown.
func (w *Wizard) GoBack(ctx context.Context) error {
	switch w.state.Step {
	case StepResult:
		return ErrTerminal
	case StepProjectType:
		return nil
	}
	w.moveTo(ctx, w.state.Step-1, Backward)
	return nil
}

func (w *Wizard) moveTo(ctx context.Context, s Step, dir Direction) {
	w.state.Step = s
	w.state.Direction = dir
	if dir == Forward {
		w.reporter.Track(ctx, analytics.Event{
			Provider: analytics.ProviderGtag,
			Name:     analytics.EventCalculatorStep,
			Params:   map[string]any{"step": int(s), "step_name": s.String()},
		})
	}
}

// Submit validates the contact step and sends the calculator to the lead
// endpoint. On success the wizard jumps straight to the result step. On
// failure it stays on the contact step with SubmitError set; the visitor
// retries by submitting again.
func (w *Wizard) Submit(ctx context.Context) error {
	if w.state.Step != StepContact {
		return ErrNotOnContactStep
	}

	if errs := calculator.ValidateContact(w.state.Data); !errs.Empty() {
		w.state.Errors = errs
		return &ValidationError{Fields: errs}
	}
	w.state.Errors = nil
	w.state.SubmitError = ""

	ts := w.state.StartedAt.UnixMilli()
	sub := calculator.Submission{CalculatorData: w.state.Data}
	if !w.state.StartedAt.IsZero() {
		sub.FormTimestamp = &ts
	}

	res, err := w.submitter.Submit(ctx, sub)
	if err != nil {
		w.state.SubmitError = MsgConnectionFailed
		var um userMessager
		if errors.As(err, &um) && um.UserMessage() != "" {
			w.state.SubmitError = um.UserMessage()
		}
		return fmt.Errorf("submit calculator: %w", err)
	}
	if res == nil {
		w.state.SubmitError = MsgConnectionFailed
		return fmt.Errorf("submit calculator: empty price result")
	}

	w.state.Result = res
	w.state.Step = StepResult
	w.state.Direction = Forward
	w.trackConversion(ctx, res)
	return nil
}

func (w *Wizard) trackConversion(ctx context.Context, res *calculator.PriceResult) {
	value := res.TotalMin
	common := map[string]any{
		"value":    value,
		"currency": res.Currency,
	}
	w.reporter.Track(ctx, analytics.Event{
		Provider: analytics.ProviderGtag,
		Name:     analytics.EventGenerateLead,
		Params:   common,
	})
	w.reporter.Track(ctx, analytics.Event{
		Provider: analytics.ProviderGtag,
		Name:     analytics.EventCalculatorComplete,
		Params: map[string]any{
			"project_type": string(res.ProjectType),
			"addons":       len(w.state.Data.Addons),
			"value":        value,
		},
	})
	w.reporter.Track(ctx, analytics.Event{
		Provider: analytics.ProviderMeta,
		Name:     analytics.EventMetaLead,
		Params:   common,
	})
	w.reporter.Track(ctx, analytics.Event{
		Provider: analytics.ProviderMeta,
		Name:     analytics.EventMetaComplete,
		Params: map[string]any{
			"content_name": res.RecommendedPackage,
			"value":        value,
			"currency":     res.Currency,
		},
	})
}
