// Package report implements the two-step report dialog: pick a reason, then
// add details and a severity, then submit.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/utafrali/fitvibe/internal/api"
	"github.com/utafrali/fitvibe/internal/domain"
	"github.com/utafrali/fitvibe/internal/notify"
	apperrors "github.com/utafrali/fitvibe/pkg/errors"
	"github.com/utafrali/fitvibe/pkg/validator"
)

// State is the dialog step.
type State int

const (
	Closed State = iota
	StepSelectReason
	StepDetails
	Submitting
	Submitted
)

func (s State) String() string {
	switch s {
	case StepSelectReason:
		return "select_reason"
	case StepDetails:
		return "details"
	case Submitting:
		return "submitting"
	case Submitted:
		return "submitted"
	default:
		return "closed"
	}
}

// ErrWrongState is returned when an operation is not valid in the current step.
var ErrWrongState = errors.New("report: operation not allowed in current step")

// AutoCloseDelay is how long the success screen stays up.
const AutoCloseDelay = 2 * time.Second

// Submitter sends a finished report to the backend.
type Submitter interface {
	SubmitReport(ctx context.Context, report domain.Report) (*api.MessageResponse, error)
}

// Timer is the part of *time.Timer the workflow uses.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. time.AfterFunc is the default.
type AfterFunc func(d time.Duration, f func()) Timer

// Option configures a Workflow.
type Option func(*Workflow)

// WithAfterFunc replaces the timer used for auto-close.
func WithAfterFunc(fn AfterFunc) Option {
	return func(w *Workflow) { w.afterFunc = fn }
}

// WithAutoCloseDelay overrides AutoCloseDelay.
func WithAutoCloseDelay(d time.Duration) Option {
	return func(w *Workflow) { w.autoClose = d }
}

// Draft is a snapshot of what the viewer entered.
type Draft struct {
	Kind     domain.ReportKind
	TargetID string
	Reason   string
	Message  string
	Severity domain.Severity
}

// Workflow is safe for concurrent use. Hooks and the submitter are called
// without holding the lock.
type Workflow struct {
	mu         sync.Mutex
	state      State
	config     domain.ReportConfig
	draft      Draft
	generation int
	closeTimer Timer

	submitter Submitter
	notifier  notify.Notifier
	logger    *slog.Logger
	afterFunc AfterFunc
	autoClose time.Duration
	hooks     []func(ctx context.Context)
}

// New creates a closed workflow.
func New(submitter Submitter, notifier notify.Notifier, logger *slog.Logger, opts ...Option) *Workflow {
	w := &Workflow{
		submitter: submitter,
		notifier:  notifier,
		logger:    logger,
		autoClose: AutoCloseDelay,
		afterFunc: func(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) },
		config:    domain.ConfigFor(domain.ReportSystem),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// OnSubmitted registers fn to run after every successful submission.
func (w *Workflow) OnSubmitted(fn func(ctx context.Context)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.hooks = append(w.hooks, fn)
}

// Open starts a fresh report against targetID. Anything left over from a
// previous report is discarded.
func (w *Workflow) Open(kind domain.ReportKind, targetID string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.resetLocked()
	w.config = domain.ConfigFor(kind)
	w.draft = Draft{
		Kind:     w.config.Kind,
		TargetID: targetID,
		Severity: domain.DefaultSeverity,
	}
	w.state = StepSelectReason
}

// OpenKind is Open for a kind given as text.
func (w *Workflow) OpenKind(kind, targetID string) {
	w.Open(domain.ParseReportKind(kind), targetID)
}

// SelectReason picks one of the kind's reasons.
func (w *Workflow) SelectReason(reason string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != StepSelectReason {
		return ErrWrongState
	}
	if !w.config.HasReason(reason) {
		return apperrors.Validation(fmt.Sprintf("%q is not a reason for %s reports", reason, w.config.Kind))
	}
	w.draft.Reason = reason
	return nil
}

// Next moves to the details step. Without a reason it warns and stays.
func (w *Workflow) Next() error {
	w.mu.Lock()
	if w.state != StepSelectReason {
		w.mu.Unlock()
		return ErrWrongState
	}
	if w.draft.Reason == "" {
		w.mu.Unlock()
		w.notifier.Notify(notify.LevelWarning, "Please select a reason")
		return apperrors.Validation("reason is required")
	}
	w.state = StepDetails
	w.mu.Unlock()
	return nil
}

// Back returns from details to reason selection, keeping every field.
func (w *Workflow) Back() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != StepDetails {
		return ErrWrongState
	}
	w.state = StepSelectReason
	return nil
}

// SetMessage sets the optional free-text message.
func (w *Workflow) SetMessage(message string) error {
	if err := validator.CheckVar("message", message, fmt.Sprintf("max=%d", domain.MaxReportMessageLength)); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != StepDetails {
		return ErrWrongState
	}
	w.draft.Message = message
	return nil
}

// SetSeverity sets the severity.
func (w *Workflow) SetSeverity(sev domain.Severity) error {
	if _, err := domain.ParseSeverity(string(sev)); err != nil {
		return apperrors.Validation(err.Error())
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != StepDetails {
		return ErrWrongState
	}
	w.draft.Severity = sev
	return nil
}

// Payload builds the request body for the current draft. targetId is left
// out for system reports.
func (w *Workflow) Payload() domain.Report {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.payloadLocked()
}

func (w *Workflow) payloadLocked() domain.Report {
	r := domain.Report{
		Type:     w.draft.Kind,
		Reason:   w.draft.Reason,
		Message:  w.draft.Message,
		Severity: w.draft.Severity,
	}
	if w.draft.Kind.NeedsTarget() {
		r.TargetID = w.draft.TargetID
	}
	return r
}

// Submit sends the report. On failure the dialog returns to the details step
// with everything the viewer entered. On success it shows the confirmation
// and closes itself after the auto-close delay.
func (w *Workflow) Submit(ctx context.Context) error {
	w.mu.Lock()
	switch w.state {
	case StepDetails:
	case Submitting:
		w.mu.Unlock()
		return apperrors.InFlight("Submitting report")
	default:
		w.mu.Unlock()
		return ErrWrongState
	}
	payload := w.payloadLocked()
	if err := validator.Check(payload); err != nil {
		w.mu.Unlock()
		w.notifier.Notify(notify.LevelError, apperrors.UserMessage(err, "Failed to submit report"))
		return err
	}
	w.state = Submitting
	gen := w.generation
	w.mu.Unlock()

	resp, err := w.submitter.SubmitReport(ctx, payload)

	w.mu.Lock()
	// A close or reopen while the request was out owns the dialog state now.
	current := gen == w.generation
	if err != nil {
		if current {
			w.state = StepDetails
		}
		w.mu.Unlock()
		reportsSubmitted.WithLabelValues(string(payload.Type), "failure").Inc()
		w.logger.WarnContext(ctx, "report submission failed",
			slog.String("type", string(payload.Type)),
			slog.String("error", err.Error()),
		)
		w.notifier.Notify(notify.LevelError, apperrors.UserMessage(err, "Failed to submit report"))
		return err
	}

	if current {
		w.state = Submitted
		w.closeTimer = w.afterFunc(w.autoClose, func() { w.autoCloseIf(gen) })
	}
	hooks := append([]func(context.Context){}, w.hooks...)
	w.mu.Unlock()

	reportsSubmitted.WithLabelValues(string(payload.Type), "success").Inc()
	msg := resp.Message
	if msg == "" {
		msg = "Thank you, your report has been submitted"
	}
	w.notifier.Notify(notify.LevelSuccess, msg)

	for _, fn := range hooks {
		fn(ctx)
	}
	return nil
}

func (w *Workflow) autoCloseIf(gen int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.generation == gen && w.state == Submitted {
		w.resetLocked()
	}
}

// Close dismisses the dialog and purges the draft.
func (w *Workflow) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.resetLocked()
}

func (w *Workflow) resetLocked() {
	if w.closeTimer != nil {
		w.closeTimer.Stop()
		w.closeTimer = nil
	}
	w.generation++
	w.state = Closed
	w.draft = Draft{}
}

// State returns the current step.
func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Config returns the presentation of the open kind.
func (w *Workflow) Config() domain.ReportConfig {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.config
}

// Draft returns what has been entered so far.
func (w *Workflow) Draft() Draft {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.draft
}
