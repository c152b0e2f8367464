package report

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/fitvibe/internal/api"
	"github.com/utafrali/fitvibe/internal/domain"
	"github.com/utafrali/fitvibe/internal/notify"
	apperrors "github.com/utafrali/fitvibe/pkg/errors"
	"github.com/utafrali/fitvibe/pkg/logger"
)

type mockSubmitter struct {
	mock.Mock
}

func (m *mockSubmitter) SubmitReport(ctx context.Context, r domain.Report) (*api.MessageResponse, error) {
	args := m.Called(ctx, r)
	if resp := args.Get(0); resp != nil {
		return resp.(*api.MessageResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

type fakeTimer struct {
	mu      sync.Mutex
	delay   time.Duration
	fn      func()
	stopped bool
}

func (f *fakeTimer) Stop() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
	return true
}

func (f *fakeTimer) fire() { f.fn() }

type recorder struct {
	mu    sync.Mutex
	items []notify.Notification
}

func (r *recorder) Notify(level notify.Level, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, notify.Notification{Level: level, Message: message})
}

func (r *recorder) levels() []notify.Level {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]notify.Level, len(r.items))
	for i, n := range r.items {
		out[i] = n.Level
	}
	return out
}

type harness struct {
	wf     *Workflow
	sub    *mockSubmitter
	notes  *recorder
	timers []*fakeTimer
}

func newHarness() *harness {
	h := &harness{sub: &mockSubmitter{}, notes: &recorder{}}
	h.wf = New(h.sub, h.notes, logger.Nop(), WithAfterFunc(func(d time.Duration, f func()) Timer {
		t := &fakeTimer{delay: d, fn: f}
		h.timers = append(h.timers, t)
		return t
	}))
	return h
}

func okResponse(msg string) *api.MessageResponse {
	return &api.MessageResponse{Status: api.Status{Success: true, Message: msg}}
}

func (h *harness) toDetails(t *testing.T, kind domain.ReportKind, target, reason string) {
	t.Helper()
	h.wf.Open(kind, target)
	require.NoError(t, h.wf.SelectReason(reason))
	require.NoError(t, h.wf.Next())
	require.Equal(t, StepDetails, h.wf.State())
}

func TestNext_WithoutReasonStaysOnStepOne(t *testing.T) {
	h := newHarness()
	h.wf.Open(domain.ReportReview, "r-1")

	err := h.wf.Next()
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Equal(t, StepSelectReason, h.wf.State())
	assert.Equal(t, []notify.Level{notify.LevelWarning}, h.notes.levels())

	require.NoError(t, h.wf.SelectReason("spam"))
	require.NoError(t, h.wf.Next())
	assert.Equal(t, StepDetails, h.wf.State())
}

func TestSelectReason_RejectsForeignReason(t *testing.T) {
	h := newHarness()
	h.wf.Open(domain.ReportReview, "r-1")

	err := h.wf.SelectReason("damaged")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Empty(t, h.wf.Draft().Reason)
}

func TestBack_KeepsFields(t *testing.T) {
	h := newHarness()
	h.toDetails(t, domain.ReportProduct, "p-1", "counterfeit")
	require.NoError(t, h.wf.SetMessage("fake logo"))

	require.NoError(t, h.wf.Back())
	assert.Equal(t, StepSelectReason, h.wf.State())
	assert.Equal(t, "counterfeit", h.wf.Draft().Reason)
	assert.Equal(t, "fake logo", h.wf.Draft().Message)

	assert.ErrorIs(t, h.wf.Back(), ErrWrongState)
}

func TestOpen_CleanSlate(t *testing.T) {
	h := newHarness()
	h.toDetails(t, domain.ReportReview, "r-1", "spam")
	require.NoError(t, h.wf.SetMessage("buy now"))
	require.NoError(t, h.wf.SetSeverity(domain.SeverityCritical))

	h.wf.Open(domain.ReportReply, "rp-1")
	d := h.wf.Draft()
	assert.Equal(t, Draft{Kind: domain.ReportReply, TargetID: "rp-1", Severity: domain.SeverityMedium}, d)
	assert.Equal(t, StepSelectReason, h.wf.State())
	assert.Equal(t, "Report reply", h.wf.Config().Title)
}

func TestOpenKind_UnknownFallsBackToSystem(t *testing.T) {
	h := newHarness()
	h.wf.OpenKind("spaceship", "x")
	assert.Equal(t, domain.ReportSystem, h.wf.Config().Kind)
	assert.Equal(t, domain.ReportSystem, h.wf.Draft().Kind)
}

func TestSetMessage_TooLong(t *testing.T) {
	h := newHarness()
	h.toDetails(t, domain.ReportReview, "r-1", "spam")

	err := h.wf.SetMessage(strings.Repeat("x", domain.MaxReportMessageLength+1))
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Empty(t, h.wf.Draft().Message)
}

func TestSetSeverity_Invalid(t *testing.T) {
	h := newHarness()
	h.toDetails(t, domain.ReportReview, "r-1", "spam")
	assert.ErrorIs(t, h.wf.SetSeverity("urgent"), apperrors.ErrValidation)
	assert.Equal(t, domain.SeverityMedium, h.wf.Draft().Severity)
}

func TestPayload_SystemOmitsTarget(t *testing.T) {
	h := newHarness()
	h.toDetails(t, domain.ReportSystem, "ignored", "bug")
	assert.Empty(t, h.wf.Payload().TargetID)

	h.toDetails(t, domain.ReportReview, "r-1", "spam")
	assert.Equal(t, "r-1", h.wf.Payload().TargetID)
}

func TestSubmit_OnlyFromDetails(t *testing.T) {
	h := newHarness()
	assert.ErrorIs(t, h.wf.Submit(context.Background()), ErrWrongState)

	h.wf.Open(domain.ReportReview, "r-1")
	assert.ErrorIs(t, h.wf.Submit(context.Background()), ErrWrongState)
	h.sub.AssertNotCalled(t, "SubmitReport", mock.Anything, mock.Anything)
}

func TestSubmit_SuccessAutoClosesAndRunsHooks(t *testing.T) {
	h := newHarness()
	h.toDetails(t, domain.ReportReview, "r-1", "spam")
	require.NoError(t, h.wf.SetSeverity(domain.SeverityHigh))

	want := domain.Report{Type: domain.ReportReview, TargetID: "r-1", Reason: "spam", Severity: domain.SeverityHigh}
	h.sub.On("SubmitReport", mock.Anything, want).Return(okResponse("Report received"), nil).Once()

	hookRuns := 0
	h.wf.OnSubmitted(func(context.Context) { hookRuns++ })

	require.NoError(t, h.wf.Submit(context.Background()))
	assert.Equal(t, Submitted, h.wf.State())
	assert.Equal(t, 1, hookRuns)
	assert.Equal(t, []notify.Level{notify.LevelSuccess}, h.notes.levels())

	require.Len(t, h.timers, 1)
	assert.Equal(t, AutoCloseDelay, h.timers[0].delay)
	h.timers[0].fire()
	assert.Equal(t, Closed, h.wf.State())
	assert.Equal(t, Draft{}, h.wf.Draft())
	h.sub.AssertExpectations(t)
}

func TestSubmit_FailureReturnsToDetailsWithFields(t *testing.T) {
	h := newHarness()
	h.toDetails(t, domain.ReportOrder, "o-1", "damaged")
	require.NoError(t, h.wf.SetMessage("box crushed"))

	h.sub.On("SubmitReport", mock.Anything, mock.Anything).
		Return(nil, apperrors.Backend(409, "CONFLICT", "You already reported this")).Once()

	err := h.wf.Submit(context.Background())
	require.Error(t, err)
	assert.Equal(t, StepDetails, h.wf.State())
	assert.Equal(t, Draft{Kind: domain.ReportOrder, TargetID: "o-1", Reason: "damaged", Message: "box crushed", Severity: domain.SeverityMedium}, h.wf.Draft())

	require.Len(t, h.notes.items, 1)
	assert.Equal(t, notify.LevelError, h.notes.items[0].Level)
	assert.Equal(t, "You already reported this", h.notes.items[0].Message)
	assert.Empty(t, h.timers)

	// Retry works from the preserved state.
	h.sub.On("SubmitReport", mock.Anything, mock.Anything).Return(okResponse(""), nil).Once()
	require.NoError(t, h.wf.Submit(context.Background()))
	assert.Equal(t, Submitted, h.wf.State())
}

func TestSubmit_NetworkFailureUsesFallbackMessage(t *testing.T) {
	h := newHarness()
	h.toDetails(t, domain.ReportSystem, "", "bug")
	h.sub.On("SubmitReport", mock.Anything, mock.Anything).Return(nil, apperrors.Network(errors.New("refused")))

	require.Error(t, h.wf.Submit(context.Background()))
	assert.Equal(t, "Failed to submit report", h.notes.items[0].Message)
}

func TestClose_StopsPendingAutoClose(t *testing.T) {
	h := newHarness()
	h.toDetails(t, domain.ReportReview, "r-1", "spam")
	h.sub.On("SubmitReport", mock.Anything, mock.Anything).Return(okResponse("ok"), nil)
	require.NoError(t, h.wf.Submit(context.Background()))

	h.wf.Close()
	assert.True(t, h.timers[0].stopped)

	// A late firing after reopening must not close the new dialog.
	h.wf.Open(domain.ReportReply, "rp-1")
	h.timers[0].fire()
	assert.Equal(t, StepSelectReason, h.wf.State())
}

func TestSubmit_ClosedWhileInFlightStillCompletes(t *testing.T) {
	h := newHarness()
	h.toDetails(t, domain.ReportReview, "r-1", "spam")
	h.sub.On("SubmitReport", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { h.wf.Close() }).
		Return(okResponse("Report received"), nil).Once()

	hookRuns := 0
	h.wf.OnSubmitted(func(context.Context) { hookRuns++ })

	require.NoError(t, h.wf.Submit(context.Background()))
	assert.Equal(t, Closed, h.wf.State())
	assert.Equal(t, 1, hookRuns)
	assert.Equal(t, []notify.Level{notify.LevelSuccess}, h.notes.levels())
	assert.Empty(t, h.timers)
}

func TestSubmit_ReopenedWhileInFlightKeepsNewDialog(t *testing.T) {
	h := newHarness()
	h.toDetails(t, domain.ReportReview, "r-1", "spam")
	h.sub.On("SubmitReport", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { h.wf.Open(domain.ReportReply, "rp-1") }).
		Return(okResponse(""), nil).Once()

	require.NoError(t, h.wf.Submit(context.Background()))
	assert.Equal(t, StepSelectReason, h.wf.State())
	assert.Equal(t, "rp-1", h.wf.Draft().TargetID)
	assert.Equal(t, []notify.Level{notify.LevelSuccess}, h.notes.levels())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "closed", Closed.String())
	assert.Equal(t, "details", StepDetails.String())
	assert.Equal(t, "submitted", Submitted.String())
}
