package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/fitvibe/internal/domain"
	apperrors "github.com/utafrali/fitvibe/pkg/errors"
	"github.com/utafrali/fitvibe/pkg/pagination"
	"github.com/utafrali/fitvibe/pkg/validator"
	"github.com/utafrali/fitvibe/services/review/internal/event"
	"github.com/utafrali/fitvibe/services/review/internal/repository"
)

// ReportService accepts reports from signed-in users and lists them for
// moderators.
type ReportService struct {
	reports  repository.ReportRepository
	producer *event.Producer
	logger   *slog.Logger
	now      func() time.Time
}

// NewReportService creates a new report service.
func NewReportService(reports repository.ReportRepository, producer *event.Producer, logger *slog.Logger) *ReportService {
	return &ReportService{
		reports:  reports,
		producer: producer,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Submit stores a report. The reason must belong to the kind, a target is
// required unless the kind is system, and a user reports a review or reply
// at most once.
func (s *ReportService) Submit(ctx context.Context, viewer domain.Viewer, in domain.Report) (*domain.StoredReport, error) {
	if viewer.Anonymous() {
		return nil, apperrors.Unauthorized("please sign in to send a report")
	}

	in.Type = domain.ReportKind(strings.ToLower(strings.TrimSpace(string(in.Type))))
	in.TargetID = strings.TrimSpace(in.TargetID)
	in.Message = strings.TrimSpace(in.Message)
	if !in.Type.NeedsTarget() {
		in.TargetID = ""
	}
	if err := validator.Validate(in); err != nil {
		return nil, err
	}
	if !domain.ConfigFor(in.Type).HasReason(in.Reason) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("reason %q is not valid for %s reports", in.Reason, in.Type))
	}

	rep := &domain.StoredReport{
		ID:         uuid.New().String(),
		Report:     in,
		ReporterID: viewer.ID,
		CreatedAt:  s.now(),
	}
	if err := s.reports.Create(ctx, rep); err != nil {
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			return nil, apperrors.Conflict(fmt.Sprintf("You already reported this %s", in.Type))
		}
		return nil, fmt.Errorf("create report: %w", err)
	}

	if err := s.producer.PublishReportSubmitted(ctx, rep); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish report.submitted event",
			slog.String("report_id", rep.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "report submitted",
		slog.String("report_id", rep.ID),
		slog.String("type", string(rep.Type)),
		slog.String("severity", string(rep.Severity)),
	)
	return rep, nil
}

// List returns a page of reports, optionally of one kind.
func (s *ReportService) List(ctx context.Context, kind string, params pagination.Params) ([]domain.StoredReport, pagination.Meta, error) {
	k := domain.ReportKind(strings.ToLower(strings.TrimSpace(kind)))
	if k != "" && !slices.Contains(domain.ReportKinds, k) {
		return nil, pagination.Meta{}, apperrors.InvalidInput(fmt.Sprintf("unknown report type %q", kind))
	}

	reports, total, err := s.reports.List(ctx, k, params.Offset, params.PerPage)
	if err != nil {
		return nil, pagination.Meta{}, fmt.Errorf("list reports: %w", err)
	}
	return reports, pagination.NewMeta(total, params), nil
}
