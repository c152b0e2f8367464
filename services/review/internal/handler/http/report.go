package http

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/fitvibe/internal/domain"
	"github.com/utafrali/fitvibe/pkg/httputil"
	"github.com/utafrali/fitvibe/pkg/pagination"
	"github.com/utafrali/fitvibe/services/review/internal/service"
)

// ReportHandler handles HTTP requests for report endpoints.
type ReportHandler struct {
	service *service.ReportService
	logger  *slog.Logger
}

// NewReportHandler creates a new report HTTP handler.
func NewReportHandler(svc *service.ReportService, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{
		service: svc,
		logger:  logger,
	}
}

type reportsResponse struct {
	httputil.Envelope
	Reports []domain.StoredReport `json:"reports"`
	pagination.Meta
}

// SubmitReport handles POST /reports.
func (h *ReportHandler) SubmitReport(w http.ResponseWriter, r *http.Request) {
	var in domain.Report
	if err := decodeJSON(w, r, &in); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if _, err := h.service.Submit(r.Context(), viewerFrom(r), in); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, httputil.OK("Report submitted successfully"))
}

// ListReports handles GET /reports?type=&page=&per_page= for moderators.
func (h *ReportHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	reports, meta, err := h.service.List(r.Context(), r.URL.Query().Get("type"), pagination.FromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if reports == nil {
		reports = []domain.StoredReport{}
	}

	httputil.WriteJSON(w, http.StatusOK, reportsResponse{
		Envelope: httputil.OK(""),
		Reports:  reports,
		Meta:     meta,
	})
}
