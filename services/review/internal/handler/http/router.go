package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/fitvibe/internal/domain"
	"github.com/utafrali/fitvibe/pkg/health"
	"github.com/utafrali/fitvibe/pkg/middleware"
	"github.com/utafrali/fitvibe/services/review/internal/service"
)

// Services groups the business services the router exposes.
type Services struct {
	Reviews *service.ReviewService
	Replies *service.ReplyService
	Reports *service.ReportService
}

// RouterConfig holds the HTTP-level settings of the router.
type RouterConfig struct {
	CORS              middleware.CORSConfig
	PprofAllowedCIDRs []string
	MaxImageBytes     int64
}

// NewRouter creates a chi router with all review service routes registered.
func NewRouter(
	svc Services,
	codec *middleware.SessionCodec,
	limiter *middleware.RateLimiter,
	healthHandler *health.Handler,
	cfg RouterConfig,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing("review-service"))
	r.Use(middleware.PrometheusMetrics("review"))
	r.Use(middleware.Session(codec, logger))
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())
	middleware.RegisterPprof(r, cfg.PprofAllowedCIDRs, logger)

	reviewHandler := NewReviewHandler(svc.Reviews, cfg.MaxImageBytes, logger)
	replyHandler := NewReplyHandler(svc.Replies, logger)
	reportHandler := NewReportHandler(svc.Reports, logger)
	throttle := limiter.Middleware(logger)

	r.Route("/products/{productId}/reviews", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Get("/", reviewHandler.ListReviews)
		r.With(middleware.CacheControl(30*time.Second)).Get("/summary", reviewHandler.Summary)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireSession)

			r.With(throttle).Post("/", reviewHandler.CreateReview)
			r.Put("/", reviewHandler.UpdateReview)
			r.Delete("/{reviewId}", reviewHandler.DeleteReview)
			r.Put("/{reviewId}/like", reviewHandler.LikeReview)

			r.Post("/{reviewId}/replies", replyHandler.CreateReply)
			r.Put("/{reviewId}/replies/{replyId}", replyHandler.UpdateReply)
			r.Delete("/{reviewId}/replies/{replyId}", replyHandler.DeleteReply)
			r.Post("/{reviewId}/replies/{replyId}/like", replyHandler.LikeReply)
		})
	})

	r.Route("/reports", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.With(middleware.RequireSession, throttle).Post("/", reportHandler.SubmitReport)
		r.With(middleware.RequireRole(domain.RoleAdmin)).Get("/", reportHandler.ListReports)
	})

	return r
}
