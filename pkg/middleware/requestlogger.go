package middleware

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/fitvibe/pkg/logger"
)

// RequestLogger stores a request-scoped logger in context carrying
// correlation_id, user_id, trace_id and span_id. Mount it after
// RequestLogging, Tracing and Session so those values are present.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if v, ok := ViewerFromContext(ctx); ok {
				ctx = logger.WithUserID(ctx, v.UserID)
			}
			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
