package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/fitvibe/pkg/logger"
)

func TestRequestLogging_GeneratesCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	l := logger.NewWithWriter("review", "info", &buf)

	var seen string
	handler := RequestLogging(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logger.CorrelationIDFromContext(r.Context())
		w.WriteHeader(http.StatusCreated)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/products/p-1/reviews", nil))

	require.NotEmpty(t, seen)
	assert.Equal(t, seen, rr.Header().Get(CorrelationHeader))

	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "http request", out["msg"])
	assert.EqualValues(t, http.StatusCreated, out["status"])
	assert.Equal(t, seen, out["correlation_id"])
}

func TestRequestLogging_ReusesIncomingCorrelationID(t *testing.T) {
	handler := RequestLogging(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "abc-123", logger.CorrelationIDFromContext(r.Context()))
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(CorrelationHeader, "abc-123")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, "abc-123", rr.Header().Get(CorrelationHeader))
}

func TestRecovery_WritesEnvelope(t *testing.T) {
	handler := Recovery(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "INTERNAL_ERROR", body["code"])
}

func TestStatusWriter_RecordsFirstStatus(t *testing.T) {
	rr := httptest.NewRecorder()
	sw := wrapWriter(rr)
	sw.WriteHeader(http.StatusAccepted)
	_, _ = sw.Write([]byte("hello"))

	assert.Equal(t, http.StatusAccepted, sw.status)
	assert.Equal(t, 5, sw.bytes)
	assert.Same(t, sw, wrapWriter(sw))
}

func TestPrometheusMetrics_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(PrometheusMetrics("review-test"))
	r.Get("/products/{id}/reviews", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/products/p-1/reviews", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	counter, err := httpRequestsTotal.GetMetricWithLabelValues("review-test", http.MethodGet, "/products/{id}/reviews", "200")
	require.NoError(t, err)
	assert.NotNil(t, counter)
}

func TestTracing_PassesThrough(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Tracing("review"))
	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusTeapot, rr.Code)
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name        string
		cfg         CORSConfig
		origin      string
		wantOrigin  string
		wantCredsOn bool
	}{
		{"listed origin with credentials", DefaultCORSConfig(), "http://localhost:3000", "http://localhost:3000", true},
		{"unlisted origin", DefaultCORSConfig(), "https://evil.example", "", false},
		{"wildcard echoes origin with credentials", CORSConfig{AllowedOrigins: []string{"*"}, AllowCredentials: true}, "https://a.example", "https://a.example", true},
		{"wildcard without credentials", CORSConfig{AllowedOrigins: []string{"*"}}, "https://a.example", "*", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := CORS(tt.cfg)(okHandler())
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Origin", tt.origin)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantOrigin, rr.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, tt.wantCredsOn, rr.Header().Get("Access-Control-Allow-Credentials") == "true")
		})
	}
}

func TestCORS_Preflight(t *testing.T) {
	handler := CORS(DefaultCORSConfig())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("preflight must not reach the handler")
	}))
	req := httptest.NewRequest(http.MethodOptions, "/reports", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Contains(t, rr.Header().Get("Access-Control-Allow-Methods"), "PUT")
}

func TestIPAllowlist(t *testing.T) {
	handler := IPAllowlist([]string{"127.0.0.0/8", "not-a-cidr"}, logger.Nop())(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil)
	req.RemoteAddr = "127.0.0.1:4000"
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)

	req.RemoteAddr = "192.168.0.10:4000"
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Contains(t, rr.Body.String(), `"success":false`)
}

func TestCacheControl_OnlySafeMethods(t *testing.T) {
	h := CacheControl(45 * time.Second)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	get := httptest.NewRecorder()
	h.ServeHTTP(get, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "public, max-age=45", get.Header().Get("Cache-Control"))

	post := httptest.NewRecorder()
	h.ServeHTTP(post, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Empty(t, post.Header().Get("Cache-Control"))
}
