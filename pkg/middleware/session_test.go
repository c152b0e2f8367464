package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/fitvibe/pkg/logger"
)

const testSecret = "test-secret-key-for-sessions-0123456789"

func newTestCodec() *SessionCodec {
	return NewSessionCodec(testSecret, "fitvibe")
}

func TestSessionCodec_RoundTrip(t *testing.T) {
	codec := newTestCodec()
	token, err := codec.Sign(Viewer{UserID: "u-1", Name: "Ada", Avatar: "a.png", Role: "admin"}, time.Hour)
	require.NoError(t, err)

	v, err := codec.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, Viewer{UserID: "u-1", Name: "Ada", Avatar: "a.png", Role: "admin"}, v)
	assert.True(t, v.IsAdmin())
}

func TestSessionCodec_DefaultsRoleToUser(t *testing.T) {
	codec := newTestCodec()
	token, err := codec.Sign(Viewer{UserID: "u-2", Name: "Bo"}, time.Hour)
	require.NoError(t, err)

	v, err := codec.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "user", v.Role)
	assert.False(t, v.IsAdmin())
}

func TestSessionCodec_RejectsExpired(t *testing.T) {
	codec := newTestCodec()
	codec.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, err := codec.Sign(Viewer{UserID: "u-1"}, time.Hour)
	require.NoError(t, err)

	codec.now = time.Now
	_, err = codec.Parse(token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestSessionCodec_RejectsWrongSecret(t *testing.T) {
	token, err := NewSessionCodec("another-secret", "fitvibe").Sign(Viewer{UserID: "u-1"}, time.Hour)
	require.NoError(t, err)

	_, err = newTestCodec().Parse(token)
	assert.ErrorIs(t, err, jwt.ErrSignatureInvalid)
}

func TestSessionCodec_RejectsNoneAlgorithm(t *testing.T) {
	claims := SessionClaims{
		UserID:           "u-1",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)), Issuer: "fitvibe"},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = newTestCodec().Parse(token)
	assert.Error(t, err)
}

func TestSessionCodec_Cookie(t *testing.T) {
	c := newTestCodec().Cookie("tok", time.Hour, true)
	assert.Equal(t, SessionCookieName, c.Name)
	assert.Equal(t, "tok", c.Value)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, "/", c.Path)
}

func captureViewer(t *testing.T, req *http.Request) (Viewer, bool) {
	t.Helper()
	var (
		got Viewer
		ok  bool
	)
	handler := Session(newTestCodec(), logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok = ViewerFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	return got, ok
}

func TestSession_FromCookie(t *testing.T) {
	codec := newTestCodec()
	token, err := codec.Sign(Viewer{UserID: "u-1", Name: "Ada"}, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(codec.Cookie(token, time.Hour, false))

	v, ok := captureViewer(t, req)
	require.True(t, ok)
	assert.Equal(t, "u-1", v.UserID)
}

func TestSession_FromBearer(t *testing.T) {
	token, err := newTestCodec().Sign(Viewer{UserID: "u-9"}, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	v, ok := captureViewer(t, req)
	require.True(t, ok)
	assert.Equal(t, "u-9", v.UserID)
}

func TestSession_AnonymousAndInvalidPassThrough(t *testing.T) {
	_, ok := captureViewer(t, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.False(t, ok)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "garbage"})
	_, ok = captureViewer(t, req)
	assert.False(t, ok)
}

func TestRequireSession(t *testing.T) {
	handler := RequireSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/reports", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "UNAUTHORIZED", body["code"])

	req := httptest.NewRequest(http.MethodPost, "/reports", nil)
	req = req.WithContext(WithViewer(req.Context(), Viewer{UserID: "u-1"}))
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestRequireRole(t *testing.T) {
	handler := RequireRole("admin")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name   string
		viewer *Viewer
		want   int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"user", &Viewer{UserID: "u-1", Role: "user"}, http.StatusForbidden},
		{"admin", &Viewer{UserID: "u-2", Role: "admin"}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tt.viewer != nil {
				req = req.WithContext(WithViewer(req.Context(), *tt.viewer))
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			assert.Equal(t, tt.want, rr.Code)
		})
	}
}

func TestRequestLogger_AddsUserID(t *testing.T) {
	var buf bytes.Buffer
	base := logger.NewWithWriter("review", "info", &buf)

	handler := RequestLogger(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.FromContext(r.Context()).Info("inside")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	ctx := logger.WithCorrelationID(req.Context(), "corr-1")
	ctx = WithViewer(ctx, Viewer{UserID: "u-7"})
	handler.ServeHTTP(httptest.NewRecorder(), req.WithContext(ctx))

	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "u-7", out["user_id"])
	assert.Equal(t, "corr-1", out["correlation_id"])
}
