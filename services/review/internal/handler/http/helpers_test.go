package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/utafrali/fitvibe/internal/domain"
	"github.com/utafrali/fitvibe/pkg/httputil"
	"github.com/utafrali/fitvibe/pkg/middleware"
)

type formFile struct {
	field       string
	name        string
	contentType string
	data        []byte
}

func pngFile(field, name string) formFile {
	return formFile{field: field, name: name, contentType: "image/png", data: []byte("\x89PNG\r\n\x1a\nfake")}
}

// multipartBody encodes fields and files as multipart/form-data.
func multipartBody(t *testing.T, fields map[string][]string, files ...formFile) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, values := range fields {
		for _, v := range values {
			require.NoError(t, mw.WriteField(name, v))
		}
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.field, f.name))
		h.Set("Content-Type", f.contentType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

// do sends a request as v, or anonymously when v is nil.
func (s *testServer) do(t *testing.T, method, path string, body io.Reader, contentType string, v *middleware.Viewer) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if v != nil {
		req.Header.Set("Authorization", "Bearer "+s.token(t, *v))
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

// seedReview stores a review of productID written by v.
func (s *testServer) seedReview(id, productID string, v middleware.Viewer, rating float64) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.store.reviews = append(s.store.reviews, &domain.Review{
		ID:        id,
		ProductID: productID,
		Author:    domain.Author{ID: v.UserID, Name: v.Name, Role: v.Role},
		Rating:    rating,
		Title:     "Seeded",
		Comment:   "Seeded review",
		Images:    []string{},
		Likes:     []string{},
		Reports:   []domain.ReportMark{},
		Replies:   []domain.Reply{},
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out), rec.Body.String())
	return out
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) httputil.ErrorResponse {
	t.Helper()
	return decode[httputil.ErrorResponse](t, rec)
}

func viewerPtr(v middleware.Viewer) *middleware.Viewer { return &v }
