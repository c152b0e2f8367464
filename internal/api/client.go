// Package api is the typed client of the review backend.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	apperrors "github.com/utafrali/fitvibe/pkg/errors"
	"github.com/utafrali/fitvibe/pkg/httpclient"
)

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 4 << 20

// envelope is implemented by every response type.
type envelope interface {
	succeeded() bool
	failureMessage() string
}

// Client calls the review backend. Each endpoint has its own response type;
// a 2xx body without success:true is still treated as a failure.
type Client struct {
	doer    httpclient.Doer
	baseURL string
	logger  *slog.Logger
}

// New creates a client for the backend at baseURL.
func New(doer httpclient.Doer, baseURL string, logger *slog.Logger) *Client {
	return &Client{
		doer:    doer,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

func (c *Client) path(segments ...string) string {
	var b strings.Builder
	b.WriteString(c.baseURL)
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	return b.String()
}

func (c *Client) doJSON(ctx context.Context, method, target string, payload any, out envelope) error {
	var body []byte
	contentType := ""
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, target, err)
		}
		contentType = "application/json"
	}
	return c.do(ctx, method, target, contentType, body, out)
}

func (c *Client) do(ctx context.Context, method, target, contentType string, body []byte, out envelope) error {
	req, err := httpclient.NewRequest(ctx, method, target, contentType, body)
	if err != nil {
		return apperrors.Network(err)
	}

	resp, err := c.doer.Do(ctx, req)
	if err != nil {
		c.logger.DebugContext(ctx, "backend call failed",
			slog.String("method", method),
			slog.String("url", target),
			slog.String("error", err.Error()),
		)
		return httpclient.TranslateError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return httpclient.ParseResponseError(resp)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return apperrors.Network(fmt.Errorf("read %s %s: %w", method, target, err))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return apperrors.Network(fmt.Errorf("decode %s %s: %w", method, target, err))
	}
	if !out.succeeded() {
		return apperrors.Backend(resp.StatusCode, "", out.failureMessage())
	}
	return nil
}

// Status is the part shared by every response body.
type Status struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func (s *Status) succeeded() bool        { return s.Success }
func (s *Status) failureMessage() string { return s.Message }

var _ envelope = (*Status)(nil)
