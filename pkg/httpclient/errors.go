package httpclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/utafrali/fitvibe/pkg/errors"
)

// FailureEnvelope is the body of a non-2xx response: {success:false, message, code}.
type FailureEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// ParseResponseError reads the body of a non-2xx response and turns it into
// a backend error carrying the server's message. The body is consumed and
// closed.
func ParseResponseError(resp *http.Response) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return apperrors.Network(fmt.Errorf("read %d response body: %w", resp.StatusCode, err))
	}
	return FailureFromBody(resp.StatusCode, body)
}

// FailureFromBody maps a status and raw body to an error. A body that is not
// a failure envelope yields a backend error with an empty message, so the
// caller's fallback text is shown.
func FailureFromBody(status int, body []byte) error {
	var env FailureEnvelope
	if json.Unmarshal(body, &env) != nil {
		return apperrors.Backend(status, "", "")
	}
	return apperrors.Backend(status, env.Code, env.Message)
}

// TranslateError converts errors returned by a Doer into the client error
// taxonomy: 5xx from the breaker become backend errors, everything else is a
// network failure.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}
	var se *StatusError
	if errors.As(err, &se) {
		return FailureFromBody(se.StatusCode, se.Body)
	}
	return apperrors.Network(err)
}
