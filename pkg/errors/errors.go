package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard sentinel errors for common cases.
var (
	ErrNotFound       = errors.New("resource not found")
	ErrAlreadyExists  = errors.New("resource already exists")
	ErrInvalidInput   = errors.New("invalid input")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrInternal       = errors.New("internal error")
	ErrConflict       = errors.New("conflict")
	ErrServiceUnavail = errors.New("service unavailable")
	ErrRateLimited    = errors.New("rate limited")
)

// Client-side taxonomy. These never leave the process; they decide what the
// viewer is told and whether a request is sent at all.
var (
	// ErrValidation blocks a submission before any network call.
	ErrValidation = errors.New("validation failed")
	// ErrBackend means the backend answered with a failure envelope.
	ErrBackend = errors.New("backend rejected request")
	// ErrNetwork covers transport failures and undecodable responses.
	ErrNetwork = errors.New("network error")
	// ErrNotAuthorized is returned when the viewer lacks the affordance locally.
	ErrNotAuthorized = errors.New("not authorized")
	// ErrInFlight is returned when the same action is already pending.
	ErrInFlight = errors.New("request already in flight")
)

// AppError represents a structured application error with HTTP status mapping.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound creates a 404 error.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s with id %s not found", resource, id),
		Status:  http.StatusNotFound,
		Err:     ErrNotFound,
	}
}

// AlreadyExists creates a 409 error.
func AlreadyExists(resource, field, value string) *AppError {
	return &AppError{
		Code:    "ALREADY_EXISTS",
		Message: fmt.Sprintf("%s with %s %q already exists", resource, field, value),
		Status:  http.StatusConflict,
		Err:     ErrAlreadyExists,
	}
}

// Conflict creates a 409 error with a free-form message.
func Conflict(message string) *AppError {
	return &AppError{
		Code:    "CONFLICT",
		Message: message,
		Status:  http.StatusConflict,
		Err:     ErrConflict,
	}
}

// InvalidInput creates a 400 error.
func InvalidInput(message string) *AppError {
	return &AppError{
		Code:    "INVALID_INPUT",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// Unauthorized creates a 401 error.
func Unauthorized(message string) *AppError {
	return &AppError{
		Code:    "UNAUTHORIZED",
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     ErrUnauthorized,
	}
}

// Forbidden creates a 403 error.
func Forbidden(message string) *AppError {
	return &AppError{
		Code:    "FORBIDDEN",
		Message: message,
		Status:  http.StatusForbidden,
		Err:     ErrForbidden,
	}
}

// TooManyRequests creates a 429 error.
func TooManyRequests(message string) *AppError {
	return &AppError{
		Code:    "RATE_LIMITED",
		Message: message,
		Status:  http.StatusTooManyRequests,
		Err:     ErrRateLimited,
	}
}

// Internal creates a 500 error.
func Internal(err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// Validation creates a client-side validation error. It carries no HTTP
// status because it is never sent anywhere.
func Validation(message string) *AppError {
	return &AppError{
		Code:    "VALIDATION_ERROR",
		Message: message,
		Err:     ErrValidation,
	}
}

// Backend wraps a failure envelope returned by the backend. The message is
// the one the backend put in its body, shown to the viewer as is.
func Backend(status int, code, message string) *AppError {
	if code == "" {
		code = "BACKEND_ERROR"
	}
	return &AppError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     ErrBackend,
	}
}

// Network wraps a transport-level failure.
func Network(err error) *AppError {
	return &AppError{
		Code:    "NETWORK_ERROR",
		Message: "could not reach the server",
		Err:     fmt.Errorf("%w: %w", ErrNetwork, err),
	}
}

// NotAuthorized creates the local affordance error.
func NotAuthorized(message string) *AppError {
	return &AppError{
		Code:    "NOT_AUTHORIZED",
		Message: message,
		Status:  http.StatusForbidden,
		Err:     ErrNotAuthorized,
	}
}

// InFlight is returned when the same action on the same entity is already
// waiting for the backend.
func InFlight(action string) *AppError {
	return &AppError{
		Code:    "IN_FLIGHT",
		Message: action + " is already in progress",
		Status:  http.StatusConflict,
		Err:     ErrInFlight,
	}
}

// UserMessage returns the text a viewer should see for err. Validation,
// backend and authorization errors carry their own message; everything else
// gets the fallback.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		switch {
		case errors.Is(appErr, ErrValidation),
			errors.Is(appErr, ErrBackend),
			errors.Is(appErr, ErrNotAuthorized),
			errors.Is(appErr, ErrInFlight):
			return appErr.Message
		}
	}
	return fallback
}

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Status != 0 {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyExists), errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrNotAuthorized):
		return http.StatusForbidden
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrServiceUnavail):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
