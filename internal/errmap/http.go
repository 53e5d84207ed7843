package errmap

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aelexs/marketplace-countdown/internal/domain"
)

// HTTPError represents an HTTP error response.
type HTTPError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e HTTPError) Error() string {
	return e.Message
}

// httpMapping defines a domain error to HTTP status/code mapping.
type httpMapping struct {
	err        error
	statusCode int
	code       string
	// message replaces err.Error() when set, for errors that wrap
	// infrastructure detail.
	message string
}

// httpMappings maps domain errors to HTTP status codes and error codes.
// Order matters: first match wins (via errors.Is).
var httpMappings = []httpMapping{
	// Resource errors
	{err: domain.ErrNotFound, statusCode: http.StatusNotFound, code: "NOT_FOUND"},

	// Validation errors: 400
	{err: domain.ErrInvalidKind, statusCode: http.StatusBadRequest, code: "INVALID_KIND"},
	{err: domain.ErrInvalidDeadline, statusCode: http.StatusBadRequest, code: "INVALID_DEADLINE"},
	{err: domain.ErrInvalidInput, statusCode: http.StatusBadRequest, code: "INVALID_ARGUMENT"},
	{err: domain.ErrEmptyID, statusCode: http.StatusBadRequest, code: "INVALID_ARGUMENT"},
	{err: domain.ErrInvalidID, statusCode: http.StatusBadRequest, code: "INVALID_ARGUMENT"},

	// Rate limiting: 429
	{err: domain.ErrRateLimited, statusCode: http.StatusTooManyRequests, code: "RATE_LIMITED"},

	// Availability
	{err: domain.ErrUnavailable, statusCode: http.StatusServiceUnavailable, code: "UNAVAILABLE", message: "service unavailable"},
}

// ToHTTPError converts a domain error to an HTTP error.
func ToHTTPError(err error) HTTPError {
	if err == nil {
		return HTTPError{StatusCode: http.StatusOK}
	}
	for _, m := range httpMappings {
		if errors.Is(err, m.err) {
			msg := m.message
			if msg == "" {
				msg = err.Error()
			}
			return HTTPError{StatusCode: m.statusCode, Code: m.code, Message: msg}
		}
	}
	// Never expose internal error details to clients
	return HTTPError{StatusCode: http.StatusInternalServerError, Code: "INTERNAL", Message: "internal error"}
}

// retryAfterSeconds is advertised on retryable errors.
const retryAfterSeconds = "1"

// errorBody is the JSON envelope for error responses.
type errorBody struct {
	Error HTTPError `json:"error"`
}

// WriteHTTPError writes err as a JSON error response and returns the
// mapped HTTPError so callers can log the status.
func WriteHTTPError(w http.ResponseWriter, err error) HTTPError {
	httpErr := ToHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	if domain.IsRetryable(err) {
		w.Header().Set("Retry-After", retryAfterSeconds)
	}
	w.WriteHeader(httpErr.StatusCode)
	_ = json.NewEncoder(w).Encode(errorBody{Error: httpErr})
	return httpErr
}
