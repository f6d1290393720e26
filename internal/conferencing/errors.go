// Package conferencing is an HTTP client for the conferencing provider:
// OAuth account-credentials auth, paginated recording listing, and
// per-meeting lookup. Same Client/error-classification/retry shape as
// this module's other outbound HTTP clients, swapped to this domain's
// endpoints.
package conferencing

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for HTTP status code classification, mirroring
// graph.ErrNotFound/graph.ErrThrottled et al.
var (
	ErrBadRequest   = errors.New("conferencing: bad request")
	ErrUnauthorized = errors.New("conferencing: unauthorized")
	ErrForbidden    = errors.New("conferencing: forbidden")
	ErrNotFound     = errors.New("conferencing: not found")
	ErrConflict     = errors.New("conferencing: conflict")
	ErrNotReady     = errors.New("conferencing: not ready")
	ErrThrottled    = errors.New("conferencing: throttled")
	ErrServerError  = errors.New("conferencing: server error")
)

// ClientError wraps a sentinel error with the HTTP status code and response
// body, mirroring graph.GraphError.
type ClientError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("conferencing: HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *ClientError) Unwrap() error { return e.Err }

// classifyStatus maps an HTTP status code to a sentinel error. The 404/409/425
// trio classifies as ErrNotReady per spec §4.1's HEAD-warmup semantics
// (recordings not yet finalized upstream return one of these) — a
// provider-specific "not ready" concept this client's error taxonomy adds
// on top of the usual not-found/conflict classification.
func classifyStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound, http.StatusConflict, http.StatusTooEarly:
		return ErrNotReady
	case http.StatusTooManyRequests:
		return ErrThrottled
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return nil
	}
}

// isRetryable reports whether the given HTTP status code should be retried,
// mirroring graph.isRetryable.
func isRetryable(code int) bool {
	switch code {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusTooEarly,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
