package errors

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
)

// HTTPError is the failure body returned by the gateway:
// {"error": {"reason": CODE, "details": message}}.
type HTTPError struct {
	Status int         `json:"-"`
	Body   HTTPFailure `json:"error"`
}

// HTTPFailure carries the machine-readable reason and human details.
type HTTPFailure struct {
	Reason  string `json:"reason"`
	Details string `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	return e.Body.Details
}

// StatusCode returns the HTTP status code for an error.
func StatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if errors.Is(err, context.Canceled) {
		return 499 // Client Closed Request
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusRequestTimeout
	}
	return codeToHTTPStatus(GetErrorCode(err))
}

func codeToHTTPStatus(code string) int {
	switch code {
	case CodeOK:
		return http.StatusOK
	case CodeCancelled:
		return 499
	case CodeInvalidConfig:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodePayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case CodeRejected:
		return http.StatusForbidden
	case CodeRateLimit:
		return http.StatusTooManyRequests
	case CodeConflict:
		return http.StatusConflict
	case CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ToHTTPError converts an error to an HTTPError.
func ToHTTPError(err error) *HTTPError {
	if err == nil {
		return &HTTPError{
			Status: http.StatusOK,
			Body:   HTTPFailure{Reason: CodeOK},
		}
	}

	httpErr := &HTTPError{Status: StatusCode(err)}

	var customErr Error
	switch {
	case errors.Is(err, context.Canceled):
		httpErr.Body = HTTPFailure{Reason: CodeCancelled, Details: err.Error()}
	case errors.As(err, &customErr):
		httpErr.Body = HTTPFailure{Reason: customErr.Code(), Details: err.Error()}
	default:
		// Do not leak internals of unexpected errors.
		httpErr.Body = HTTPFailure{Reason: GetErrorCode(err), Details: "internal error"}
	}

	return httpErr
}

// WriteHTTPError writes an error response to an http.ResponseWriter.
func WriteHTTPError(w http.ResponseWriter, err error) {
	httpErr := ToHTTPError(err)
	w.Header().Set("Content-Type", "application/json")

	var rateLimitErr *RateLimitError
	if errors.As(err, &rateLimitErr) && rateLimitErr.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(rateLimitErr.RetryAfter))
	}

	w.WriteHeader(httpErr.Status)
	_ = json.NewEncoder(w).Encode(httpErr)
}
