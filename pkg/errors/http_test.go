package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
	}{
		{"nil error", nil, http.StatusOK},
		{"invalid config", NewValidationError("timeout", "must be positive", -1), http.StatusBadRequest},
		{"not found", NewNotFoundError("topic", "foo"), http.StatusNotFound},
		{"payload too large", NewPayloadTooLargeError(10, 5), http.StatusRequestEntityTooLarge},
		{"rejected", NewRejectedError("foo", "peer"), http.StatusForbidden},
		{"rate limit", NewRateLimitError(10, 1), http.StatusTooManyRequests},
		{"conflict", NewConflictError("subscription", "", ""), http.StatusConflict},
		{"wrapped not found", fmt.Errorf("read: %w", NewNotFoundError("topic", "foo")), http.StatusNotFound},
		{"sentinel not found", ErrNotFound, http.StatusNotFound},
		{"cancelled", context.Canceled, 499},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusCode(tt.err); got != tt.expectedStatus {
				t.Errorf("StatusCode() = %d, want %d", got, tt.expectedStatus)
			}
		})
	}
}

func TestToHTTPError(t *testing.T) {
	t.Run("typed error keeps reason", func(t *testing.T) {
		httpErr := ToHTTPError(NewNotFoundError("topic", "foo"))
		if httpErr.Body.Reason != CodeNotFound {
			t.Errorf("Expected reason %q, got %q", CodeNotFound, httpErr.Body.Reason)
		}
		if httpErr.Body.Details != "topic 'foo' not found" {
			t.Errorf("Unexpected details %q", httpErr.Body.Details)
		}
	})

	t.Run("unexpected error hides details", func(t *testing.T) {
		httpErr := ToHTTPError(errors.New("db password wrong"))
		if httpErr.Body.Details != "internal error" {
			t.Errorf("Expected hidden details, got %q", httpErr.Body.Details)
		}
		if httpErr.Status != http.StatusInternalServerError {
			t.Errorf("Expected 500, got %d", httpErr.Status)
		}
	})
}

func TestWriteHTTPError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteHTTPError(w, NewRateLimitError(10, 3))

	if w.Code != http.StatusTooManyRequests {
		t.Errorf("Expected 429, got %d", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "3" {
		t.Errorf("Expected Retry-After 3, got %q", got)
	}

	var body struct {
		Error struct {
			Reason  string `json:"reason"`
			Details string `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Error.Reason != CodeRateLimit {
		t.Errorf("Expected reason %q, got %q", CodeRateLimit, body.Error.Reason)
	}
}
