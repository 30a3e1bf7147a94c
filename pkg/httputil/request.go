package httputil

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	relayerrors "github.com/DeBrosOfficial/pubsub-relay/pkg/errors"
)

// ErrBodyTooLarge is returned by ReadBody when the body exceeds maxBytes.
var ErrBodyTooLarge = errors.New("request body too large")

// ReadBody reads the entire request body up to maxBytes.
// A body longer than maxBytes yields ErrBodyTooLarge.
func ReadBody(r *http.Request, maxBytes int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, ErrBodyTooLarge
	}
	return data, nil
}

// DecodeBase64 decodes a base64-encoded string to bytes.
func DecodeBase64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}

// EncodeBase64 encodes bytes to a base64-encoded string.
func EncodeBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// QueryParam returns the value of a query parameter, or defaultValue if not present.
func QueryParam(r *http.Request, key, defaultValue string) string {
	if v := r.URL.Query().Get(key); v != "" {
		return v
	}
	return defaultValue
}

// QueryInt returns the integer value of a query parameter, or nil if absent.
// A present but malformed value is a validation error.
func QueryInt(r *http.Request, key string) (*int, error) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return nil, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return nil, relayerrors.NewValidationError(key, fmt.Sprintf("expected an integer, got %q", v), v)
	}
	return &i, nil
}

// QueryString returns a pointer to the query parameter value, or nil if absent.
func QueryString(r *http.Request, key string) *string {
	q := r.URL.Query()
	if !q.Has(key) {
		return nil
	}
	v := q.Get(key)
	return &v
}

// QueryBool returns the boolean value of a query parameter.
// Accepts "true", "1", "yes", "on" and their negations (case-insensitive).
// An absent parameter yields defaultValue; anything else is a validation error.
func QueryBool(r *http.Request, key string, defaultValue bool) (bool, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return defaultValue, nil
	}
	switch strings.ToLower(v) {
	case "true", "1", "yes", "on":
		return true, nil
	case "false", "0", "no", "off":
		return false, nil
	default:
		return false, relayerrors.NewValidationError(key, fmt.Sprintf("expected a boolean, got %q", v), v)
	}
}
