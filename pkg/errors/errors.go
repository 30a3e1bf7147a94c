package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// Common sentinel errors for quick checks
var (
	// ErrNotFound is returned when a topic has no live subscription.
	ErrNotFound = errors.New("not found")

	// ErrInvalidConfig is returned when request limits are invalid.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrPayloadTooLarge is returned when a message exceeds the size limit.
	ErrPayloadTooLarge = errors.New("payload too large")

	// ErrRejected is returned when a publish is vetoed by the filter.
	ErrRejected = errors.New("rejected")

	// ErrTooManyRequests is returned when rate limit is exceeded.
	ErrTooManyRequests = errors.New("too many requests")

	// ErrConflict is returned when a reconfiguration is refused.
	ErrConflict = errors.New("conflict")
)

// Error is the base interface for all custom errors in the relay.
type Error interface {
	error
	// Code returns the error code
	Code() string
	// Message returns the human-readable error message
	Message() string
	// Unwrap returns the underlying cause
	Unwrap() error
}

// BaseError provides a foundation for all typed errors.
type BaseError struct {
	code    string
	message string
	cause   error
	stack   []uintptr
}

// Error implements the error interface.
func (e *BaseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Code returns the error code.
func (e *BaseError) Code() string {
	return e.code
}

// Message returns the error message.
func (e *BaseError) Message() string {
	return e.message
}

// Unwrap returns the underlying cause.
func (e *BaseError) Unwrap() error {
	return e.cause
}

// Stack returns the captured stack trace.
func (e *BaseError) Stack() []uintptr {
	return e.stack
}

func captureStack(skip int) []uintptr {
	const maxDepth = 32
	stack := make([]uintptr, maxDepth)
	n := runtime.Callers(skip+2, stack)
	return stack[:n]
}

// StackTrace returns a formatted stack trace string.
func (e *BaseError) StackTrace() string {
	if len(e.stack) == 0 {
		return ""
	}

	var buf strings.Builder
	frames := runtime.CallersFrames(e.stack)
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "runtime/") {
			fmt.Fprintf(&buf, "%s\n\t%s:%d\n", frame.Function, frame.File, frame.Line)
		}
		if !more {
			break
		}
	}
	return buf.String()
}

// ValidationError represents an invalid join config or request argument.
type ValidationError struct {
	*BaseError
	Field string
	Value interface{}
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		BaseError: &BaseError{
			code:    CodeInvalidConfig,
			message: message,
			stack:   captureStack(1),
		},
		Field: field,
		Value: value,
	}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid config: %s: %s", e.Field, e.message)
	}
	return fmt.Sprintf("invalid config: %s", e.message)
}

// Is lets errors.Is match the ErrInvalidConfig sentinel.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// NotFoundError represents a topic without a live subscription.
type NotFoundError struct {
	*BaseError
	Resource string
	ID       string
}

// NewNotFoundError creates a new not found error.
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{
		BaseError: &BaseError{
			code:    CodeNotFound,
			message: fmt.Sprintf("%s not found", resource),
			stack:   captureStack(1),
		},
		Resource: resource,
		ID:       id,
	}
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s '%s' not found", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// Is lets errors.Is match the ErrNotFound sentinel.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// PayloadTooLargeError is returned when a message exceeds the effective size limit.
type PayloadTooLargeError struct {
	*BaseError
	Size  int
	Limit int
}

// NewPayloadTooLargeError creates a new payload too large error.
func NewPayloadTooLargeError(size, limit int) *PayloadTooLargeError {
	return &PayloadTooLargeError{
		BaseError: &BaseError{
			code:    CodePayloadTooLarge,
			message: fmt.Sprintf("message of %d bytes exceeds limit of %d bytes", size, limit),
			stack:   captureStack(1),
		},
		Size:  size,
		Limit: limit,
	}
}

// Is lets errors.Is match the ErrPayloadTooLarge sentinel.
func (e *PayloadTooLargeError) Is(target error) bool {
	return target == ErrPayloadTooLarge
}

// RejectedError represents a publish vetoed by the spam filter.
type RejectedError struct {
	*BaseError
	Topic  string
	PeerID string
}

// NewRejectedError creates a new rejected error.
func NewRejectedError(topic, peerID string) *RejectedError {
	return &RejectedError{
		BaseError: &BaseError{
			code:    CodeRejected,
			message: fmt.Sprintf("messages from %s are filtered on topic %s", peerID, topic),
			stack:   captureStack(1),
		},
		Topic:  topic,
		PeerID: peerID,
	}
}

// Is lets errors.Is match the ErrRejected sentinel.
func (e *RejectedError) Is(target error) bool {
	return target == ErrRejected
}

// ConflictError represents a refused reconfiguration.
type ConflictError struct {
	*BaseError
	Resource string
	Field    string
	Value    string
}

// NewConflictError creates a new conflict error.
func NewConflictError(resource, field, value string) *ConflictError {
	message := fmt.Sprintf("%s conflict", resource)
	if field != "" {
		message = fmt.Sprintf("%s cannot change %s to '%s'", resource, field, value)
	}
	return &ConflictError{
		BaseError: &BaseError{
			code:    CodeConflict,
			message: message,
			stack:   captureStack(1),
		},
		Resource: resource,
		Field:    field,
		Value:    value,
	}
}

// InternalError represents an internal server error.
type InternalError struct {
	*BaseError
	Operation string
}

// NewInternalError creates a new internal error.
func NewInternalError(message string, cause error) *InternalError {
	if message == "" {
		message = "internal error"
	}
	return &InternalError{
		BaseError: &BaseError{
			code:    CodeInternal,
			message: message,
			cause:   cause,
			stack:   captureStack(1),
		},
	}
}

// WithOperation sets the operation context.
func (e *InternalError) WithOperation(op string) *InternalError {
	e.Operation = op
	return e
}

// RateLimitError represents a rate limiting error.
type RateLimitError struct {
	*BaseError
	Limit      int
	RetryAfter int // seconds
}

// NewRateLimitError creates a new rate limit error.
func NewRateLimitError(limit, retryAfter int) *RateLimitError {
	return &RateLimitError{
		BaseError: &BaseError{
			code:    CodeRateLimit,
			message: "rate limit exceeded",
			stack:   captureStack(1),
		},
		Limit:      limit,
		RetryAfter: retryAfter,
	}
}

// Is lets errors.Is match the ErrTooManyRequests sentinel.
func (e *RateLimitError) Is(target error) bool {
	return target == ErrTooManyRequests
}

// Wrap wraps an error with additional context.
// If the error is already one of our custom types, it preserves the code
// and adds the cause chain. Otherwise, it creates an InternalError.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}

	if e, ok := err.(Error); ok {
		return &BaseError{
			code:    e.Code(),
			message: message,
			cause:   err,
			stack:   captureStack(1),
		}
	}

	return &InternalError{
		BaseError: &BaseError{
			code:    CodeInternal,
			message: message,
			cause:   err,
			stack:   captureStack(1),
		},
	}
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, format string, args ...interface{}) error {
	return Wrap(err, fmt.Sprintf(format, args...))
}
