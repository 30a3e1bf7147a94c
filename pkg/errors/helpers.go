package errors

import "errors"

// IsNotFound checks if an error indicates a topic has no live subscription.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}

	var notFoundErr *NotFoundError
	return errors.As(err, &notFoundErr) || errors.Is(err, ErrNotFound)
}

// IsValidation checks if an error is an invalid config error.
func IsValidation(err error) bool {
	if err == nil {
		return false
	}

	var validationErr *ValidationError
	return errors.As(err, &validationErr) || errors.Is(err, ErrInvalidConfig)
}

// IsPayloadTooLarge checks if an error indicates an oversized message.
func IsPayloadTooLarge(err error) bool {
	if err == nil {
		return false
	}

	var tooLargeErr *PayloadTooLargeError
	return errors.As(err, &tooLargeErr) || errors.Is(err, ErrPayloadTooLarge)
}

// IsRejected checks if an error is a spam filter veto.
func IsRejected(err error) bool {
	if err == nil {
		return false
	}

	var rejectedErr *RejectedError
	return errors.As(err, &rejectedErr) || errors.Is(err, ErrRejected)
}

// IsConflict checks if an error indicates a refused reconfiguration.
func IsConflict(err error) bool {
	if err == nil {
		return false
	}

	var conflictErr *ConflictError
	return errors.As(err, &conflictErr) || errors.Is(err, ErrConflict)
}

// IsRateLimit checks if an error indicates rate limiting.
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}

	var rateLimitErr *RateLimitError
	return errors.As(err, &rateLimitErr) || errors.Is(err, ErrTooManyRequests)
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) string {
	if err == nil {
		return CodeOK
	}

	var customErr Error
	if errors.As(err, &customErr) {
		return customErr.Code()
	}

	switch {
	case IsNotFound(err):
		return CodeNotFound
	case IsValidation(err):
		return CodeInvalidConfig
	case IsPayloadTooLarge(err):
		return CodePayloadTooLarge
	case IsRejected(err):
		return CodeRejected
	case IsRateLimit(err):
		return CodeRateLimit
	case IsConflict(err):
		return CodeConflict
	default:
		return CodeInternal
	}
}

// GetErrorMessage extracts a human-readable message from an error.
func GetErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	var customErr Error
	if errors.As(err, &customErr) {
		return customErr.Message()
	}

	return err.Error()
}
