package errors

// Error codes for categorizing relay failures.
// They drive the HTTP status mapping at the gateway boundary.
const (
	// CodeOK indicates success (not an error).
	CodeOK = "OK"

	// CodeCancelled indicates the caller went away before the operation ran.
	CodeCancelled = "CANCELLED"

	// CodeInvalidConfig indicates malformed or non-positive join limits,
	// or an otherwise invalid request argument.
	CodeInvalidConfig = "INVALID_CONFIG"

	// CodeNotFound indicates no live subscription exists for a topic.
	CodeNotFound = "NOT_FOUND"

	// CodePayloadTooLarge indicates a message exceeded the topic's max message size.
	CodePayloadTooLarge = "PAYLOAD_TOO_LARGE"

	// CodeRejected indicates the spam filter vetoed a publish.
	CodeRejected = "REJECTED"

	// CodeRateLimit indicates a sender or client exceeded its rate.
	CodeRateLimit = "RATE_LIMIT_EXCEEDED"

	// CodeConflict is reserved for reconfigurations the relay refuses.
	CodeConflict = "CONFLICT"

	// CodeServiceUnavailable indicates the delivery network is unavailable.
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"

	// CodeInternal indicates internal errors.
	CodeInternal = "INTERNAL"
)

// ErrorCategory represents a high-level error category.
type ErrorCategory string

const (
	// CategoryClient indicates a client-side error (4xx).
	CategoryClient ErrorCategory = "CLIENT_ERROR"

	// CategoryPolicy indicates a spam or rate policy veto.
	CategoryPolicy ErrorCategory = "POLICY_ERROR"

	// CategoryServer indicates a server-side error (5xx).
	CategoryServer ErrorCategory = "SERVER_ERROR"
)

// GetCategory returns the category for an error code.
func GetCategory(code string) ErrorCategory {
	switch code {
	case CodeInvalidConfig, CodeNotFound, CodePayloadTooLarge,
		CodeConflict, CodeCancelled:
		return CategoryClient

	case CodeRejected, CodeRateLimit:
		return CategoryPolicy

	default:
		return CategoryServer
	}
}

// IsClientError returns true if the error is a client error (4xx).
func IsClientError(code string) bool {
	return GetCategory(code) == CategoryClient
}

// IsServerError returns true if the error is a server error (5xx).
func IsServerError(code string) bool {
	return GetCategory(code) == CategoryServer
}
