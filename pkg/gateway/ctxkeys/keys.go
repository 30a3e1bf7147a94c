package ctxkeys

// ContextKey is used for storing request-scoped identity and metadata in context
type ContextKey string

const (
	// CallerID stores the publisher identity injected by an upstream authenticator.
	// When absent, publishes are attributed to the relay's own peer id.
	CallerID ContextKey = "caller_id"
)
