package gateway

import "time"

// Config holds configuration for the gateway server
type Config struct {
	ListenAddr string
	NodePeerID string // Publisher identity for requests without a caller id

	// Per-client token bucket. RateLimitPerMinute <= 0 disables limiting.
	RateLimitPerMinute int
	RateLimitBurst     int

	// RequestTimeout bounds every request's context. Zero disables it.
	RequestTimeout time.Duration
}
