package validate

import (
	"fmt"
	"time"
)

// GatewayConfig represents the HTTP gateway configuration for validation purposes.
type GatewayConfig struct {
	ListenAddr         string
	RateLimitPerMinute int
	RateLimitBurst     int
	RequestTimeout     time.Duration
}

// ValidateGateway performs validation of the gateway configuration.
func ValidateGateway(gc GatewayConfig) []error {
	var errs []error

	if err := ValidateListenAddr(gc.ListenAddr); err != nil {
		errs = append(errs, ValidationError{
			Path:    "gateway.listen_addr",
			Message: err.Error(),
			Hint:    "e.g. :8080 or 127.0.0.1:8080",
		})
	}
	if gc.RateLimitPerMinute < 0 {
		errs = append(errs, ValidationError{
			Path:    "gateway.rate_limit_per_minute",
			Message: fmt.Sprintf("must be >= 0; got %d", gc.RateLimitPerMinute),
			Hint:    "use 0 to disable rate limiting",
		})
	}
	if gc.RateLimitPerMinute > 0 && gc.RateLimitBurst <= 0 {
		errs = append(errs, ValidationError{
			Path:    "gateway.rate_limit_burst",
			Message: fmt.Sprintf("must be > 0 when rate limiting is enabled; got %d", gc.RateLimitBurst),
		})
	}
	if gc.RequestTimeout <= 0 {
		errs = append(errs, ValidationError{
			Path:    "gateway.request_timeout",
			Message: fmt.Sprintf("must be > 0; got %v", gc.RequestTimeout),
		})
	}

	return errs
}
