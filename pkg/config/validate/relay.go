package validate

import (
	"fmt"
	"time"
)

var queuePolicies = []string{"drop-old", "drop-new"}

// RelayConfig represents the broker core configuration for validation purposes.
type RelayConfig struct {
	MaxQueueLength       int
	AllowedQueuePolicies []string
	MaxTimeout           int
	MaxMessageSize       int
	DefaultQueueLength   int
	DefaultQueuePolicy   string
	DefaultTimeout       int
	DefaultMessageSize   int
	DefaultReadMessages  int
	SweepInterval        time.Duration
	Shards               int
}

// ValidateRelay performs validation of the relay limits and defaults.
func ValidateRelay(rc RelayConfig) []error {
	var errs []error

	positive := []struct {
		path  string
		value int
	}{
		{"relay.limits.max_queue_length", rc.MaxQueueLength},
		{"relay.limits.max_timeout", rc.MaxTimeout},
		{"relay.limits.max_message_size", rc.MaxMessageSize},
		{"relay.defaults.queue_length", rc.DefaultQueueLength},
		{"relay.defaults.timeout", rc.DefaultTimeout},
		{"relay.defaults.max_message_size", rc.DefaultMessageSize},
		{"relay.default_read_messages", rc.DefaultReadMessages},
		{"relay.shards", rc.Shards},
	}
	for _, p := range positive {
		if p.value <= 0 {
			errs = append(errs, ValidationError{
				Path:    p.path,
				Message: fmt.Sprintf("must be > 0; got %d", p.value),
			})
		}
	}

	if len(rc.AllowedQueuePolicies) == 0 {
		errs = append(errs, ValidationError{
			Path:    "relay.limits.allowed_queue_policies",
			Message: "must not be empty",
		})
	}
	for i, p := range rc.AllowedQueuePolicies {
		if err := oneOf(fmt.Sprintf("relay.limits.allowed_queue_policies[%d]", i), p, queuePolicies...); err != nil {
			errs = append(errs, err)
		}
	}
	if err := oneOf("relay.defaults.queue_policy", rc.DefaultQueuePolicy, queuePolicies...); err != nil {
		errs = append(errs, err)
	}

	if rc.SweepInterval <= 0 {
		errs = append(errs, ValidationError{
			Path:    "relay.sweep_interval",
			Message: fmt.Sprintf("must be > 0; got %v", rc.SweepInterval),
		})
	}

	return errs
}
