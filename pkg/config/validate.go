package config

import (
	"fmt"

	"github.com/DeBrosOfficial/pubsub-relay/pkg/config/validate"
)

// ValidationError represents a single validation error with context.
type ValidationError = validate.ValidationError

// Validate performs comprehensive validation of the entire config.
// It aggregates all errors and returns them, allowing the caller to print all issues at once.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, validate.ValidateRelay(validate.RelayConfig{
		MaxQueueLength:       c.Relay.Limits.MaxQueueLength,
		AllowedQueuePolicies: c.Relay.Limits.AllowedQueuePolicies,
		MaxTimeout:           c.Relay.Limits.MaxTimeout,
		MaxMessageSize:       c.Relay.Limits.MaxMessageSize,
		DefaultQueueLength:   c.Relay.Defaults.QueueLength,
		DefaultQueuePolicy:   c.Relay.Defaults.QueuePolicy,
		DefaultTimeout:       c.Relay.Defaults.Timeout,
		DefaultMessageSize:   c.Relay.Defaults.MaxMessageSize,
		DefaultReadMessages:  c.Relay.DefaultReadMessages,
		SweepInterval:        c.Relay.SweepInterval,
		Shards:               c.Relay.Shards,
	})...)
	errs = append(errs, validate.ValidateFilter(validate.FilterConfig{
		HintThreshold: c.Filter.HintThreshold,
		HintTTL:       c.Filter.HintTTL,
		RatePerSecond: c.Filter.RatePerSecond,
		Burst:         c.Filter.Burst,
		Backend:       c.Filter.Backend,
		OlricServers:  c.Filter.OlricServers,
	})...)
	if c.Node.Enabled {
		errs = append(errs, validate.ValidateNode(validate.NodeConfig{
			ListenAddresses:   c.Node.ListenAddresses,
			BootstrapPeers:    c.Node.BootstrapPeers,
			DataDir:           c.Node.DataDir,
			Namespace:         c.Node.Namespace,
			DiscoveryInterval: c.Node.DiscoveryInterval,
		})...)
	}
	errs = append(errs, validate.ValidateGateway(validate.GatewayConfig{
		ListenAddr:         c.Gateway.ListenAddr,
		RateLimitPerMinute: c.Gateway.RateLimitPerMinute,
		RateLimitBurst:     c.Gateway.RateLimitBurst,
		RequestTimeout:     c.Gateway.RequestTimeout,
	})...)
	errs = append(errs, validate.ValidateLogging(validate.LoggingConfig{
		Level:      c.Logging.Level,
		Format:     c.Logging.Format,
		OutputFile: c.Logging.OutputFile,
	})...)
	errs = append(errs, c.validateCrossFields()...)

	return errs
}

func (c *Config) validateCrossFields() []error {
	var errs []error
	if c.Relay.Defaults.QueueLength > c.Relay.Limits.MaxQueueLength && c.Relay.Limits.MaxQueueLength > 0 {
		errs = append(errs, ValidationError{
			Path:    "relay.defaults.queue_length",
			Message: fmt.Sprintf("exceeds relay.limits.max_queue_length (%d)", c.Relay.Limits.MaxQueueLength),
		})
	}
	if c.Relay.Defaults.Timeout > c.Relay.Limits.MaxTimeout && c.Relay.Limits.MaxTimeout > 0 {
		errs = append(errs, ValidationError{
			Path:    "relay.defaults.timeout",
			Message: fmt.Sprintf("exceeds relay.limits.max_timeout (%d)", c.Relay.Limits.MaxTimeout),
		})
	}
	if c.Relay.Defaults.MaxMessageSize > c.Relay.Limits.MaxMessageSize && c.Relay.Limits.MaxMessageSize > 0 {
		errs = append(errs, ValidationError{
			Path:    "relay.defaults.max_message_size",
			Message: fmt.Sprintf("exceeds relay.limits.max_message_size (%d)", c.Relay.Limits.MaxMessageSize),
		})
	}
	allowed := false
	for _, p := range c.Relay.Limits.AllowedQueuePolicies {
		if p == c.Relay.Defaults.QueuePolicy {
			allowed = true
		}
	}
	if !allowed {
		errs = append(errs, ValidationError{
			Path:    "relay.defaults.queue_policy",
			Message: fmt.Sprintf("%q is not in relay.limits.allowed_queue_policies", c.Relay.Defaults.QueuePolicy),
		})
	}
	return errs
}
