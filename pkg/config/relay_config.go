package config

import "time"

// RelayConfig contains the broker core settings.
type RelayConfig struct {
	Limits              LimitsConfig  `yaml:"limits"`
	Defaults            QueueDefaults `yaml:"defaults"`
	DefaultReadMessages int           `yaml:"default_read_messages"` // Used when a read omits max_messages
	SweepInterval       time.Duration `yaml:"sweep_interval"`        // Period of the expiry sweeper
	Shards              int           `yaml:"shards"`                // Topic registry shard count
}

// LimitsConfig holds the operator ceilings applied to every join request.
type LimitsConfig struct {
	MaxQueueLength       int      `yaml:"max_queue_length"`
	AllowedQueuePolicies []string `yaml:"allowed_queue_policies"` // drop-old, drop-new
	MaxTimeout           int      `yaml:"max_timeout"`            // Seconds
	MaxMessageSize       int      `yaml:"max_message_size"`       // Bytes
}

// QueueDefaults fills join request fields the caller left out.
type QueueDefaults struct {
	QueueLength    int    `yaml:"queue_length"`
	QueuePolicy    string `yaml:"queue_policy"`
	Timeout        int    `yaml:"timeout"` // Seconds
	MaxMessageSize int    `yaml:"max_message_size"`
}
