package config

import "time"

// Config represents the main configuration for a relay process.
type Config struct {
	Relay   RelayConfig   `yaml:"relay"`
	Filter  FilterConfig  `yaml:"filter"`
	Node    NodeConfig    `yaml:"node"`
	Gateway GatewayConfig `yaml:"gateway"`
	Logging LoggingConfig `yaml:"logging"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Relay: RelayConfig{
			Limits: LimitsConfig{
				MaxQueueLength:       1000,
				AllowedQueuePolicies: []string{"drop-old", "drop-new"},
				MaxTimeout:           86400,
				MaxMessageSize:       1 << 20,
			},
			Defaults: QueueDefaults{
				QueueLength:    100,
				QueuePolicy:    "drop-old",
				Timeout:        3600,
				MaxMessageSize: 64 << 10,
			},
			DefaultReadMessages: 100,
			SweepInterval:       time.Second,
			Shards:              32,
		},
		Filter: FilterConfig{
			HintThreshold: 3,
			HintTTL:       time.Hour,
			RatePerSecond: 10,
			Burst:         20,
			Backend:       FilterBackendMemory,
			OlricTimeout:  10 * time.Second,
		},
		Node: NodeConfig{
			Enabled: true,
			ListenAddresses: []string{
				"/ip4/0.0.0.0/tcp/4001",
			},
			DataDir:           "~/.relay/data",
			Namespace:         "relay",
			DiscoveryInterval: 30 * time.Second,
		},
		Gateway: GatewayConfig{
			ListenAddr:         ":8080",
			RateLimitPerMinute: 600,
			RateLimitBurst:     100,
			RequestTimeout:     30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
