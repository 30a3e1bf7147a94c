package config

import "time"

// GatewayConfig contains the HTTP API settings.
type GatewayConfig struct {
	ListenAddr         string        `yaml:"listen_addr"`           // Address to listen on (e.g., ":8080")
	RateLimitPerMinute int           `yaml:"rate_limit_per_minute"` // Per-client request budget, 0 disables
	RateLimitBurst     int           `yaml:"rate_limit_burst"`
	RequestTimeout     time.Duration `yaml:"request_timeout"`
}
