package config

import "time"

const (
	FilterBackendMemory = "memory"
	FilterBackendOlric  = "olric"
)

// FilterConfig contains the filter advisor settings.
type FilterConfig struct {
	HintThreshold int           `yaml:"hint_threshold"`  // Hints needed before a sender is rejected
	HintTTL       time.Duration `yaml:"hint_ttl"`        // How long hints are remembered
	RatePerSecond float64       `yaml:"rate_per_second"` // Per-sender publish rate, 0 disables
	Burst         int           `yaml:"burst"`
	Backend       string        `yaml:"backend"`       // memory, olric
	OlricServers  []string      `yaml:"olric_servers"` // Required for the olric backend
	OlricTimeout  time.Duration `yaml:"olric_timeout"`
}
