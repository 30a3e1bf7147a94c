package validate

import (
	"fmt"
	"time"
)

// FilterConfig represents the filter advisor configuration for validation purposes.
type FilterConfig struct {
	HintThreshold int
	HintTTL       time.Duration
	RatePerSecond float64
	Burst         int
	Backend       string
	OlricServers  []string
}

// ValidateFilter performs validation of the filter configuration.
func ValidateFilter(fc FilterConfig) []error {
	var errs []error

	if fc.HintThreshold <= 0 {
		errs = append(errs, ValidationError{
			Path:    "filter.hint_threshold",
			Message: fmt.Sprintf("must be > 0; got %d", fc.HintThreshold),
		})
	}
	if fc.HintTTL <= 0 {
		errs = append(errs, ValidationError{
			Path:    "filter.hint_ttl",
			Message: fmt.Sprintf("must be > 0; got %v", fc.HintTTL),
		})
	}
	if fc.RatePerSecond < 0 {
		errs = append(errs, ValidationError{
			Path:    "filter.rate_per_second",
			Message: fmt.Sprintf("must be >= 0; got %v", fc.RatePerSecond),
			Hint:    "use 0 to disable sender rate limiting",
		})
	}
	if fc.RatePerSecond > 0 && fc.Burst <= 0 {
		errs = append(errs, ValidationError{
			Path:    "filter.burst",
			Message: fmt.Sprintf("must be > 0 when rate limiting is enabled; got %d", fc.Burst),
		})
	}

	switch fc.Backend {
	case "memory":
	case "olric":
		if len(fc.OlricServers) == 0 {
			errs = append(errs, ValidationError{
				Path:    "filter.olric_servers",
				Message: "must not be empty when backend is olric",
			})
		}
		for i, addr := range fc.OlricServers {
			if err := ValidateHostPort(addr); err != nil {
				errs = append(errs, ValidationError{
					Path:    fmt.Sprintf("filter.olric_servers[%d]", i),
					Message: err.Error(),
				})
			}
		}
	default:
		errs = append(errs, ValidationError{
			Path:    "filter.backend",
			Message: fmt.Sprintf("invalid value %q", fc.Backend),
			Hint:    "allowed values: memory, olric",
		})
	}

	return errs
}
