package validate

import (
	"fmt"
	"path/filepath"
)

// LoggingConfig mirrors config.LoggingConfig.
type LoggingConfig struct {
	Level      string
	Format     string
	OutputFile string
}

// ValidateLogging checks the level and format names and that the log file,
// if any, can be created.
func ValidateLogging(log LoggingConfig) []error {
	var errs []error
	if err := oneOf("logging.level", log.Level, "debug", "info", "warn", "error"); err != nil {
		errs = append(errs, err)
	}
	if err := oneOf("logging.format", log.Format, "console", "json"); err != nil {
		errs = append(errs, err)
	}

	if log.OutputFile == "" {
		return errs
	}
	if dir := filepath.Dir(log.OutputFile); dir != "." {
		if err := ValidateDirWritable(dir); err != nil {
			errs = append(errs, ValidationError{
				Path:    "logging.output_file",
				Message: fmt.Sprintf("parent directory not writable: %v", err),
				Hint:    "create the directory or log to stdout by leaving output_file empty",
			})
		}
	}
	return errs
}
