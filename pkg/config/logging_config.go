package config

import "github.com/DeBrosOfficial/pubsub-relay/pkg/logging"

// LoggingConfig selects the process logger.
type LoggingConfig struct {
	Level      string `yaml:"level"`       // debug, info, warn, error
	Format     string `yaml:"format"`      // console, json
	OutputFile string `yaml:"output_file"` // Empty for stdout
}

// Options converts the section into logger options.
func (c LoggingConfig) Options() logging.Options {
	return logging.Options{
		Level:      c.Level,
		Format:     c.Format,
		OutputFile: c.OutputFile,
	}
}
