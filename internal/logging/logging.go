// Package logging builds the process logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Supported output formats
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Config selects the log level and output format
type Config struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// SetDefaults sets sensible default values for unset configuration fields
func (c *Config) SetDefaults() {
	if c.Level == "" {
		c.Level = zerolog.InfoLevel.String()
	}
	if c.Format == "" {
		c.Format = FormatConsole
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if _, err := zerolog.ParseLevel(strings.ToLower(c.Level)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.Level, err)
	}
	switch c.Format {
	case FormatConsole, FormatJSON:
		return nil
	default:
		return fmt.Errorf("invalid log format %q (want %s or %s)", c.Format, FormatConsole, FormatJSON)
	}
}

// New creates a logger writing to w (stderr when nil).
func New(config Config, w io.Writer) (zerolog.Logger, error) {
	config.SetDefaults()
	if err := config.Validate(); err != nil {
		return zerolog.Nop(), err
	}
	if w == nil {
		w = os.Stderr
	}

	level, _ := zerolog.ParseLevel(strings.ToLower(config.Level))

	if config.Format == FormatConsole {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
}
