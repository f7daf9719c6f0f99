// Package logging builds the zerolog logger used by the command line tool
// and the preview service.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Format selects the log encoding.
type Format string

const (
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
)

// Config holds logger configuration
type Config struct {
	Level  string
	Format Format
	// Out defaults to stderr
	Out io.Writer
}

// New creates a logger writing to cfg.Out.
func New(cfg Config) (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		l, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		level = l
	}

	out := cfg.Out
	if out == nil {
		out = os.Stderr
	}
	switch cfg.Format {
	case FormatConsole, "":
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	case FormatJSON:
	default:
		return zerolog.Nop(), fmt.Errorf("invalid log format %q", cfg.Format)
	}

	return zerolog.New(out).Level(level).With().
		Timestamp().
		Str("app", "pagedpreview").
		Logger(), nil
}
