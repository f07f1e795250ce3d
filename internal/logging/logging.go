package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init initializes the global logger. verbose forces debug level; json
// switches from the console writer to JSON lines on stderr.
func Init(level string, verbose, json bool) error {
	zerolog.TimeFieldFormat = time.RFC3339

	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}
	if verbose && lvl > zerolog.DebugLevel {
		lvl = zerolog.DebugLevel
	}

	zerolog.SetGlobalLevel(lvl)

	var output io.Writer = os.Stderr
	if !json {
		output = zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "15:04:05",
			NoColor:    false,
		}
	}

	log.Logger = zerolog.New(output).With().Timestamp().Logger()
	return nil
}

// ParseLevel maps a config level name to a zerolog level. Empty means info.
func ParseLevel(level string) (zerolog.Level, error) {
	if strings.TrimSpace(level) == "" {
		return zerolog.InfoLevel, nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return lvl, nil
}

// NewLogger creates a new logger with optional writers
func NewLogger(writers ...io.Writer) zerolog.Logger {
	if len(writers) == 0 {
		return log.Logger
	}

	if len(writers) == 1 {
		return zerolog.New(writers[0]).With().Timestamp().Logger()
	}

	multi := zerolog.MultiLevelWriter(writers...)
	return zerolog.New(multi).With().Timestamp().Logger()
}

// WithComponent creates a logger with a component field
func WithComponent(component string) zerolog.Logger {
	return log.Logger.With().Str("component", component).Logger()
}
