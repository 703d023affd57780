// =============================================================================
// hdon2xlsx - Logging
// =============================================================================
//
// Structured logging on zerolog. Setup configures the global logger once at
// startup; packages obtain child loggers with WithComponent so every line
// carries the component that wrote it:
//
//   2025-10-29T10:00:00+07:00 INF converted component=converter name=a.xml rows=3
//
// The engine never logs. The converter, server and commands do.
//
// =============================================================================

package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string `yaml:"level"`       // trace, debug, info, warn, error
	Format     string `yaml:"format"`      // console, json
	TimeFormat string `yaml:"time_format"` // Go layout, default RFC3339
	Output     string `yaml:"output"`      // stdout, stderr, or a file path
}

// DefaultConfig returns the logging configuration used when none is given.
func DefaultConfig() LogConfig {
	return LogConfig{
		Level:      "info",
		Format:     "console",
		TimeFormat: time.RFC3339,
		Output:     "stderr",
	}
}

var (
	mu   sync.Mutex
	file *os.File
)

// Setup initializes the global logger. A log file opened by a previous
// call is closed.
func Setup(config LogConfig) error {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(config.Level)))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", config.Level, err)
	}
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	mu.Lock()
	defer mu.Unlock()

	var output io.Writer
	switch config.Output {
	case "", "stderr":
		output = os.Stderr
	case "stdout":
		output = os.Stdout
	default:
		f, err := os.OpenFile(config.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		closeFileLocked()
		file = f
		output = f
	}

	timeFormat := config.TimeFormat
	if timeFormat == "" {
		timeFormat = time.RFC3339
	}
	if strings.ToLower(config.Format) != "json" {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: timeFormat, NoColor: file != nil}
	}

	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = timeFormat
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
	return nil
}

// Close releases the log file, if any.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	return closeFileLocked()
}

func closeFileLocked() error {
	if file == nil {
		return nil
	}
	err := file.Close()
	file = nil
	return err
}

// WithComponent returns a logger tagged with a component field.
func WithComponent(component string) zerolog.Logger {
	return log.Logger.With().Str("component", component).Logger()
}

// New builds a stand-alone JSON logger writing to w, for tests and
// embedding.
func New(w io.Writer, component string) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Str("component", component).Logger()
}
