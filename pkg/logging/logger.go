// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	// Set global log level
	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	// Configure output
	var output io.Writer = cfg.Output
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: cfg.Output}
	}

	// Create logger with timestamp
	logger := zerolog.New(output).With().Timestamp().Logger()

	// Set as global logger
	log.Logger = logger

	return logger
}

// parseLevel converts LogLevel to zerolog.Level.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Form payload construction (page, date bounds)
//   - Per-record normalization decisions
//   - Store pipeline batches
//
// Info: Normal operation events
//   - Page fetched (page, rows, accumulated)
//   - Run summary (records, pages, duration)
//   - CSV written (path, rows)
//
// Warn: Warning conditions that don't prevent operation
//   - Malformed issued date (record kept, field dropped)
//   - Page 1 reported a total but delivered no rows
//   - Store write skipped (redis disabled or unreachable)
//
// Error: Error conditions requiring attention
//   - Page fetch failure ending a run (partial results kept)
//   - Response body decode failure
//   - CSV or redis sink failure
//
// Context Fields:
//   - run_id: Fetch session UUID
//   - page: 1-based page index
//   - status_code: HTTP status code
//   - duration: Request duration
//   - error_class: Error classification (client, server, decode, network)
//   - total: Source-reported record total
//   - accumulated: Normalized records collected so far
//   - permit_number: Permit identifier on record-level diagnostics
