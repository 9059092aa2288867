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

// FromEnv builds a Config from REST_CLIENT_LOG_LEVEL and
// REST_CLIENT_LOG_PRETTY, falling back to defaults for unset variables.
func FromEnv() Config {
	cfg := DefaultConfig()
	if level := os.Getenv("REST_CLIENT_LOG_LEVEL"); level != "" {
		cfg.Level = LogLevel(level)
	}
	if pretty := os.Getenv("REST_CLIENT_LOG_PRETTY"); pretty == "true" || pretty == "1" {
		cfg.Pretty = true
	}
	return cfg
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Cache operations (hit/miss, key, TTL)
//   - Retry scheduling (attempt, backoff)
//   - Internal state changes
//
// Info: Normal operation events
//   - Requests that succeeded after a retry
//   - Circuit breaker state transitions back to closed
//   - Server startup/shutdown
//
// Warn: Warning conditions that don't prevent operation
//   - Rate limiter rejections
//   - Circuit breaker transitions to open or half-open
//   - Cache errors (fallback to direct request)
//   - Retry exhaustion
//
// Error: Error conditions requiring attention
//   - Transport failures
//   - Service unavailability
//   - Configuration errors
//
// Context Fields:
//   - endpoint: request path
//   - status: HTTP status code
//   - kind: error classification (connection, timeout, server, ...)
//   - attempt: retry attempt number
//   - backoff: delay before the next attempt
//   - cache_key: response cache key
//   - ttl: cache entry TTL
