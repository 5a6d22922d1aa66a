// Package logging configures the structured logger used across the engine.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Options configures the logger.
type Options struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string
	// Output is the writer for log output (default: os.Stderr).
	Output io.Writer
	// Prefix is the component name prefix.
	Prefix string
}

func parseLevel(level string) log.Level {
	switch strings.ToLower(level) {
	case "debug":
		return log.DebugLevel
	case "info":
		return log.InfoLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// New creates a logger with the given options.
func New(opts Options) *log.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	return log.NewWithOptions(out, log.Options{
		Level:           parseLevel(opts.Level),
		Prefix:          opts.Prefix,
		TimeFormat:      time.RFC3339,
		ReportTimestamp: true,
	})
}

// Default creates a logger honoring the DASHAUDIT_LOG_LEVEL env override.
func Default() *log.Logger {
	level := "info"
	if v := os.Getenv("DASHAUDIT_LOG_LEVEL"); v != "" {
		level = v
	}
	return New(Options{Level: level})
}
