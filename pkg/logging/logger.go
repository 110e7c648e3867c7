// Package logging provides the structured logger shared by the booking
// engine's binaries. Output is JSON on stdout so log shippers need no
// parsing configuration.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Logger wraps slog.Logger so packages depend on one local type.
type Logger struct {
	*slog.Logger
}

// New creates a JSON logger at the given level. Unknown or empty levels
// fall back to info.
func New(level string) *Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	return &Logger{Logger: slog.New(handler)}
}

// Default returns an info-level logger for callers without configuration.
func Default() *Logger {
	return New("info")
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
