// Package obs builds the process-wide structured logger.
package obs

import (
	"log/slog"
	"os"
	"strings"
)

// New builds a leveled slog.Logger from COURSEASSIGN_LOG_LEVEL
// (debug, info, warn, error; default info).
func New() *slog.Logger {
	level := parseLevel(os.Getenv("COURSEASSIGN_LOG_LEVEL"))
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(h)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "", "info":
		return slog.LevelInfo
	default:
		return slog.LevelInfo
	}
}
