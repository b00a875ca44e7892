// Package logger builds the process-wide structured logger.
package logger

import (
	"log/slog"
	"os"
)

// New returns a JSON slog logger writing to stdout. Level defaults to info;
// MOSOLO_LOG_DEBUG=true lowers it to debug.
func New() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("MOSOLO_LOG_DEBUG") == "true" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
