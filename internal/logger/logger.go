// Package logger builds the process-wide structured logger.
package logger

import (
	"log/slog"
	"os"
	"strings"

	"github.com/anombyte93/TaskMasterWebViewer/internal/config"
)

// New creates a JSON slog logger at the configured level. Every record
// carries the service name and pid so viewer output stays filterable when
// interleaved with TaskMaster's own logs.
func New(cfg config.Logging) *slog.Logger {
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level(cfg.Level),
	})
	return slog.New(h).With(
		slog.String("service", cfg.Service),
		slog.Int("pid", os.Getpid()),
	)
}

// level parses a configured level string, defaulting to info on anything
// unrecognized rather than failing startup over a logging knob.
func level(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err == nil {
		return l
	}
	if strings.EqualFold(s, "warning") {
		return slog.LevelWarn
	}
	return slog.LevelInfo
}
