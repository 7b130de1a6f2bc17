// Package logging configures the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/cryptoedu/tutor/internal/platform/config"
)

// New builds a logger for cfg writing to stdout and installs it as the
// slog default.
func New(cfg config.LogConfig) *slog.Logger {
	logger := slog.New(Handler(os.Stdout, cfg))
	slog.SetDefault(logger)
	return logger
}

// Handler returns a JSON or text handler at the configured level.
// Unknown levels log at info.
func Handler(w io.Writer, cfg config.LogConfig) slog.Handler {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

// ParseLevel maps "debug", "info", "warn" and "error" to slog levels.
func ParseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return level
}
