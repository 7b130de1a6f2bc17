package logging_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/cryptoedu/tutor/internal/platform/config"
	"github.com/cryptoedu/tutor/internal/platform/logging"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"loud", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := logging.ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestHandler_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(logging.Handler(&buf, config.LogConfig{Level: "info", Format: "json"}))

	logger.Debug("hidden")
	logger.Info("session started", "session_id", "s1")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if entry["msg"] != "session started" || entry["session_id"] != "s1" {
		t.Errorf("entry = %v", entry)
	}
}

func TestHandler_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(logging.Handler(&buf, config.LogConfig{Level: "debug", Format: "text"}))

	logger.Debug("quiz requested", "subtopic_id", "pow")

	out := buf.String()
	if !strings.Contains(out, "msg=\"quiz requested\"") || !strings.Contains(out, "subtopic_id=pow") {
		t.Errorf("text output = %q", out)
	}
}
