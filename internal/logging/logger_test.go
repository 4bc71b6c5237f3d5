package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hanamilabs/openclaw-todo-bridge/go-bridge/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "WARN", want: slog.LevelWarn},
		{in: " error ", want: slog.LevelError},
		{in: "", want: slog.LevelInfo},
		{in: "verbose", want: slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewWritesRotatingFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "bridge.log")
	logger, err := New(config.Config{LogFilePath: logPath, LogLevel: "info", LogMaxSizeMB: 1, LogMaxBackups: 1, LogMaxAgeDays: 1})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	logger.Info("hello file")

	raw, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(raw), "hello file") {
		t.Fatalf("expected log line in file, got %q", string(raw))
	}
}

func TestNewConsoleHonoursLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewConsole(&buf, "error")
	logger.Info("hidden")
	logger.Error("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Fatalf("unexpected console output %q", out)
	}
}
