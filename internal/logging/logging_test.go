package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"", slog.LevelInfo},
		{"loud", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNew_PlainTextForNonTerminal(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "info")

	l.Info("hand raised", "meeting_id", "m1")
	l.Debug("hidden")

	out := buf.String()
	if !strings.Contains(out, "level=INFO") || !strings.Contains(out, "meeting_id=m1") {
		t.Errorf("unexpected output %q", out)
	}
	if strings.Contains(out, "hidden") {
		t.Errorf("debug line leaked at info level: %q", out)
	}
}

func TestNew_Level(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "error")

	l.Warn("quiet")
	l.Error("loud")

	out := buf.String()
	if strings.Contains(out, "quiet") || !strings.Contains(out, "loud") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestPrettyHandler(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(newPrettyHandler(&buf, slog.LevelDebug))

	l.Debug("store error", "op", "raise")

	out := buf.String()
	if !strings.Contains(out, "store error") || !strings.Contains(out, "op=raise") {
		t.Errorf("unexpected output %q", out)
	}
}
