// Package logging builds the process-wide slog logger. Terminals get a
// colored charmbracelet/log handler; anything else gets plain slog text so
// log collectors can parse it.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"golang.org/x/term"
)

// ParseLevel maps debug, info, warn and error (any case) to a slog level.
// Anything else is info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// New returns a logger writing to w at the given level.
func New(w io.Writer, level string) *slog.Logger {
	lvl := ParseLevel(level)
	if isTerminal(w) {
		return slog.New(newPrettyHandler(w, lvl))
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// Setup installs New(w, level) as the slog default and returns it.
func Setup(w io.Writer, level string) *slog.Logger {
	l := New(w, level)
	slog.SetDefault(l)
	return l
}

func newPrettyHandler(w io.Writer, lvl slog.Level) *log.Logger {
	l := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Level:           log.Level(lvl),
	})
	l.SetStyles(styles())
	return l
}

func styles() *log.Styles {
	s := log.DefaultStyles()
	s.Levels[log.DebugLevel] = lipgloss.NewStyle().SetString("DEBUG").Foreground(lipgloss.Color("#7F6DFF"))
	s.Levels[log.InfoLevel] = lipgloss.NewStyle().SetString("INFO").Foreground(lipgloss.Color("#42E7FF"))
	s.Levels[log.WarnLevel] = lipgloss.NewStyle().SetString("WARN").Foreground(lipgloss.Color("#FFE763"))
	s.Levels[log.ErrorLevel] = lipgloss.NewStyle().SetString("ERROR").Foreground(lipgloss.Color("#FF4473"))
	return s
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
