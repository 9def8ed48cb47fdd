package ui

import "github.com/charmbracelet/lipgloss"

// ANSI256 colors matching the Ayu palette.
var (
	accentStyle  = lipgloss.NewStyle().Foreground(lipgloss.ANSIColor(74))  // blue
	commandStyle = lipgloss.NewStyle().Foreground(lipgloss.ANSIColor(250)) // light gray
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.ANSIColor(245)) // medium gray
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.ANSIColor(114)) // green
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.ANSIColor(221)) // yellow
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.ANSIColor(74))
)

var noColor bool

func render(style lipgloss.Style, s string) string {
	if noColor {
		return s
	}
	return style.Render(s)
}

// RenderAccent returns s in the accent (blue) color.
func RenderAccent(s string) string { return render(accentStyle, s) }

// RenderMuted returns s in the muted (gray) color.
func RenderMuted(s string) string { return render(mutedStyle, s) }

// RenderCommand returns s styled as a command name (light gray).
func RenderCommand(s string) string { return render(commandStyle, s) }

// RenderSuccess returns s in green.
func RenderSuccess(s string) string { return render(successStyle, s) }

// RenderWarn returns s in yellow.
func RenderWarn(s string) string { return render(warnStyle, s) }

// ForceNoColor disables color output globally.
func ForceNoColor() {
	noColor = true
}
