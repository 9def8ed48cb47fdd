package main

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/alfredjeanlab/hands/internal/ui"
	"github.com/spf13/cobra"
)

// Patterns used to colorize Cobra's default help output.
var (
	// Section headers: unindented line ending with ":" (e.g. "Hands:", "Flags:").
	reGroupHeader = regexp.MustCompile(`(?m)^([A-Z][^\n]*:)\s*$`)

	// Command names: two-space indent, then a word, then two-or-more spaces
	// before the description.
	reCommand = regexp.MustCompile(`(?m)^(  )(\S+)(  )`)

	// Flag type annotations: e.g. "--server string", "--interval duration".
	reFlagType = regexp.MustCompile(`(--?\S+\s+)(string|int|duration|stringSlice)`)

	// Default values, e.g. (default "warn").
	reDefault = regexp.MustCompile(`\(default "[^"]*"\)`)
)

// colorizedHelpFunc returns a Cobra help function that post-processes the
// default help text with colors when the terminal supports it.
func colorizedHelpFunc() func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, args []string) {
		if !ui.ShouldUseColor() {
			_ = cmd.Usage()
			return
		}

		orig := cmd.OutOrStdout()
		var buf bytes.Buffer
		cmd.SetOut(&buf)
		_ = cmd.Usage()
		cmd.SetOut(orig)

		fmt.Fprint(orig, colorizeHelpOutput(buf.String()))
	}
}

// colorizeHelpOutput applies styling to Cobra's plain-text help.
func colorizeHelpOutput(s string) string {
	s = reGroupHeader.ReplaceAllStringFunc(s, func(match string) string {
		return ui.RenderAccent(strings.TrimSpace(match))
	})
	s = reCommand.ReplaceAllStringFunc(s, func(match string) string {
		parts := reCommand.FindStringSubmatch(match)
		if len(parts) == 4 {
			return parts[1] + ui.RenderCommand(parts[2]) + parts[3]
		}
		return match
	})
	s = reFlagType.ReplaceAllStringFunc(s, func(match string) string {
		parts := reFlagType.FindStringSubmatch(match)
		if len(parts) == 3 {
			return parts[1] + ui.RenderMuted(parts[2])
		}
		return match
	})
	return reDefault.ReplaceAllStringFunc(s, ui.RenderMuted)
}
