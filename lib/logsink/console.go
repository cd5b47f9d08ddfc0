// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logsink

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// consoleStyler colours the level column for terminal output.
type consoleStyler struct {
	styles map[string]lipgloss.Style
}

// newConsoleStyler returns a styler bound to w. With color false the
// renderer uses the Ascii profile and emits no escape sequences.
func newConsoleStyler(w io.Writer, color bool) *consoleStyler {
	var renderer *lipgloss.Renderer
	if color {
		renderer = lipgloss.NewRenderer(w)
	} else {
		renderer = lipgloss.NewRenderer(w, termenv.WithProfile(termenv.Ascii))
	}
	errorStyle := renderer.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	warnStyle := renderer.NewStyle().Foreground(lipgloss.Color("11"))
	infoStyle := renderer.NewStyle().Foreground(lipgloss.Color("10"))
	debugStyle := renderer.NewStyle().Faint(true)
	return &consoleStyler{
		styles: map[string]lipgloss.Style{
			"E":     errorStyle,
			"ERR":   errorStyle,
			"ERROR": errorStyle,
			"F":     errorStyle,
			"FATAL": errorStyle,
			"W":     warnStyle,
			"WRN":   warnStyle,
			"WARN":  warnStyle,
			"I":     infoStyle,
			"INF":   infoStyle,
			"INFO":  infoStyle,
			"D":     debugStyle,
			"DBG":   debugStyle,
			"DEBUG": debugStyle,
		},
	}
}

func (c *consoleStyler) format(line string) string {
	fields, ok := Parse(line)
	if !ok {
		return line
	}
	return render(fields, func(padded string) string {
		style, ok := c.styles[strings.TrimSpace(padded)]
		if !ok {
			return padded
		}
		return style.Render(padded)
	})
}
