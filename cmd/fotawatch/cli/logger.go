// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"
)

// NewCommandLogger logs to stderr: text on a terminal, JSON otherwise.
// Pass a *slog.LevelVar to adjust the level after construction, once
// the configuration is known.
func NewCommandLogger(level slog.Leveler) *slog.Logger {
	return NewLogger(os.Stderr, level, IsTerminal(os.Stderr))
}

// NewLogger builds a logger on w. The text handler is meant for
// people; JSON for anything that parses the stream.
func NewLogger(w io.Writer, level slog.Leveler, text bool) *slog.Logger {
	options := &slog.HandlerOptions{Level: level}
	if text {
		return slog.New(slog.NewTextHandler(w, options))
	}
	return slog.New(slog.NewJSONHandler(w, options))
}

// IsTerminal reports whether file is attached to a terminal.
func IsTerminal(file *os.File) bool {
	return term.IsTerminal(int(file.Fd()))
}
