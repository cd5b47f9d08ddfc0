// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package console is the operator command loop: lines typed on the
// terminal are forwarded verbatim to the device, and "exit" or "quit"
// ends the session.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// ErrExitRequested is returned by Run when the operator typed exit or
// quit.
var ErrExitRequested = errors.New("operator requested exit")

// Sender delivers one command line to the device. Implementations
// append the line terminator.
type Sender interface {
	Send(command string) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(command string) error

// Send calls f.
func (f SenderFunc) Send(command string) error { return f(command) }

// Config holds the parameters for Run.
type Config struct {
	Input  io.Reader
	Sender Sender

	// Echo receives "[SEND] <command>" before each send. Nil disables
	// the echo.
	Echo io.Writer

	Logger *slog.Logger
}

// IsExit reports whether an input line is an exit command.
func IsExit(line string) bool {
	trimmed := strings.TrimSpace(line)
	return strings.EqualFold(trimmed, "exit") || strings.EqualFold(trimmed, "quit")
}

// Run reads operator lines until the input ends (nil), ctx is cancelled
// (nil), or an exit command arrives (ErrExitRequested). A failed send
// is reported and the loop continues.
//
// The read itself cannot be interrupted; on cancellation the reading
// goroutine is abandoned until its next line or EOF.
func Run(ctx context.Context, config Config) error {
	if config.Input == nil || config.Sender == nil {
		return errors.New("console: input and sender are required")
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	scanDone := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(config.Input)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				scanDone <- nil
				return
			}
		}
		scanDone <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-scanDone:
			if err != nil {
				return fmt.Errorf("console: reading input: %w", err)
			}
			return nil
		case command := <-lines:
			if IsExit(command) {
				logger.Info("operator requested exit")
				return ErrExitRequested
			}
			if config.Echo != nil {
				fmt.Fprintf(config.Echo, "[SEND] %s\n", command)
			}
			if err := config.Sender.Send(command); err != nil {
				logger.Error("failed to write to device", "command", command, "error", err)
			}
		}
	}
}
