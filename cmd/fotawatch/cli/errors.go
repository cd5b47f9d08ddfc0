// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import "fmt"

// Category classifies command errors for exit codes.
type Category string

const (
	// CategoryValidation is bad input: wrong arguments, unparseable
	// flags, an invalid config file.
	CategoryValidation Category = "validation"

	// CategoryNotFound is a missing resource: no manifest, no audit
	// database, no device state.
	CategoryNotFound Category = "not_found"

	// CategoryTransient is a failure that may clear on retry, such as a
	// device that is not attached yet.
	CategoryTransient Category = "transient"

	// CategoryInternal is everything else.
	CategoryInternal Category = "internal"
)

// Error is a categorized command error.
type Error struct {
	Category Category
	Err      error

	// Hint is printed after the message, separated by a blank line.
	Hint string
}

func (e *Error) Error() string {
	if e.Hint == "" {
		return e.Err.Error()
	}
	return e.Err.Error() + "\n\n" + e.Hint
}

func (e *Error) Unwrap() error { return e.Err }

// WithHint sets the hint and returns e.
func (e *Error) WithHint(hint string) *Error {
	e.Hint = hint
	return e
}

// ExitCode maps the category to a process exit code.
func (e *Error) ExitCode() int {
	switch e.Category {
	case CategoryValidation:
		return 2
	case CategoryNotFound:
		return 3
	case CategoryTransient:
		return 4
	default:
		return 1
	}
}

// Validation creates a bad-input error.
func Validation(format string, args ...any) *Error {
	return &Error{Category: CategoryValidation, Err: fmt.Errorf(format, args...)}
}

// NotFound creates a missing-resource error.
func NotFound(format string, args ...any) *Error {
	return &Error{Category: CategoryNotFound, Err: fmt.Errorf(format, args...)}
}

// Transient creates a retryable error.
func Transient(format string, args ...any) *Error {
	return &Error{Category: CategoryTransient, Err: fmt.Errorf(format, args...)}
}

// Internal creates an unexpected-failure error.
func Internal(format string, args ...any) *Error {
	return &Error{Category: CategoryInternal, Err: fmt.Errorf(format, args...)}
}

// ExitError ends the process with Code without printing anything more.
// Commands whose output already explains a non-zero result, such as a
// rollout that exhausted its firmware list, return it.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string { return fmt.Sprintf("exit code %d", e.Code) }

// ExitCode returns Code.
func (e *ExitError) ExitCode() int { return e.Code }

// Silent reports that the command already wrote its own output.
func (e *ExitError) Silent() bool { return true }
