// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package delivery

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/suraj-bhalerao/4G-FOTA-ACTIVITY/lib/manifest"
)

// DefaultCommandTimeout bounds one command run.
const DefaultCommandTimeout = 5 * time.Minute

// Runner executes a command and returns its standard output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// OSRunner runs commands with os/exec.
type OSRunner struct{}

// Run executes name with args. Standard error is attached to the
// returned error on failure.
func (OSRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	command := exec.CommandContext(ctx, name, args...)
	var stderr strings.Builder
	command.Stderr = &stderr
	output, err := command.Output()
	if err != nil && stderr.Len() > 0 {
		return output, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return output, err
}

// CommandSubmitter runs an external delivery tool. Each argument may
// contain the placeholders {device}, {firmware}, {version} and {path}.
// The last non-empty line of standard output is the job id; a tool
// that prints nothing gets a generated one.
type CommandSubmitter struct {
	Command []string
	Timeout time.Duration

	// Runner defaults to OSRunner.
	Runner Runner
}

// Submit runs the command for deviceID and firmware.
func (s *CommandSubmitter) Submit(ctx context.Context, deviceID string, firmware manifest.Firmware) (string, error) {
	if len(s.Command) == 0 {
		return "", fmt.Errorf("delivery: empty command")
	}
	replacer := strings.NewReplacer(
		"{device}", deviceID,
		"{firmware}", firmware.ID,
		"{version}", firmware.Version,
		"{path}", firmware.Path,
	)
	argv := make([]string, len(s.Command))
	for i, argument := range s.Command {
		argv[i] = replacer.Replace(argument)
	}

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	runner := s.Runner
	if runner == nil {
		runner = OSRunner{}
	}
	output, err := runner.Run(runCtx, argv[0], argv[1:]...)
	if err != nil {
		return "", fmt.Errorf("delivery: %s: %w", argv[0], err)
	}
	if jobID := lastLine(string(output)); jobID != "" {
		return jobID, nil
	}
	return uuid.NewString(), nil
}

func lastLine(output string) string {
	lines := strings.Split(output, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
