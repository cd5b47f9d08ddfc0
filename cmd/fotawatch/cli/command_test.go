// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func quiet(root *Command) *Command {
	root.Help = &bytes.Buffer{}
	root.Logger = slog.New(slog.DiscardHandler)
	return root
}

func TestExecuteDispatchesToSubcommand(t *testing.T) {
	var called string
	root := quiet(&Command{
		Name: "fotawatch",
		Subcommands: []*Command{
			{Name: "monitor", Run: func(context.Context, []string, *slog.Logger) error { called = "monitor"; return nil }},
			{Name: "rollout", Run: func(context.Context, []string, *slog.Logger) error { called = "rollout"; return nil }},
		},
	})

	if err := root.Execute(context.Background(), []string{"rollout"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if called != "rollout" {
		t.Errorf("dispatched to %q, want rollout", called)
	}
}

func TestExecuteNestedWithArgs(t *testing.T) {
	var received []string
	root := quiet(&Command{
		Name: "fotawatch",
		Subcommands: []*Command{{
			Name: "audit",
			Subcommands: []*Command{{
				Name: "list",
				Run: func(_ context.Context, args []string, _ *slog.Logger) error {
					received = args
					return nil
				},
			}},
		}},
	})

	if err := root.Execute(context.Background(), []string{"audit", "list", "DEV1"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if len(received) != 1 || received[0] != "DEV1" {
		t.Errorf("args = %v, want [DEV1]", received)
	}
}

func TestExecuteParsesFlags(t *testing.T) {
	var device string
	var baud int
	root := quiet(&Command{
		Name: "fotawatch",
		Subcommands: []*Command{{
			Name: "monitor",
			Flags: func() *pflag.FlagSet {
				flagSet := pflag.NewFlagSet("monitor", pflag.ContinueOnError)
				flagSet.StringVar(&device, "device", "", "serial device")
				flagSet.IntVar(&baud, "baud", 115200, "baud rate")
				return flagSet
			},
			Run: func(context.Context, []string, *slog.Logger) error { return nil },
		}},
	})

	if err := root.Execute(context.Background(), []string{"monitor", "--device", "/dev/ttyUSB0", "--baud=921600"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if device != "/dev/ttyUSB0" || baud != 921600 {
		t.Errorf("device=%q baud=%d", device, baud)
	}
}

func TestExecuteUnknownCommandSuggests(t *testing.T) {
	root := quiet(&Command{
		Name: "fotawatch",
		Subcommands: []*Command{
			{Name: "rollout", Run: func(context.Context, []string, *slog.Logger) error { return nil }},
		},
	})

	err := root.Execute(context.Background(), []string{"rolout"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), `did you mean "rollout"`) {
		t.Errorf("error missing suggestion: %v", err)
	}
	var categorized *Error
	if !errors.As(err, &categorized) || categorized.Category != CategoryValidation {
		t.Errorf("expected validation error, got %#v", err)
	}
}

func TestExecuteUnknownFlagSuggests(t *testing.T) {
	root := quiet(&Command{
		Name: "fotawatch",
		Subcommands: []*Command{{
			Name: "monitor",
			Flags: func() *pflag.FlagSet {
				flagSet := pflag.NewFlagSet("monitor", pflag.ContinueOnError)
				flagSet.String("device", "", "serial device")
				return flagSet
			},
			Run: func(context.Context, []string, *slog.Logger) error { return nil },
		}},
	})

	err := root.Execute(context.Background(), []string{"monitor", "--devcie", "x"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "did you mean --device?") {
		t.Errorf("error missing suggestion: %v", err)
	}
}

func TestExecuteSubcommandRequired(t *testing.T) {
	help := &bytes.Buffer{}
	root := &Command{
		Name: "fotawatch",
		Help: help,
		Subcommands: []*Command{
			{Name: "state", Summary: "Show tracked versions"},
		},
	}

	if err := root.Execute(context.Background(), nil); err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(help.String(), "Show tracked versions") {
		t.Errorf("help not printed:\n%s", help)
	}
}

func TestExecuteHelpFlag(t *testing.T) {
	help := &bytes.Buffer{}
	root := &Command{
		Name: "fotawatch",
		Help: help,
		Subcommands: []*Command{{
			Name:        "manifest",
			Description: "List firmware in a manifest.",
			Examples:    []Example{{Description: "Show digests", Command: "fotawatch manifest firmware.csv"}},
			Flags: func() *pflag.FlagSet {
				flagSet := pflag.NewFlagSet("manifest", pflag.ContinueOnError)
				flagSet.Bool("json", false, "output as JSON")
				return flagSet
			},
			Run: func(context.Context, []string, *slog.Logger) error {
				t.Error("Run called for --help")
				return nil
			},
		}},
	}

	if err := root.Execute(context.Background(), []string{"manifest", "--help"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	output := help.String()
	for _, want := range []string{"List firmware in a manifest.", "Usage:\n  fotawatch manifest [flags]", "--json", "# Show digests"} {
		if !strings.Contains(output, want) {
			t.Errorf("help missing %q:\n%s", want, output)
		}
	}
}

func TestErrorExitCodes(t *testing.T) {
	tests := []struct {
		err  interface{ ExitCode() int }
		code int
	}{
		{&ExitError{Code: 5}, 5},
		{Validation("bad"), 2},
		{NotFound("gone"), 3},
		{Transient("later"), 4},
		{Internal("oops"), 1},
	}
	for _, tt := range tests {
		if code := tt.err.ExitCode(); code != tt.code {
			t.Errorf("%v: ExitCode() = %d, want %d", tt.err, code, tt.code)
		}
	}
}

func TestErrorHint(t *testing.T) {
	err := NotFound("manifest %q missing", "fw.csv").WithHint("Pass --manifest.")
	if err.Error() != "manifest \"fw.csv\" missing\n\nPass --manifest." {
		t.Errorf("Error() = %q", err.Error())
	}
}
