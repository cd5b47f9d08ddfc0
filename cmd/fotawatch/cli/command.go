// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"
)

// Command is one node of the command tree.
type Command struct {
	// Name is what the user types, e.g. "rollout".
	Name string

	// Summary is the one-line description in the parent's listing.
	Summary string

	// Description is the long help text.
	Description string

	// Usage overrides the synthesized usage line.
	Usage string

	Examples []Example

	// Flags builds this command's flag set. Called on every Execute and
	// PrintHelp, so it must bind to variables captured by the closure.
	Flags func() *pflag.FlagSet

	Subcommands []*Command

	// Run receives the positional args left after flag parsing. When
	// both Run and Subcommands are set, Run handles args that name no
	// subcommand.
	Run func(ctx context.Context, args []string, logger *slog.Logger) error

	// Help receives help output. Inherited from the parent; defaults to
	// stderr.
	Help io.Writer

	// Logger is passed to Run. Inherited from the parent; defaults to
	// NewCommandLogger at info level.
	Logger *slog.Logger

	parent *Command
}

// Example is one entry in the Examples help section.
type Example struct {
	Description string
	Command     string
}

// Execute dispatches args through the tree.
func (c *Command) Execute(ctx context.Context, args []string) error {
	if len(args) > 0 && isHelpFlag(args[0]) {
		c.PrintHelp(c.helpWriter())
		return nil
	}

	if len(c.Subcommands) > 0 && len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		name := args[0]
		for _, sub := range c.Subcommands {
			if sub.Name == name {
				sub.parent = c
				return sub.Execute(ctx, args[1:])
			}
		}
		if c.Run == nil {
			if suggestion := suggestCommand(name, c.Subcommands); suggestion != "" {
				return Validation("unknown command %q (did you mean %q?)", name, suggestion).
					WithHint(fmt.Sprintf("Run '%s --help' for usage.", c.fullName()))
			}
			return Validation("unknown command %q", name).
				WithHint(fmt.Sprintf("Run '%s --help' for usage.", c.fullName()))
		}
	}

	if len(c.Subcommands) > 0 && c.Run == nil {
		c.PrintHelp(c.helpWriter())
		if len(args) == 0 {
			return Validation("subcommand required")
		}
		return Validation("subcommand required (got flag %q)", args[0])
	}

	if c.Flags != nil {
		flagSet := c.Flags()
		flagSet.SetOutput(io.Discard)
		if err := flagSet.Parse(args); err != nil {
			message := err.Error()
			hint := fmt.Sprintf("Run '%s --help' for usage.", c.fullName())
			if strings.Contains(message, "unknown flag") || strings.Contains(message, "unknown shorthand") {
				if suggestion := suggestFlag(args, c.Flags()); suggestion != "" {
					return Validation("%s (did you mean %s?)", message, suggestion).WithHint(hint)
				}
			}
			return Validation("%s", message).WithHint(hint)
		}
		args = flagSet.Args()
	}

	if c.Run == nil {
		c.PrintHelp(c.helpWriter())
		return fmt.Errorf("no action defined for %q", c.fullName())
	}
	return c.Run(ctx, args, c.logger())
}

// PrintHelp writes the help text for c to w.
func (c *Command) PrintHelp(w io.Writer) {
	name := c.fullName()

	switch {
	case c.Description != "":
		fmt.Fprintf(w, "%s\n\n", c.Description)
	case c.Summary != "":
		fmt.Fprintf(w, "%s\n\n", c.Summary)
	}

	switch {
	case c.Usage != "":
		fmt.Fprintf(w, "Usage:\n  %s\n", c.Usage)
	case len(c.Subcommands) > 0:
		fmt.Fprintf(w, "Usage:\n  %s <command> [flags]\n", name)
	default:
		fmt.Fprintf(w, "Usage:\n  %s [flags]\n", name)
	}

	if len(c.Subcommands) > 0 {
		fmt.Fprintf(w, "\nCommands:\n")
		table := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
		for _, sub := range c.Subcommands {
			fmt.Fprintf(table, "  %s\t%s\n", sub.Name, sub.Summary)
		}
		table.Flush()
	}

	if c.Flags != nil {
		if usage := c.Flags().FlagUsages(); usage != "" {
			fmt.Fprintf(w, "\nFlags:\n%s", usage)
		}
	}

	if len(c.Examples) > 0 {
		fmt.Fprintf(w, "\nExamples:\n")
		for _, example := range c.Examples {
			if example.Description != "" {
				fmt.Fprintf(w, "  # %s\n", example.Description)
			}
			fmt.Fprintf(w, "  %s\n", example.Command)
			if example.Description != "" {
				fmt.Fprintln(w)
			}
		}
	}

	if len(c.Subcommands) > 0 {
		fmt.Fprintf(w, "\nRun '%s <command> --help' for more information on a command.\n", name)
	}
}

func (c *Command) fullName() string {
	if c.parent == nil {
		return c.Name
	}
	return c.parent.fullName() + " " + c.Name
}

func (c *Command) helpWriter() io.Writer {
	for node := c; node != nil; node = node.parent {
		if node.Help != nil {
			return node.Help
		}
	}
	return os.Stderr
}

func (c *Command) logger() *slog.Logger {
	for node := c; node != nil; node = node.parent {
		if node.Logger != nil {
			return node.Logger
		}
	}
	return NewCommandLogger(slog.LevelInfo)
}

func isHelpFlag(arg string) bool {
	return arg == "-h" || arg == "--help" || arg == "help"
}
