// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/pflag"

	"github.com/suraj-bhalerao/4G-FOTA-ACTIVITY/cmd/fotawatch/cli"
	"github.com/suraj-bhalerao/4G-FOTA-ACTIVITY/lib/clock"
	"github.com/suraj-bhalerao/4G-FOTA-ACTIVITY/lib/config"
	"github.com/suraj-bhalerao/4G-FOTA-ACTIVITY/lib/version"
)

// app carries the process-level dependencies every command shares.
type app struct {
	stdin  io.Reader
	stdout io.Writer

	// level is the LevelVar behind the root logger; commands set it
	// from logging.level once the configuration is loaded.
	level *slog.LevelVar

	clock clock.Clock

	// tty reports whether stdout is a terminal, for logging.color=auto.
	tty bool
}

func (a *app) root() *cli.Command {
	return &cli.Command{
		Name: "fotawatch",
		Description: `fotawatch: serial telemetry monitor and firmware rollout driver.

Frames the device console into timestamped lines, writes a columnar
log, tracks firmware versions the device reports, and walks a firmware
manifest until the device reaches the newest entry.`,
		Subcommands: []*cli.Command{
			a.monitorCommand(),
			a.rolloutCommand(),
			a.manifestCommand(),
			a.auditCommand(),
			a.stateCommand(),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(_ context.Context, _ []string, _ *slog.Logger) error {
					fmt.Fprintf(a.stdout, "fotawatch %s\n", version.Full())
					return nil
				},
			},
		},
		Examples: []cli.Example{
			{
				Description: "Watch a device on the first USB serial adapter",
				Command:     "fotawatch monitor --device /dev/ttyUSB0",
			},
			{
				Description: "Roll a device forward through a manifest",
				Command:     "fotawatch rollout --device-id 861234567890123 --manifest firmware.csv",
			},
			{
				Description: "Show what a running monitor has learned",
				Command:     "fotawatch state --socket /run/fotawatch/state.sock",
			},
		},
	}
}

// configFlag is the --config flag shared by commands that read the
// configuration file.
type configFlag struct {
	path string
}

func (f *configFlag) bind(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&f.path, "config", "", "configuration file (default $FOTAWATCH_CONFIG)")
}

// loadConfig reads and validates the configuration. apply runs between
// loading and validation so flag overrides are validated too.
func (a *app) loadConfig(flag configFlag, apply func(*config.Config)) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if flag.path != "" {
		cfg, err = config.LoadFile(flag.path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, cli.Validation("%w", err)
	}
	if apply != nil {
		apply(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, cli.Validation("invalid configuration: %w", err).
			WithHint("Fix the configuration file or the overriding flags.")
	}
	if level, err := cfg.Logging.SlogLevel(); err == nil && a.level != nil {
		a.level.Set(level)
	}
	return cfg, nil
}

// consoleColor resolves logging.color against the terminal check.
func (a *app) consoleColor(cfg *config.Config) bool {
	switch cfg.Logging.Color {
	case "always":
		return true
	case "never":
		return false
	default:
		return a.tty
	}
}

func setIfNotEmpty(target *string, value string) {
	if value != "" {
		*target = value
	}
}
