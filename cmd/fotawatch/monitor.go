// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/pflag"

	"github.com/suraj-bhalerao/4G-FOTA-ACTIVITY/cmd/fotawatch/cli"
	"github.com/suraj-bhalerao/4G-FOTA-ACTIVITY/lib/config"
	"github.com/suraj-bhalerao/4G-FOTA-ACTIVITY/lib/console"
	"github.com/suraj-bhalerao/4G-FOTA-ACTIVITY/lib/metrics"
)

func (a *app) monitorCommand() *cli.Command {
	var (
		configFile    configFlag
		device        string
		baud          int
		logFile       string
		stateSocket   string
		metricsListen string
		quiet         bool
	)

	return &cli.Command{
		Name:    "monitor",
		Summary: "Stream, log and track the device console",
		Description: `Attach to the device console and run the telemetry pipeline until
interrupted, until the operator types "exit" or "quit", or until the
device goes away.

Every line is timestamped, echoed to stdout, and appended to the log
file in fixed columns. Firmware versions the device reports are kept
in a version map, readable through the state socket ("fotawatch
state") or GET /state on the metrics listener.

Lines typed on stdin are sent to the device followed by CRLF.`,
		Usage: "fotawatch monitor [flags]",
		Examples: []cli.Example{
			{
				Description: "Monitor a USB serial adapter at 921600 baud",
				Command:     "fotawatch monitor --device /dev/ttyUSB0 --baud 921600",
			},
			{
				Description: "Monitor through a TCP serial bridge, exposing metrics",
				Command:     "fotawatch monitor --device tcp://bench-7:4000 --metrics-listen 127.0.0.1:9464",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("monitor", pflag.ContinueOnError)
			configFile.bind(flagSet)
			flagSet.StringVar(&device, "device", "", "serial device path or tcp://host:port (overrides serial.device)")
			flagSet.IntVar(&baud, "baud", 0, "baud rate (overrides serial.baud)")
			flagSet.StringVar(&logFile, "log-file", "", "device log file (overrides logging.file)")
			flagSet.StringVar(&stateSocket, "state-socket", "", "serve the version map on this Unix socket")
			flagSet.StringVar(&metricsListen, "metrics-listen", "", "serve /metrics and /state on this address")
			flagSet.BoolVarP(&quiet, "quiet", "q", false, "do not echo device lines to stdout")
			return flagSet
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 0 {
				return cli.Validation("unexpected argument: %s", args[0])
			}
			cfg, err := a.loadConfig(configFile, func(cfg *config.Config) {
				setIfNotEmpty(&cfg.Serial.Device, device)
				setIfNotEmpty(&cfg.Logging.File, logFile)
				setIfNotEmpty(&cfg.StateSocket, stateSocket)
				setIfNotEmpty(&cfg.Metrics.Listen, metricsListen)
				if baud != 0 {
					cfg.Serial.Baud = baud
				}
			})
			if err != nil {
				return err
			}
			if cfg.Serial.Device == "" {
				return cli.Validation("no serial device configured").
					WithHint("Pass --device, set serial.device, or export FOTAWATCH_SERIAL_DEVICE.")
			}

			echo := a.stdout
			if quiet {
				echo = nil
			}
			registry := metrics.New()
			m, err := a.startPipeline(ctx, cfg, echo, registry, logger)
			if err != nil {
				return err
			}
			stopSidecars := serveSidecars(ctx, cfg, m.States(), registry, logger)

			consoleDone := make(chan error, 1)
			go func() {
				consoleDone <- console.Run(ctx, console.Config{
					Input:  a.stdin,
					Sender: m,
					Echo:   echo,
					Logger: logger.With("loop", "console"),
				})
			}()

		wait:
			for {
				select {
				case <-ctx.Done():
					logger.Info("interrupted, shutting down")
					break wait
				case <-m.Detached():
					logger.Warn("device detached, shutting down")
					break wait
				case err := <-consoleDone:
					if errors.Is(err, console.ErrExitRequested) {
						logger.Info("exit requested, shutting down")
						break wait
					}
					// Stdin closed; keep monitoring without operator input.
					if err != nil {
						logger.Warn("operator input stopped", "error", err)
					}
					consoleDone = nil
				}
			}

			stopSidecars()
			if err := m.Stop(); err != nil {
				return cli.Internal("stopping monitor: %w", err)
			}
			return nil
		},
	}
}
