// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/suraj-bhalerao/4G-FOTA-ACTIVITY/cmd/fotawatch/cli"
	"github.com/suraj-bhalerao/4G-FOTA-ACTIVITY/lib/audit"
	"github.com/suraj-bhalerao/4G-FOTA-ACTIVITY/lib/config"
	"github.com/suraj-bhalerao/4G-FOTA-ACTIVITY/lib/delivery"
	"github.com/suraj-bhalerao/4G-FOTA-ACTIVITY/lib/manifest"
	"github.com/suraj-bhalerao/4G-FOTA-ACTIVITY/lib/metrics"
	"github.com/suraj-bhalerao/4G-FOTA-ACTIVITY/lib/rollout"
)

func (a *app) rolloutCommand() *cli.Command {
	var (
		configFile   configFlag
		device       string
		deviceID     string
		manifestPath string
		timeout      time.Duration
		pollInterval time.Duration
		deliveryURL  string
		auditCSV     string
		auditDB      string
		outputJSON   bool
	)

	return &cli.Command{
		Name:    "rollout",
		Summary: "Walk a firmware manifest until the device converges",
		Description: `Deliver each manifest entry to the device in ascending version order,
waiting after each for the device to report a version on its console.

A step ends when the console shows a version-shaped token or when the
acknowledgment window closes. Every step is appended to the audit CSV
(and the SQLite mirror, if configured). The rollout stops early once
the device reports a version at or above the newest entry.

Exit status is 0 when the device converged and 1 when the manifest was
exhausted without convergence.`,
		Usage: "fotawatch rollout [flags]",
		Examples: []cli.Example{
			{
				Description: "Roll a device through a manifest over HTTP delivery",
				Command:     "fotawatch rollout --device /dev/ttyUSB0 --device-id 861234567890123 --manifest firmware.csv --delivery-url https://fota.example/api/jobs",
			},
			{
				Description: "Shorten the acknowledgment window for a bench device",
				Command:     "fotawatch rollout --config bench.yaml --timeout 30s",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("rollout", pflag.ContinueOnError)
			configFile.bind(flagSet)
			flagSet.StringVar(&device, "device", "", "serial device path or tcp://host:port (overrides serial.device)")
			flagSet.StringVar(&deviceID, "device-id", "", "device identifier (overrides rollout.device_id)")
			flagSet.StringVar(&manifestPath, "manifest", "", "firmware manifest CSV (overrides rollout.manifest)")
			flagSet.DurationVar(&timeout, "timeout", 0, "acknowledgment window per step (overrides rollout.timeout)")
			flagSet.DurationVar(&pollInterval, "poll-interval", 0, "window sampling interval (overrides rollout.poll_interval)")
			flagSet.StringVar(&deliveryURL, "delivery-url", "", "HTTP delivery endpoint (overrides delivery.url)")
			flagSet.StringVar(&auditCSV, "audit-csv", "", "audit CSV path (overrides audit.csv)")
			flagSet.StringVar(&auditDB, "audit-db", "", "SQLite audit mirror (overrides audit.sqlite)")
			flagSet.BoolVar(&outputJSON, "json", false, "print the session as JSON")
			return flagSet
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 0 {
				return cli.Validation("unexpected argument: %s", args[0])
			}
			cfg, err := a.loadConfig(configFile, func(cfg *config.Config) {
				setIfNotEmpty(&cfg.Serial.Device, device)
				setIfNotEmpty(&cfg.Rollout.DeviceID, deviceID)
				setIfNotEmpty(&cfg.Rollout.Manifest, manifestPath)
				setIfNotEmpty(&cfg.Delivery.URL, deliveryURL)
				setIfNotEmpty(&cfg.Audit.CSV, auditCSV)
				setIfNotEmpty(&cfg.Audit.SQLite, auditDB)
				if timeout != 0 {
					cfg.Rollout.Timeout = timeout
				}
				if pollInterval != 0 {
					cfg.Rollout.PollInterval = pollInterval
				}
			})
			if err != nil {
				return err
			}
			switch {
			case cfg.Serial.Device == "":
				return cli.Validation("no serial device configured").
					WithHint("Pass --device, set serial.device, or export FOTAWATCH_SERIAL_DEVICE.")
			case cfg.Rollout.DeviceID == "":
				return cli.Validation("no device id configured").
					WithHint("Pass --device-id, set rollout.device_id, or export FOTAWATCH_ROLLOUT_DEVICE_ID.")
			case cfg.Rollout.Manifest == "":
				return cli.Validation("no firmware manifest configured").
					WithHint("Pass --manifest or set rollout.manifest.")
			}

			firmware, err := loadManifest(cfg.Rollout.Manifest, logger)
			if err != nil {
				return err
			}
			submitter, err := delivery.New(delivery.Options{
				Kind:    cfg.Delivery.Kind,
				URL:     cfg.Delivery.URL,
				Token:   cfg.Delivery.Token,
				Command: cfg.Delivery.Command,
				Timeout: cfg.Delivery.Timeout,
			})
			if err != nil {
				return cli.Validation("%w", err)
			}
			recorder, closeRecorder, err := openRecorder(cfg, logger)
			if err != nil {
				return err
			}
			defer closeRecorder()

			registry := metrics.New()
			m, err := a.startPipeline(ctx, cfg, a.stdout, registry, logger)
			if err != nil {
				return err
			}
			stopSidecars := serveSidecars(ctx, cfg, m.States(), registry, logger)

			controller, err := rollout.New(rollout.Config{
				DeviceID:     cfg.Rollout.DeviceID,
				Firmware:     firmware,
				Lines:        m,
				States:       m.States(),
				Submitter:    submitter,
				Recorder:     recorder,
				Timeout:      cfg.Rollout.Timeout,
				PollInterval: cfg.Rollout.PollInterval,
				Clock:        a.clock,
				Logger:       logger.With("session", "rollout"),
				Metrics:      registry,
			})
			if err != nil {
				stopSidecars()
				m.Stop()
				return cli.Internal("%w", err)
			}

			session, runErr := controller.Run(ctx)
			stopSidecars()
			if err := m.Stop(); err != nil {
				logger.Warn("stopping monitor", "error", err)
			}

			if outputJSON {
				if err := cli.WriteJSON(a.stdout, session); err != nil {
					return err
				}
			} else {
				printSession(a.stdout, session)
			}

			switch {
			case runErr != nil && errors.Is(runErr, context.Canceled):
				return cli.Transient("rollout interrupted after %d step(s)", len(session.Steps))
			case runErr != nil:
				return cli.Internal("rollout failed: %w", runErr)
			case session.Outcome == rollout.Exhausted:
				return &cli.ExitError{Code: 1}
			}
			return nil
		},
	}
}

// openRecorder opens the audit CSV and, when configured, the SQLite
// mirror. The returned func closes whatever was opened.
func openRecorder(cfg *config.Config, logger *slog.Logger) (audit.Recorder, func(), error) {
	csvLog, err := audit.OpenCSV(cfg.Audit.CSV)
	if err != nil {
		return nil, nil, cli.Internal("%w", err)
	}
	if cfg.Audit.SQLite == "" {
		return csvLog, func() { csvLog.Close() }, nil
	}
	store, err := audit.OpenStore(cfg.Audit.SQLite, logger)
	if err != nil {
		csvLog.Close()
		return nil, nil, cli.Internal("%w", err)
	}
	return audit.Multi(csvLog, store), func() {
		csvLog.Close()
		store.Close()
	}, nil
}

func loadManifest(path string, logger *slog.Logger) (*manifest.List, error) {
	firmware, err := manifest.LoadFile(path, logger)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil, cli.NotFound("firmware manifest %s does not exist", path)
	case errors.Is(err, manifest.ErrEmpty):
		return nil, cli.Validation("firmware manifest %s has no usable entries", path).
			WithHint("Rows are firmware_id,firmware_version,firmware_file_path with a dotted numeric version.")
	case err != nil:
		return nil, cli.Internal("%w", err)
	}
	return firmware, nil
}

func printSession(w io.Writer, session rollout.Session) {
	fmt.Fprintf(w, "\nsession %s  device %s  outcome %s\n", session.ID, session.DeviceID, session.Outcome)
	if len(session.Steps) == 0 {
		return
	}
	table := tabwriter.NewWriter(w, 2, 0, 2, ' ', 0)
	fmt.Fprintln(table, "STEP\tFIRMWARE\tTARGET\tBEFORE\tAFTER\tRESULT\tJOB")
	for _, step := range session.Steps {
		fmt.Fprintf(table, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			step.Index,
			step.Firmware.ID,
			step.Firmware.Version,
			dash(step.BeforeVersion),
			dash(step.AfterVersion),
			step.Result,
			dash(step.JobID),
		)
	}
	table.Flush()
}

func dash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
