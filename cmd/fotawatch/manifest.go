// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/suraj-bhalerao/4G-FOTA-ACTIVITY/cmd/fotawatch/cli"
	"github.com/suraj-bhalerao/4G-FOTA-ACTIVITY/lib/manifest"
)

// manifestEntry is one row of manifest output.
type manifestEntry struct {
	manifest.Firmware
	Digest string `json:"blake3,omitempty"`
	Error  string `json:"error,omitempty"`
}

func (a *app) manifestCommand() *cli.Command {
	var (
		configFile configFlag
		outputJSON bool
	)

	return &cli.Command{
		Name:    "manifest",
		Summary: "List a firmware manifest with image digests",
		Description: `Load a firmware manifest and print its entries in rollout order
(ascending version), with the BLAKE3 digest of each image. Rows that
would be skipped during a rollout are reported as warnings.

The manifest path defaults to rollout.manifest from the configuration.`,
		Usage: "fotawatch manifest [path] [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("manifest", pflag.ContinueOnError)
			configFile.bind(flagSet)
			flagSet.BoolVar(&outputJSON, "json", false, "output as JSON")
			return flagSet
		},
		Run: func(_ context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 1 {
				return cli.Validation("unexpected argument: %s", args[1])
			}
			var path string
			if len(args) == 1 {
				path = args[0]
			} else {
				cfg, err := a.loadConfig(configFile, nil)
				if err != nil {
					return err
				}
				path = cfg.Rollout.Manifest
			}
			if path == "" {
				return cli.Validation("no manifest given").
					WithHint("Pass a path or set rollout.manifest.")
			}

			firmware, err := loadManifest(path, logger)
			if err != nil {
				return err
			}
			entries := make([]manifestEntry, 0, firmware.Len())
			for _, item := range firmware.Entries() {
				entry := manifestEntry{Firmware: item}
				if digest, err := manifest.Digest(item.Path); err != nil {
					entry.Error = err.Error()
				} else {
					entry.Digest = digest
				}
				entries = append(entries, entry)
			}

			if outputJSON {
				return cli.WriteJSON(a.stdout, entries)
			}
			table := tabwriter.NewWriter(a.stdout, 2, 0, 2, ' ', 0)
			fmt.Fprintln(table, "ID\tVERSION\tPATH\tBLAKE3")
			for _, entry := range entries {
				digest := entry.Digest
				if digest == "" {
					digest = "(unreadable)"
				} else {
					digest = digest[:16]
				}
				fmt.Fprintf(table, "%s\t%s\t%s\t%s\n", entry.ID, entry.Version, entry.Path, digest)
			}
			return table.Flush()
		},
	}
}
