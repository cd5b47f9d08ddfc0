// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/suraj-bhalerao/4G-FOTA-ACTIVITY/cmd/fotawatch/cli"
	"github.com/suraj-bhalerao/4G-FOTA-ACTIVITY/lib/statesock"
)

// stateEntry is one flattened row of the version map.
type stateEntry struct {
	State   string `json:"state"`
	Key     string `json:"key"`
	Version string `json:"version"`
}

func (a *app) stateCommand() *cli.Command {
	var (
		configFile configFlag
		socketPath string
		outputJSON bool
	)

	return &cli.Command{
		Name:    "state",
		Summary: "Read the version map from a running monitor",
		Description: `Query a running "fotawatch monitor" or "fotawatch rollout" for the
firmware versions it has seen. With no arguments the whole map is
printed; with a state and key only that entry.

The socket path defaults to state_socket from the configuration.`,
		Usage: "fotawatch state [state key] [flags]",
		Examples: []cli.Example{
			{
				Description: "Version the device announced in its last login packet",
				Command:     "fotawatch state LOGIN 861234567890123",
			},
			{
				Description: "Whole map as JSON",
				Command:     "fotawatch state --json",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("state", pflag.ContinueOnError)
			configFile.bind(flagSet)
			flagSet.StringVar(&socketPath, "socket", "", "state socket path (overrides state_socket)")
			flagSet.BoolVar(&outputJSON, "json", false, "output as JSON")
			return flagSet
		},
		Run: func(ctx context.Context, args []string, _ *slog.Logger) error {
			if len(args) != 0 && len(args) != 2 {
				return cli.Validation("expected no arguments or <state> <key>, got %d", len(args))
			}
			if socketPath == "" {
				cfg, err := a.loadConfig(configFile, nil)
				if err != nil {
					return err
				}
				socketPath = cfg.StateSocket
			}
			if socketPath == "" {
				return cli.Validation("no state socket configured").
					WithHint("Pass --socket or set state_socket.")
			}
			client := statesock.NewClient(socketPath)

			if len(args) == 2 {
				version, found, err := client.Lookup(ctx, args[0], args[1])
				if err != nil {
					return cli.Transient("%w", err).WithHint("Is a monitor running with this state socket?")
				}
				if !found {
					return cli.NotFound("no version recorded for %s/%s", args[0], args[1])
				}
				if outputJSON {
					return cli.WriteJSON(a.stdout, stateEntry{State: args[0], Key: args[1], Version: version})
				}
				fmt.Fprintln(a.stdout, version)
				return nil
			}

			snapshot, err := client.Snapshot(ctx)
			if err != nil {
				return cli.Transient("%w", err).WithHint("Is a monitor running with this state socket?")
			}
			if outputJSON {
				return cli.WriteJSON(a.stdout, snapshot)
			}
			entries := flatten(snapshot)
			if len(entries) == 0 {
				fmt.Fprintln(a.stdout, "no versions recorded")
				return nil
			}
			table := tabwriter.NewWriter(a.stdout, 2, 0, 2, ' ', 0)
			fmt.Fprintln(table, "STATE\tKEY\tVERSION")
			for _, entry := range entries {
				fmt.Fprintf(table, "%s\t%s\t%s\n", entry.State, entry.Key, entry.Version)
			}
			return table.Flush()
		},
	}
}

// flatten returns the map as rows sorted by state, then key.
func flatten(snapshot map[string]map[string]string) []stateEntry {
	var entries []stateEntry
	for state, keys := range snapshot {
		for key, version := range keys {
			entries = append(entries, stateEntry{State: state, Key: key, Version: version})
		}
	}
	slices.SortFunc(entries, func(x, y stateEntry) int {
		if c := cmp.Compare(x.State, y.State); c != 0 {
			return c
		}
		return cmp.Compare(x.Key, y.Key)
	})
	return entries
}
