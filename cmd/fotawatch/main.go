// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/suraj-bhalerao/4G-FOTA-ACTIVITY/cmd/fotawatch/cli"
	"github.com/suraj-bhalerao/4G-FOTA-ACTIVITY/lib/clock"
	"github.com/suraj-bhalerao/4G-FOTA-ACTIVITY/lib/process"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	level := new(slog.LevelVar)
	a := &app{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		level:  level,
		clock:  clock.Real(),
		tty:    cli.IsTerminal(os.Stdout),
	}
	root := a.root()
	root.Logger = cli.NewCommandLogger(level)

	return root.Execute(ctx, os.Args[1:])
}
