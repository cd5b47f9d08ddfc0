// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/suraj-bhalerao/4G-FOTA-ACTIVITY/cmd/fotawatch/cli"
	"github.com/suraj-bhalerao/4G-FOTA-ACTIVITY/lib/config"
	"github.com/suraj-bhalerao/4G-FOTA-ACTIVITY/lib/logsink"
	"github.com/suraj-bhalerao/4G-FOTA-ACTIVITY/lib/metrics"
	"github.com/suraj-bhalerao/4G-FOTA-ACTIVITY/lib/monitor"
	"github.com/suraj-bhalerao/4G-FOTA-ACTIVITY/lib/serialport"
	"github.com/suraj-bhalerao/4G-FOTA-ACTIVITY/lib/statesock"
	"github.com/suraj-bhalerao/4G-FOTA-ACTIVITY/lib/telemetry"
)

// startPipeline opens the configured transport and starts the monitor
// on it. No loop is started if the transport cannot be opened.
func (a *app) startPipeline(ctx context.Context, cfg *config.Config, console io.Writer, registry *metrics.Metrics, logger *slog.Logger) (*monitor.Monitor, error) {
	compression, err := logsink.ParseCompression(cfg.Logging.Compression)
	if err != nil {
		return nil, cli.Validation("%w", err)
	}

	transport, err := serialport.Open(ctx, serialport.Config{
		Device: cfg.Serial.Device,
		Baud:   cfg.Serial.Baud,
	})
	if err != nil {
		return nil, cli.Transient("%w", err).
			WithHint("Check that the device is attached and not held open by another program.")
	}
	logger.Info("transport open", "device", cfg.Serial.Device, "baud", cfg.Serial.Baud)

	m, err := monitor.Start(ctx, monitor.Config{
		QueueCapacity:        cfg.Queues.Capacity,
		SubscriptionCapacity: cfg.Queues.Subscription,
		Console:              console,
		Color:                a.consoleColor(cfg),
		LogPath:              cfg.Logging.File,
		MaxBytes:             cfg.Logging.MaxBytes,
		Compression:          compression,
		ShutdownGrace:        cfg.ShutdownGrace,
		Clock:                a.clock,
		Logger:               logger,
		Metrics:              registry,
	}, transport)
	if err != nil {
		transport.Close()
		return nil, cli.Internal("%w", err)
	}
	return m, nil
}

// serveSidecars starts the state socket and metrics listener when
// configured. The returned function stops them and waits.
func serveSidecars(ctx context.Context, cfg *config.Config, states *telemetry.StateMap, registry *metrics.Metrics, logger *slog.Logger) func() {
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup

	if cfg.StateSocket != "" {
		server := statesock.NewServer(cfg.StateSocket, states, logger.With("sidecar", "statesock"))
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := server.Serve(ctx); err != nil {
				logger.Error("state socket stopped", "error", err)
			}
		}()
	}

	if cfg.Metrics.Listen != "" {
		server, err := metrics.NewServer(metrics.ServerConfig{
			Address: cfg.Metrics.Listen,
			Metrics: registry,
			Extra: map[string]http.Handler{
				"GET /state": stateHandler(states),
			},
			Logger: logger.With("sidecar", "metrics"),
		})
		if err != nil {
			logger.Error("metrics listener disabled", "error", err)
		} else {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := server.Serve(ctx); err != nil {
					logger.Error("metrics listener stopped", "error", err)
				}
			}()
		}
	}

	return func() {
		cancel()
		wg.Wait()
	}
}

// stateHandler serves the version map as JSON.
func stateHandler(states *telemetry.StateMap) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		writer.Header().Set("Content-Type", "application/json")
		json.NewEncoder(writer).Encode(states)
	})
}
