// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package monitor assembles the telemetry pipeline around one open
// transport.
//
// [Start] wires a reader goroutine into a [lineframe.Framer], which
// fans every framed line out to three sinks: the log queue drained by
// a [logsink.Writer], the process queue drained by a
// [telemetry.Tracker], and a [lineframe.Broadcaster] that live
// observers such as the rollout controller subscribe to. Each sink is
// bounded and drops on saturation, so a slow consumer never stalls
// the reader.
//
// [Monitor.Stop] shuts down in order: the transport is closed so no
// new bytes arrive, the writer and tracker get a grace period to
// drain what is already queued, and anything still running after the
// grace period is abandoned.
package monitor
