// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package lineframe turns the raw byte stream from a device into
// timestamped lines and fans them out to independent consumers.
//
// Data flow:
//
//	transport read loop → Framer.Write(chunk) → Sink.Offer(line) for each sink
//	                                             ├─ Queue "log"      → logsink.Writer
//	                                             ├─ Queue "process"  → telemetry.Tracker
//	                                             └─ Broadcaster      → rollout subscriptions
//
// Chunk boundaries carry no meaning: the [Framer] buffers partial
// lines, treats CR, LF, and CRLF as one terminator, strips ANSI escape
// sequences with charmbracelet/x/ansi, trims whitespace, and discards
// lines that end up empty. Each surviving line is prefixed with a
// local timestamp carrying exactly seven fractional-second digits (see
// [FormatTimestamp]).
//
// Every sink is offered each line without blocking. A full [Queue] or
// a full [Subscription] drops that line for that consumer only and the
// framer logs a warning; the writer calling Write is never held up by
// a slow consumer.
package lineframe
