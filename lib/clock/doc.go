// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides the time source used by the framer, the
// rollout poller, and the monitor's shutdown grace period.
//
// Production code holds a Clock field set to [Real]. Tests use [Fake],
// which only moves when Advance is called:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	controller := rollout.New(rollout.Config{Clock: c, ...})
//	go controller.Run(ctx)
//	c.WaitForTimers(1)          // poller registered its ticker
//	c.Advance(120 * time.Second) // acknowledgment window elapses
//
// WaitForTimers closes the race between a goroutine registering a
// timer and the test advancing past it.
package clock
