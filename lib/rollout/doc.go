// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package rollout drives a device through an ordered firmware list
// until it reports the newest version.
//
// A [Controller] walks the manifest in ascending version order. For
// each entry it records the device's last login version, submits the
// image, then watches live device lines for the first version token
// until the acknowledgment window (120s by default) closes. The step
// is classified, written to the audit trail, and the controller either
// stops (the device is at or above the newest manifest version) or
// moves to the next entry.
//
// The controller reads live lines through its own broadcast
// subscription, so it never competes with the state tracker for the
// processing queue. The subscription is opened before the submit call
// so acknowledgments printed during delivery are seen.
//
// Session state machine:
//
//	Idle -> Running -> Converged | Exhausted | Failed
//
// Failed means the rollout could not continue: its context was
// cancelled or an audit record could not be written.
package rollout
