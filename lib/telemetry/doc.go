// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package telemetry turns framed device lines into a two-level version
// map: state label, then software or device identifier, then version.
//
// Each line (with its framing timestamp removed) is tried against an
// ordered list of parse rules. The first rule that matches commits one
// entry to the [StateMap] and no later rule is consulted:
//
//  1. labeled: SOFTWARE, VERSION and STATE tokens all present
//  2. software: a SOFTWARE token whose value is itself version-shaped
//  3. login: a 55AA login packet carrying a version and device id
//  4. bare: the first version-shaped token anywhere in the line
//
// Lines matching no rule leave the map untouched. Commits are upserts,
// so replaying a line is idempotent.
//
// The [Tracker] is the single consumer of the processing queue. Lines
// that are neither labeled nor login packets are also checked against
// a small set of action rules that report ignition and vehicle events
// to an optional hook without touching the map.
package telemetry
