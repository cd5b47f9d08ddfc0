// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package audit records one entry per rollout step.
//
// The primary trail is an append-only CSV file whose header is written
// when the file is missing or empty. Commas inside values are replaced
// with semicolons so every row keeps exactly nine columns. A SQLite
// mirror ([Store]) holds the same records for querying by device, and
// [Multi] fans one append out to several recorders.
//
// Appends are synchronous: when Append returns nil the record is on
// disk (CSV flushed, SQLite committed).
package audit
