// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process holds the entrypoint helpers used before the
// structured logger exists. A transport that cannot be opened at
// startup ends the process here, before any worker loop is spawned.
package process
