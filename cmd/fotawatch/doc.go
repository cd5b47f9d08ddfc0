// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Fotawatch watches a telematics device's serial console and drives
// firmware-over-the-air rollouts against it.
//
// Commands:
//
//	fotawatch monitor       stream, log and track the device console
//	fotawatch rollout       walk a firmware manifest until the device converges
//	fotawatch manifest      list a manifest with image digests
//	fotawatch audit list    query the SQLite audit mirror
//	fotawatch state         read the live version map from a running monitor
//	fotawatch version       print build information
//
// Configuration is read from --config or FOTAWATCH_CONFIG; see
// package config for the file format. Flags override file values.
package main
