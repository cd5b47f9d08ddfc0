// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads fotawatch configuration.
//
// Configuration comes from one file named by the FOTAWATCH_CONFIG
// environment variable (via [Load]) or a --config flag (via
// [LoadFile]). Files ending in .json or .jsonc are read as JSON with
// comments; everything else is YAML. Without a file, [Load] returns
// the defaults.
//
// Resolution order for a value is file, then environment, then
// default. Only a fixed set of keys consult the environment, each as
// FOTAWATCH_ plus the upper-snake key:
//
//	serial.device      FOTAWATCH_SERIAL_DEVICE
//	serial.baud        FOTAWATCH_SERIAL_BAUD
//	rollout.device_id  FOTAWATCH_ROLLOUT_DEVICE_ID
//	delivery.url       FOTAWATCH_DELIVERY_URL
//	delivery.token     FOTAWATCH_DELIVERY_TOKEN
//
// A value left at its default in the file is treated as unset.
//
// The file may carry development and production sections that
// override base values when environment matches. Path fields expand
// ${VAR} and ${VAR:-default} after loading.
package config
