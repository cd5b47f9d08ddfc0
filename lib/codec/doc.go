// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds the CBOR encoding configuration shared by the
// state socket server and its clients.
//
// Encoding uses Core Deterministic Encoding (RFC 8949 §4.2), so the
// same snapshot always produces identical bytes. Types with only
// `json` tags encode the same field names in CBOR, which lets socket
// payloads double as CLI --json output.
package codec
