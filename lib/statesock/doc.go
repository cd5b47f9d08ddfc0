// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package statesock exposes the live version map on a Unix socket so
// other processes (the CLI's state command, a rollout running in a
// separate process, dashboards) can read it while the monitor runs.
//
// The protocol is one CBOR request and one CBOR response per
// connection. Requests carry an "action" field:
//
//	snapshot                  -> the full map
//	lookup {state, key}       -> {version, found}
//
// Responses are {ok, error, data}.
package statesock
