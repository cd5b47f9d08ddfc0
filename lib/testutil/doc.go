// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [RequireReceive] and [RequireClosed] wrap the select-with-timeout
// pattern so individual tests never call time.After directly. They are
// the only place in the test suite that waits on the wall clock; the
// timeouts exist purely to turn a hang into a failure.
//
// [SocketDir] returns a short directory under /tmp for Unix sockets,
// whose paths are limited to 108 bytes. [WriteFile] drops a fixture
// file into a test's temporary directory.
//
// All helpers call t.Fatalf on failure.
package testutil
