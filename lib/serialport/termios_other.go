// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !linux

package serialport

import (
	"fmt"
	"os"
	"runtime"
)

// SupportedBaud reports whether rate can be configured on this platform.
func SupportedBaud(int) bool { return false }

func openDevice(path string, _ int) (*os.File, error) {
	return nil, fmt.Errorf("direct tty access is not supported on %s; use a tcp:// bridge", runtime.GOOS)
}
