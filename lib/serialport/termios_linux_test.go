// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux

package serialport

import "testing"

func TestSupportedBaud(t *testing.T) {
	for _, rate := range []int{9600, 115200, 921600} {
		if !SupportedBaud(rate) {
			t.Errorf("SupportedBaud(%d) = false", rate)
		}
	}
	if SupportedBaud(12345) {
		t.Error("SupportedBaud(12345) = true")
	}
	if _, err := openDevice("/dev/null", 12345); err == nil {
		t.Error("openDevice accepted an unsupported baud rate")
	}
}
