// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
)

type codedError struct {
	code   int
	silent bool
}

func (e codedError) Error() string { return "coded" }
func (e codedError) ExitCode() int { return e.code }
func (e codedError) Silent() bool  { return e.silent }

func TestReport(t *testing.T) {
	var buffer bytes.Buffer
	if code := Report(&buffer, nil); code != 0 || buffer.Len() != 0 {
		t.Fatalf("nil error: code=%d output=%q", code, buffer.String())
	}

	if code := Report(&buffer, errors.New("opening /dev/ttyUSB0: no such file")); code != 1 {
		t.Errorf("plain error code = %d, want 1", code)
	}
	if got, want := buffer.String(), "error: opening /dev/ttyUSB0: no such file\n"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}

	buffer.Reset()
	if code := Report(&buffer, codedError{code: 3, silent: true}); code != 3 {
		t.Errorf("silent error code = %d, want 3", code)
	}
	if buffer.Len() != 0 {
		t.Errorf("silent error should not print, got %q", buffer.String())
	}

	buffer.Reset()
	wrapped := fmt.Errorf("loading manifest: %w", codedError{code: 2})
	if code := Report(&buffer, wrapped); code != 2 {
		t.Errorf("wrapped coded error code = %d, want 2", code)
	}
	if got, want := buffer.String(), "error: loading manifest: coded\n"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}
