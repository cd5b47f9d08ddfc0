// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// Fatal reports err on stderr and exits with the code Report chooses.
func Fatal(err error) {
	os.Exit(Report(os.Stderr, err))
}

// Report writes err to w in the binary's standard format and returns
// the exit code main should use. An error in the chain with an
// ExitCode() int method chooses the code (default 1); one with a
// Silent() bool method returning true has already explained itself
// and is not printed.
func Report(w io.Writer, err error) int {
	if err == nil {
		return 0
	}
	code := 1
	var coded interface{ ExitCode() int }
	if errors.As(err, &coded) {
		code = coded.ExitCode()
	}
	var quiet interface{ Silent() bool }
	if errors.As(err, &quiet) && quiet.Silent() {
		return code
	}
	fmt.Fprintf(w, "error: %v\n", err)
	return code
}
