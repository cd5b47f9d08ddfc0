// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package audit

import (
	"context"
	"errors"
)

type multiRecorder []Recorder

// Multi returns a Recorder that appends to every recorder in order.
// Every recorder is attempted; the errors are joined.
func Multi(recorders ...Recorder) Recorder {
	return multiRecorder(recorders)
}

func (m multiRecorder) Append(ctx context.Context, record Record) error {
	var errs []error
	for _, recorder := range m {
		if err := recorder.Append(ctx, record); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
