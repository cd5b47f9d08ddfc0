// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package delivery hands firmware images to whatever pushes them to the
// device: a FOTA web service, an external command, or a test double.
//
// A Submitter returns the job id the delivery system assigned, or ""
// when it gave none. Errors are reported but never stop a rollout; the
// controller records the step without a job id.
package delivery

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/suraj-bhalerao/4G-FOTA-ACTIVITY/lib/manifest"
)

// Submitter starts delivery of one firmware image to one device.
type Submitter interface {
	Submit(ctx context.Context, deviceID string, firmware manifest.Firmware) (jobID string, err error)
}

// Func adapts a function to Submitter.
type Func func(ctx context.Context, deviceID string, firmware manifest.Firmware) (string, error)

// Submit calls f.
func (f Func) Submit(ctx context.Context, deviceID string, firmware manifest.Firmware) (string, error) {
	return f(ctx, deviceID, firmware)
}

// Kinds accepted by New.
const (
	KindHTTP    = "http"
	KindCommand = "command"
)

// Options selects and configures a submitter.
type Options struct {
	Kind    string
	URL     string
	Token   string
	Command []string

	// Timeout bounds one submission. Zero means no limit beyond the
	// caller's context.
	Timeout time.Duration
}

// New builds the submitter described by options.
func New(options Options) (Submitter, error) {
	switch options.Kind {
	case KindHTTP:
		if options.URL == "" {
			return nil, fmt.Errorf("delivery: http submitter needs a URL")
		}
		submitter := &HTTPSubmitter{URL: options.URL, Token: options.Token}
		if options.Timeout > 0 {
			submitter.Client = &http.Client{Timeout: options.Timeout}
		}
		return submitter, nil
	case KindCommand:
		if len(options.Command) == 0 {
			return nil, fmt.Errorf("delivery: command submitter needs a command")
		}
		return &CommandSubmitter{Command: options.Command, Timeout: options.Timeout}, nil
	default:
		return nil, fmt.Errorf("delivery: unknown kind %q (want %s or %s)", options.Kind, KindHTTP, KindCommand)
	}
}
