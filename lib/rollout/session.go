// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rollout

import (
	"slices"
	"time"

	"github.com/suraj-bhalerao/4G-FOTA-ACTIVITY/lib/fwversion"
	"github.com/suraj-bhalerao/4G-FOTA-ACTIVITY/lib/manifest"
)

// State is a controller lifecycle state.
type State int

const (
	Idle State = iota
	Running
	Converged
	Exhausted
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Converged:
		return "converged"
	case Exhausted:
		return "exhausted"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal reports whether s ends a session.
func (s State) Terminal() bool {
	return s == Converged || s == Exhausted || s == Failed
}

// Outcome is the classification kind of one step, without the
// observed version.
type Outcome string

const (
	OutcomeTimeout        Outcome = "TIMEOUT"
	OutcomeReported       Outcome = "REPORTED"
	OutcomeReportedHigher Outcome = "REPORTED_HIGHER"
	OutcomeInvalid        Outcome = "INVALID"
)

// Classify turns the observed version into an outcome and the result
// string written to the audit trail: TIMEOUT, REPORTED:<v> when v is at
// or below target, REPORTED_HIGHER:<v> above it, or INVALID:<v> when
// the two cannot be compared.
func Classify(after, target string) (Outcome, string) {
	if after == "" {
		return OutcomeTimeout, string(OutcomeTimeout)
	}
	lessOrEqual, err := fwversion.LessOrEqual(after, target)
	switch {
	case err != nil:
		return OutcomeInvalid, string(OutcomeInvalid) + ":" + after
	case lessOrEqual:
		return OutcomeReported, string(OutcomeReported) + ":" + after
	default:
		return OutcomeReportedHigher, string(OutcomeReportedHigher) + ":" + after
	}
}

// Step is one completed manifest entry.
type Step struct {
	Index         int               `json:"index"`
	Firmware      manifest.Firmware `json:"firmware"`
	BeforeVersion string            `json:"before_version,omitempty"`
	AfterVersion  string            `json:"after_version,omitempty"`
	JobID         string            `json:"job_id,omitempty"`
	Outcome       Outcome           `json:"outcome"`
	Result        string            `json:"result"`
}

// Session is the record of one rollout run.
type Session struct {
	ID       string    `json:"id"`
	DeviceID string    `json:"device_id"`
	Index    int       `json:"index"`
	Outcome  State     `json:"outcome"`
	Steps    []Step    `json:"steps"`
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished,omitzero"`
	Err      string    `json:"error,omitempty"`
}

func (s Session) clone() Session {
	s.Steps = slices.Clone(s.Steps)
	return s
}
