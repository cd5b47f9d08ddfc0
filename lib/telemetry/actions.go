// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"regexp"
	"strings"
)

// Event kinds reported by the default action rules.
const (
	EventIgnitionOn  = "ignition_on"
	EventVehicleInfo = "vehicle_info"
)

// Event is an action rule firing on a line.
type Event struct {
	Kind string
	Line string
}

// ActionRule recognises a line that should be reported as an event.
type ActionRule struct {
	Kind  string
	Match func(line string) bool
}

var vehicleInfo = regexp.MustCompile(`VEHICLE\s+.*:`)

// DefaultActions returns the standard action rules. At most one fires
// per line, the first in order.
func DefaultActions() []ActionRule {
	return []ActionRule{
		{Kind: EventIgnitionOn, Match: func(line string) bool { return strings.Contains(line, "ignStatus=1") }},
		{Kind: EventVehicleInfo, Match: vehicleInfo.MatchString},
	}
}

func matchAction(actions []ActionRule, line string) (Event, bool) {
	for _, action := range actions {
		if action.Match(line) {
			return Event{Kind: action.Kind, Line: line}, true
		}
	}
	return Event{}, false
}
