// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"regexp"
	"strings"

	"github.com/suraj-bhalerao/4G-FOTA-ACTIVITY/lib/fwversion"
)

// Well-known map keys.
const (
	// StateLogin holds versions reported by login packets, keyed by
	// device id.
	StateLogin = "LOGIN"

	// StateUnknown is used when a version is seen without a state.
	StateUnknown = "UNKNOWN"

	// KeySoftware is the identifier for versions with no named software.
	KeySoftware = "SOFTWARE"

	// KeyLoginFallback is the login identifier when the packet carries
	// no usable device id.
	KeyLoginFallback = "LOGIN_SOFTWARE"

	// LoginSentinel marks a login packet.
	LoginSentinel = "55AA"
)

// loginDeviceField is the zero-based index of the device id in a
// login packet.
const loginDeviceField = 6

var (
	softwareToken = regexp.MustCompile(`(?i)SOFTWARE[:=\s]+([^\s,;:\n]+)`)
	versionToken  = regexp.MustCompile(`(?i)VERSION[:=\s]+([^\s,;:\n]+)`)
	stateToken    = regexp.MustCompile(`(?i)STATE[:=\s]+([^\s,;:\n]+)`)
)

// Update is one version map commit.
type Update struct {
	State   string
	Key     string
	Version string

	// Rule names the rule that produced the update.
	Rule string
}

// Rule is one entry in the ordered parse rule list. Match returns the
// update to commit and true, or false to pass the line to the next
// rule.
type Rule struct {
	Name  string
	Match func(line string) (Update, bool)
}

// Rule names, also used as metric labels.
const (
	RuleLabeled  = "labeled"
	RuleSoftware = "software"
	RuleLogin    = "login"
	RuleBare     = "bare"
)

// DefaultRules returns the standard rule order.
func DefaultRules() []Rule {
	return []Rule{
		{Name: RuleLabeled, Match: matchLabeled},
		{Name: RuleSoftware, Match: matchSoftwareOnly},
		{Name: RuleLogin, Match: matchLogin},
		{Name: RuleBare, Match: matchBare},
	}
}

// Classify applies rules in order and returns the first match.
func Classify(rules []Rule, line string) (Update, bool) {
	if line == "" {
		return Update{}, false
	}
	for _, rule := range rules {
		if update, ok := rule.Match(line); ok {
			update.Rule = rule.Name
			return update, true
		}
	}
	return Update{}, false
}

func token(pattern *regexp.Regexp, line string) (string, bool) {
	match := pattern.FindStringSubmatch(line)
	if match == nil {
		return "", false
	}
	return strings.TrimSpace(match[1]), true
}

func matchLabeled(line string) (Update, bool) {
	software, hasSoftware := token(softwareToken, line)
	version, hasVersion := token(versionToken, line)
	state, hasState := token(stateToken, line)
	if !hasSoftware || !hasVersion || !hasState {
		return Update{}, false
	}
	return Update{State: state, Key: software, Version: version}, true
}

func matchSoftwareOnly(line string) (Update, bool) {
	software, hasSoftware := token(softwareToken, line)
	if !hasSoftware {
		return Update{}, false
	}
	if _, hasVersion := token(versionToken, line); hasVersion {
		return Update{}, false
	}
	if !fwversion.Contains(software) {
		return Update{}, false
	}
	state, hasState := token(stateToken, line)
	if !hasState {
		state = StateUnknown
	}
	return Update{State: state, Key: KeySoftware, Version: software}, true
}

func matchLogin(line string) (Update, bool) {
	if !IsLoginPacket(line) {
		return Update{}, false
	}
	payload, _, _ := strings.Cut(line, "|")
	fields := strings.Split(payload, ",")

	version := ""
	for _, field := range fields {
		if candidate := strings.TrimSpace(field); fwversion.Match(candidate) {
			version = candidate
			break
		}
	}
	if version == "" {
		return Update{}, false
	}

	key := KeyLoginFallback
	if len(fields) > loginDeviceField {
		candidate := strings.TrimSpace(fields[loginDeviceField])
		if candidate != "" && !fwversion.Match(candidate) {
			key = candidate
		}
	}
	return Update{State: StateLogin, Key: key, Version: version}, true
}

func matchBare(line string) (Update, bool) {
	version := fwversion.Find(line)
	if version == "" {
		return Update{}, false
	}
	return Update{State: StateUnknown, Key: KeySoftware, Version: version}, true
}

// IsLoginPacket reports whether line carries the login sentinel.
func IsLoginPacket(line string) bool {
	return strings.HasPrefix(line, LoginSentinel) || strings.Contains(line, LoginSentinel+",")
}
