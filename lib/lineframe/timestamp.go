// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package lineframe

import (
	"regexp"
	"time"
)

// TimestampLayout renders local time with seven fractional digits,
// e.g. 2026-03-01T12:00:00.1234567. Sub-100ns precision is truncated.
const TimestampLayout = "2006-01-02T15:04:05.0000000"

// TimestampWidth is the length of a formatted timestamp.
const TimestampWidth = len(TimestampLayout)

var leadingTimestamp = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{7}\s+`)

// FormatTimestamp formats t in its own location using TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// StripTimestamp removes a leading framer timestamp and the whitespace
// after it. Lines without one are returned unchanged.
func StripTimestamp(line string) string {
	if loc := leadingTimestamp.FindStringIndex(line); loc != nil {
		return line[loc[1]:]
	}
	return line
}
