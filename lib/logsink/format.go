// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logsink

import (
	"regexp"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// Column widths of the rendered log line.
const (
	TimestampColumn = 27
	LevelColumn     = 6
	TagColumn       = 12
)

var structuredLine = regexp.MustCompile(`^(\S+)\s*(?:([A-Z]+):\s*)?(?:\s*\[([^\]]+)\]\s*)?(.*)$`)

// Fields is a framed line split into its log columns.
type Fields struct {
	Timestamp string
	Level     string
	Tag       string
	Message   string
}

// Parse splits a framed line. The second return is false when the line
// does not have the expected shape; callers then write it verbatim.
func Parse(line string) (Fields, bool) {
	match := structuredLine.FindStringSubmatch(line)
	if match == nil {
		return Fields{}, false
	}
	return Fields{
		Timestamp: match[1],
		Level:     match[2],
		Tag:       match[3],
		Message:   match[4],
	}, true
}

// Format renders a framed line as fixed-width columns.
func Format(line string) string {
	fields, ok := Parse(line)
	if !ok {
		return line
	}
	return render(fields, func(level string) string { return level })
}

// render lays out the columns, passing the padded level through
// styleLevel so colouring never changes the column width.
func render(fields Fields, styleLevel func(string) string) string {
	tag := ""
	if fields.Tag != "" {
		tag = "[" + fields.Tag + "]"
	}
	var builder strings.Builder
	builder.WriteString(pad(fields.Timestamp, TimestampColumn))
	builder.WriteByte(' ')
	builder.WriteString(styleLevel(pad(fields.Level, LevelColumn)))
	builder.WriteByte(' ')
	builder.WriteString(pad(tag, TagColumn))
	builder.WriteByte(' ')
	builder.WriteString(fields.Message)
	return builder.String()
}

// pad left-justifies s in a column of width cells, truncating if it is
// wider.
func pad(s string, width int) string {
	current := ansi.StringWidth(s)
	if current > width {
		return ansi.Truncate(s, width, "")
	}
	return s + strings.Repeat(" ", width-current)
}
