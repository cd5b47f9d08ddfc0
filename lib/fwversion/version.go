// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fwversion

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrMalformed is returned when a version string has an empty,
// non-numeric, or out-of-range component.
var ErrMalformed = errors.New("malformed version")

var (
	shapePattern      = regexp.MustCompile(`\d+\.\d+(?:\.\d+)*`)
	shapeExactPattern = regexp.MustCompile(`^\d+\.\d+(?:\.\d+)*$`)
)

// Find returns the first version-shaped run in s, or "" if there is
// none.
func Find(s string) string {
	return shapePattern.FindString(s)
}

// Contains reports whether s contains a version-shaped run anywhere.
func Contains(s string) bool {
	return shapePattern.MatchString(s)
}

// Match reports whether s, in its entirety, is version-shaped.
func Match(s string) bool {
	return shapeExactPattern.MatchString(s)
}

// Version is a parsed version: its numeric components in order.
type Version []uint64

// Parse splits s on dots and parses every component. A single
// component ("7") is accepted; it compares as "7.0".
func Parse(s string) (Version, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty", ErrMalformed)
	}
	parts := strings.Split(s, ".")
	parsed := make(Version, len(parts))
	for i, part := range parts {
		if part == "" {
			return nil, fmt.Errorf("%w: %q has an empty component", ErrMalformed, s)
		}
		value, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q component %q", ErrMalformed, s, part)
		}
		parsed[i] = value
	}
	return parsed, nil
}

// String renders the version with dots.
func (v Version) String() string {
	parts := make([]string, len(v))
	for i, component := range v {
		parts[i] = strconv.FormatUint(component, 10)
	}
	return strings.Join(parts, ".")
}

// Compare returns -1, 0, or +1 as v is less than, equal to, or
// greater than other. Missing trailing components count as zero.
func (v Version) Compare(other Version) int {
	length := max(len(v), len(other))
	for i := range length {
		var a, b uint64
		if i < len(v) {
			a = v[i]
		}
		if i < len(other) {
			b = other[i]
		}
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		}
	}
	return 0
}

// Compare parses both strings and compares them. Either side being
// malformed yields ErrMalformed and a zero result that callers must
// not interpret.
func Compare(a, b string) (int, error) {
	left, err := Parse(a)
	if err != nil {
		return 0, err
	}
	right, err := Parse(b)
	if err != nil {
		return 0, err
	}
	return left.Compare(right), nil
}

// LessOrEqual reports whether a <= b.
func LessOrEqual(a, b string) (bool, error) {
	result, err := Compare(a, b)
	if err != nil {
		return false, err
	}
	return result <= 0, nil
}

// Less reports whether a < b.
func Less(a, b string) (bool, error) {
	result, err := Compare(a, b)
	if err != nil {
		return false, err
	}
	return result < 0, nil
}
