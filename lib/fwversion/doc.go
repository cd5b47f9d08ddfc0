// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package fwversion handles the dot-separated numeric versions that
// devices report on their telemetry stream and that firmware manifests
// target.
//
// A version shape is two or more runs of digits joined by dots
// ("5.2.8", "1.10"). [Find] extracts the first standalone shape from a
// line; [Match] tests whether a whole token is one.
//
// Comparison is component-wise over unsigned integers with the shorter
// version padded with zeros on the right, so "1.2" equals "1.2.0". A
// component that is not a number, or does not fit in 64 bits, makes
// the version malformed: [Parse] and [Compare] return [ErrMalformed]
// instead of guessing an order.
package fwversion
