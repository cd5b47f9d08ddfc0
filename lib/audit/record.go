// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package audit

import (
	"context"
	"strings"
	"time"
)

// Header is the first line of every audit CSV file.
const Header = "timestamp,deviceId,firmwareId,firmwareVersion,firmwarePath,beforeVersion,afterVersion,result,jobId"

// TimestampLayout renders record times as UTC instants.
const TimestampLayout = time.RFC3339Nano

// Record is one rollout step outcome. Empty strings mean absent.
type Record struct {
	Timestamp       time.Time `json:"timestamp"`
	DeviceID        string    `json:"device_id"`
	FirmwareID      string    `json:"firmware_id"`
	FirmwareVersion string    `json:"firmware_version"`
	FirmwarePath    string    `json:"firmware_path"`
	BeforeVersion   string    `json:"before_version,omitempty"`
	AfterVersion    string    `json:"after_version,omitempty"`
	Result          string    `json:"result"`
	JobID           string    `json:"job_id,omitempty"`

	// SessionID ties the records of one rollout together. It is kept
	// by the SQLite store only; the CSV columns are fixed.
	SessionID string `json:"session_id,omitempty"`
}

// Fields returns the CSV columns in header order, with commas replaced.
func (r Record) Fields() []string {
	return []string{
		r.Timestamp.UTC().Format(TimestampLayout),
		sanitize(r.DeviceID),
		sanitize(r.FirmwareID),
		sanitize(r.FirmwareVersion),
		sanitize(r.FirmwarePath),
		sanitize(r.BeforeVersion),
		sanitize(r.AfterVersion),
		sanitize(r.Result),
		sanitize(r.JobID),
	}
}

func sanitize(value string) string {
	return strings.ReplaceAll(value, ",", ";")
}

// Recorder persists audit records.
type Recorder interface {
	Append(ctx context.Context, record Record) error
}
