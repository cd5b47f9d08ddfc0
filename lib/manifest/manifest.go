// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package manifest loads the firmware manifest: the ordered list of
// firmware images a rollout steps through.
//
// The manifest is a CSV file with the columns
//
//	firmware_id,firmware_version,firmware_file_path
//
// Blank lines, lines starting with '#', and the header line are
// ignored. Rows with fewer than three fields or with a version that is
// not purely numeric are skipped with a warning. The surviving rows
// are sorted ascending by numeric version (2.9.0 < 2.10.0) once, at
// load; a [List] never changes afterwards.
package manifest

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/suraj-bhalerao/4G-FOTA-ACTIVITY/lib/fwversion"
)

// ErrEmpty is returned when a manifest has no usable rows.
var ErrEmpty = errors.New("manifest has no firmware entries")

// Header is the expected first line of a manifest.
const Header = "firmware_id,firmware_version,firmware_file_path"

// Firmware is one manifest entry.
type Firmware struct {
	ID      string `json:"id"`
	Version string `json:"version"`
	Path    string `json:"path"`
}

// List is an immutable, version-ordered firmware list.
type List struct {
	entries []Firmware
}

// NewList sorts entries by version and returns them as a List.
// Entries with malformed versions are rejected.
func NewList(entries []Firmware) (*List, error) {
	if len(entries) == 0 {
		return nil, ErrEmpty
	}
	type keyed struct {
		firmware Firmware
		version  fwversion.Version
	}
	sorted := make([]keyed, 0, len(entries))
	for _, entry := range entries {
		version, err := fwversion.Parse(entry.Version)
		if err != nil {
			return nil, fmt.Errorf("firmware %q: %w", entry.ID, err)
		}
		sorted = append(sorted, keyed{firmware: entry, version: version})
	}
	slices.SortStableFunc(sorted, func(a, b keyed) int {
		return a.version.Compare(b.version)
	})
	list := &List{entries: make([]Firmware, len(sorted))}
	for i, entry := range sorted {
		list.entries[i] = entry.firmware
	}
	return list, nil
}

// Len returns the number of entries.
func (l *List) Len() int { return len(l.entries) }

// At returns the entry at index i, in ascending version order.
func (l *List) At(i int) Firmware { return l.entries[i] }

// Entries returns a copy of the entries in order.
func (l *List) Entries() []Firmware { return slices.Clone(l.entries) }

// Latest returns the highest-version entry.
func (l *List) Latest() Firmware { return l.entries[len(l.entries)-1] }

// Load parses a manifest from r.
func Load(r io.Reader, logger *slog.Logger) (*List, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	var entries []Firmware
	scanner := bufio.NewScanner(r)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "firmware_id") {
			continue
		}
		fields := strings.Split(line, ",")
		if len(fields) < 3 {
			logger.Warn("skipping short manifest row", "line", lineNumber, "fields", len(fields))
			continue
		}
		entry := Firmware{
			ID:      strings.TrimSpace(fields[0]),
			Version: strings.TrimSpace(fields[1]),
			Path:    strings.TrimSpace(fields[2]),
		}
		if _, err := fwversion.Parse(entry.Version); err != nil {
			logger.Warn("skipping manifest row with malformed version",
				"line", lineNumber, "firmware", entry.ID, "error", err)
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	return NewList(entries)
}

// LoadFile parses the manifest at path.
func LoadFile(path string, logger *slog.Logger) (*List, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening manifest: %w", err)
	}
	defer file.Close()
	list, err := Load(file, logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return list, nil
}

// Digest returns the hex BLAKE3 digest of the file at path.
func Digest(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening firmware image: %w", err)
	}
	defer file.Close()
	hasher := blake3.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
