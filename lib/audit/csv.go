// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package audit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// CSVLog appends records to a CSV file.
type CSVLog struct {
	mu   sync.Mutex
	path string
	file *os.File
}

// OpenCSV opens path for appending, creating it and its directory if
// needed. The header is written when the file is new or empty.
func OpenCSV(path string) (*CSVLog, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("audit: creating directory: %w", err)
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("audit: opening %s: %w", path, err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("audit: stat %s: %w", path, err)
	}
	if info.Size() == 0 {
		if _, err := file.WriteString(Header + "\n"); err != nil {
			file.Close()
			return nil, fmt.Errorf("audit: writing header: %w", err)
		}
	}
	return &CSVLog{path: path, file: file}, nil
}

// Path returns the file path.
func (l *CSVLog) Path() string { return l.path }

// Append writes one row. The file is opened with O_APPEND, so each row
// lands in a single write.
func (l *CSVLog) Append(_ context.Context, record Record) error {
	row := strings.Join(record.Fields(), ",") + "\n"
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return fmt.Errorf("audit: %s is closed", l.path)
	}
	if _, err := l.file.WriteString(row); err != nil {
		return fmt.Errorf("audit: appending to %s: %w", l.path, err)
	}
	return nil
}

// Close closes the file.
func (l *CSVLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
