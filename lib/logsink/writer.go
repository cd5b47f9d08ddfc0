// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logsink

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/suraj-bhalerao/4G-FOTA-ACTIVITY/lib/clock"
	"github.com/suraj-bhalerao/4G-FOTA-ACTIVITY/lib/metrics"
)

// rotationLayout names rotated segments. Sorts lexically by time.
const rotationLayout = "20060102T150405.000000000"

// Source yields lines one at a time. *lineframe.Queue satisfies it.
type Source interface {
	Take(ctx context.Context) (string, error)
}

// Config holds the parameters for a Writer.
type Config struct {
	// Source is drained by Run. Required.
	Source Source

	// Console receives the rendered lines. Nil disables console output.
	Console io.Writer

	// Color enables level colouring on Console.
	Color bool

	// Path is the log file. Opened in append mode; created if missing.
	// Empty disables file output.
	Path string

	// MaxBytes rotates the file once it would exceed this size. Zero
	// disables rotation.
	MaxBytes int64

	// Compression applies to rotated segments.
	Compression Compression

	// Clock names rotated segments. Defaults to the real clock.
	Clock clock.Clock

	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Writer is the log writer loop. Create with New, then call Run once.
type Writer struct {
	config  Config
	styler  *consoleStyler
	logger  *slog.Logger
	file    *os.File
	buffer  *bufio.Writer
	size    int64
	written uint64
}

// New creates a Writer. It does not open the file; Run does.
func New(config Config) *Writer {
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	writer := &Writer{config: config, logger: logger}
	if config.Console != nil {
		writer.styler = newConsoleStyler(config.Console, config.Color)
	}
	return writer
}

// Run drains the source until ctx is cancelled, returning nil, or
// until file output fails, returning the error. A console write
// failure is logged once and console output is disabled for the rest
// of the run.
func (w *Writer) Run(ctx context.Context) error {
	if w.config.Source == nil {
		return errors.New("logsink: no source configured")
	}
	if w.config.Path != "" {
		if err := w.open(); err != nil {
			return w.fail(err)
		}
		defer w.close()
	}

	for {
		line, err := w.config.Source.Take(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("logsink: reading source: %w", err)
		}
		w.writeConsole(line)
		if w.file != nil {
			if err := w.writeFile(Format(line)); err != nil {
				return w.fail(err)
			}
		}
		w.written++
	}
}

// Written returns the number of lines consumed so far. Only meaningful
// after Run returns.
func (w *Writer) Written() uint64 { return w.written }

func (w *Writer) writeConsole(line string) {
	if w.styler == nil {
		return
	}
	if _, err := io.WriteString(w.config.Console, w.styler.format(line)+"\n"); err != nil {
		w.logger.Warn("console write failed, disabling console output", "error", err)
		w.styler = nil
	}
}

func (w *Writer) writeFile(formatted string) error {
	record := formatted + "\n"
	if w.config.MaxBytes > 0 && w.size > 0 && w.size+int64(len(record)) > w.config.MaxBytes {
		if err := w.rotate(); err != nil {
			return err
		}
	}
	n, err := w.buffer.WriteString(record)
	w.size += int64(n)
	if err != nil {
		return fmt.Errorf("writing %s: %w", w.config.Path, err)
	}
	if err := w.buffer.Flush(); err != nil {
		return fmt.Errorf("flushing %s: %w", w.config.Path, err)
	}
	return nil
}

func (w *Writer) open() error {
	if dir := filepath.Dir(w.config.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating log directory: %w", err)
		}
	}
	file, err := os.OpenFile(w.config.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("stat log file: %w", err)
	}
	w.file = file
	w.buffer = bufio.NewWriter(file)
	w.size = info.Size()
	return nil
}

func (w *Writer) close() {
	if w.file == nil {
		return
	}
	w.buffer.Flush()
	w.file.Close()
	w.file = nil
}

// rotate renames the current file aside, compresses it, and reopens a
// fresh file at Path.
func (w *Writer) rotate() error {
	if err := w.buffer.Flush(); err != nil {
		return fmt.Errorf("flushing before rotation: %w", err)
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("closing before rotation: %w", err)
	}
	w.file = nil

	rotated := w.config.Path + "." + w.config.Clock.Now().UTC().Format(rotationLayout)
	for attempt := 1; exists(rotated) || exists(rotated+w.config.Compression.Extension()); attempt++ {
		rotated = fmt.Sprintf("%s.%s-%d", w.config.Path, w.config.Clock.Now().UTC().Format(rotationLayout), attempt)
	}
	if err := os.Rename(w.config.Path, rotated); err != nil {
		return fmt.Errorf("rotating log file: %w", err)
	}
	segment, err := compressFile(rotated, w.config.Compression)
	if err != nil {
		return err
	}
	w.logger.Info("log file rotated", "segment", segment)
	return w.open()
}

func (w *Writer) fail(err error) error {
	w.config.Metrics.LogWriterFailed()
	w.logger.Error("log writer stopped", "path", w.config.Path, "error", err)
	return err
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
