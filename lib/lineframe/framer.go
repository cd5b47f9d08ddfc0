// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package lineframe

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"

	"github.com/charmbracelet/x/ansi"

	"github.com/suraj-bhalerao/4G-FOTA-ACTIVITY/lib/clock"
	"github.com/suraj-bhalerao/4G-FOTA-ACTIVITY/lib/metrics"
)

// DefaultMaxLineBytes bounds how much unterminated input the framer
// holds before it force-breaks a line.
const DefaultMaxLineBytes = 64 * 1024

// FramerConfig configures a Framer.
type FramerConfig struct {
	// Sinks receive every framed line, in order. Required.
	Sinks []Sink

	// Clock stamps each line. Defaults to clock.Real().
	Clock clock.Clock

	// MaxLineBytes force-breaks a line that grows past this many bytes
	// without a terminator. Defaults to DefaultMaxLineBytes.
	MaxLineBytes int

	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Framer assembles raw chunks into framed lines. Write may be called
// from any goroutine; all buffer mutation happens under one mutex and
// nothing inside it blocks.
type Framer struct {
	mu     sync.Mutex
	buffer []byte

	sinks        []Sink
	clock        clock.Clock
	maxLineBytes int
	logger       *slog.Logger
	metrics      *metrics.Metrics
}

// NewFramer creates a framer delivering to cfg.Sinks.
func NewFramer(cfg FramerConfig) *Framer {
	framer := &Framer{
		sinks:        cfg.Sinks,
		clock:        cfg.Clock,
		maxLineBytes: cfg.MaxLineBytes,
		logger:       cfg.Logger,
		metrics:      cfg.Metrics,
	}
	if framer.clock == nil {
		framer.clock = clock.Real()
	}
	if framer.maxLineBytes <= 0 {
		framer.maxLineBytes = DefaultMaxLineBytes
	}
	if framer.logger == nil {
		framer.logger = slog.New(slog.DiscardHandler)
	}
	return framer
}

// Write appends a raw chunk and emits every line it completes. It
// always consumes the whole chunk, so a Framer can be the destination
// of io.Copy.
func (f *Framer) Write(chunk []byte) (int, error) {
	if len(chunk) == 0 {
		return 0, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.buffer = append(f.buffer, chunk...)
	for {
		end, skip := f.nextBreak()
		if end < 0 {
			break
		}
		raw := string(f.buffer[:end])
		f.buffer = f.buffer[end+skip:]
		f.emit(raw)
	}
	// Keep the retained tail from pinning a large backing array.
	if len(f.buffer) == 0 {
		f.buffer = nil
	}
	return len(chunk), nil
}

// Pending returns the number of buffered bytes not yet terminated.
func (f *Framer) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.buffer)
}

// nextBreak locates the next line boundary in the buffer. It returns
// the line length and how many terminator bytes follow it, or -1 when
// no complete line is buffered. CR and LF each end a line; the empty
// line a CRLF pair produces is discarded by emit, so CRLF behaves as a
// single terminator no matter where a chunk boundary falls.
func (f *Framer) nextBreak() (int, int) {
	index := bytes.IndexAny(f.buffer, "\r\n")
	if index >= 0 && index <= f.maxLineBytes {
		return index, 1
	}
	if len(f.buffer) >= f.maxLineBytes {
		f.logger.Warn("line exceeds maximum length, breaking",
			"max_bytes", f.maxLineBytes,
		)
		return f.maxLineBytes, 0
	}
	return -1, 0
}

// emit cleans one raw line and offers it to every sink. Caller holds
// f.mu.
func (f *Framer) emit(raw string) {
	cleaned := strings.TrimSpace(ansi.Strip(strings.ToValidUTF8(raw, "")))
	if cleaned == "" {
		return
	}
	line := FormatTimestamp(f.clock.Now()) + " " + cleaned
	f.metrics.LineFramed()

	for _, sink := range f.sinks {
		if sink.Offer(line) {
			continue
		}
		f.metrics.LineDropped(sink.Name())
		f.logger.Warn("queue full, dropping line",
			"sink", sink.Name(),
			"line", cleaned,
		)
	}
}
