// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package serialport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strings"
)

// DefaultBaud is used when Config.Baud is zero.
const DefaultBaud = 115200

// readBufferSize bounds each chunk handed to the framer.
const readBufferSize = 4096

// Config describes the transport to open.
type Config struct {
	// Device is a tty path or a tcp://host:port bridge address.
	Device string

	// Baud is ignored for tcp:// bridges.
	Baud int
}

// Open opens the transport. A failure here is fatal to startup: the
// caller must not spawn any pipeline loops.
func Open(ctx context.Context, config Config) (io.ReadWriteCloser, error) {
	if config.Device == "" {
		return nil, errors.New("serialport: no device configured")
	}
	if address, ok := strings.CutPrefix(config.Device, "tcp://"); ok {
		var dialer net.Dialer
		conn, err := dialer.DialContext(ctx, "tcp", address)
		if err != nil {
			return nil, fmt.Errorf("serialport: dialing %s: %w", address, err)
		}
		return conn, nil
	}
	baud := config.Baud
	if baud == 0 {
		baud = DefaultBaud
	}
	port, err := openDevice(config.Device, baud)
	if err != nil {
		return nil, fmt.Errorf("serialport: opening %s: %w", config.Device, err)
	}
	return port, nil
}

// Pump copies chunks from source to sink until source reports EOF or
// is closed. Closing source from another goroutine is how the caller
// detaches the transport; that path returns nil. Each chunk is handed
// to sink as read, with no framing.
func Pump(source io.Reader, sink io.Writer, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	buffer := make([]byte, readBufferSize)
	for {
		n, err := source.Read(buffer)
		if n > 0 {
			if _, writeErr := sink.Write(buffer[:n]); writeErr != nil {
				return fmt.Errorf("serialport: delivering chunk: %w", writeErr)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) || errors.Is(err, os.ErrClosed) || errors.Is(err, net.ErrClosed) {
				logger.Debug("transport detached", "reason", err)
				return nil
			}
			return fmt.Errorf("serialport: reading: %w", err)
		}
	}
}
