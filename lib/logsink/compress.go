// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logsink

import (
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects how rotated log segments are stored.
type Compression string

const (
	// CompressionNone keeps rotated segments as plain text.
	CompressionNone Compression = "none"
	// CompressionZstd suits text logs well; the default.
	CompressionZstd Compression = "zstd"
	// CompressionLZ4 trades ratio for speed.
	CompressionLZ4 Compression = "lz4"
)

// ParseCompression validates a configured compression name. The empty
// string selects zstd.
func ParseCompression(name string) (Compression, error) {
	switch Compression(name) {
	case "", CompressionZstd:
		return CompressionZstd, nil
	case CompressionLZ4:
		return CompressionLZ4, nil
	case CompressionNone:
		return CompressionNone, nil
	default:
		return "", fmt.Errorf("unknown log compression %q (want none, zstd, or lz4)", name)
	}
}

// Extension returns the file suffix for compressed segments.
func (c Compression) Extension() string {
	switch c {
	case CompressionZstd:
		return ".zst"
	case CompressionLZ4:
		return ".lz4"
	default:
		return ""
	}
}

// compressFile writes source compressed to source+Extension and removes
// source. For CompressionNone it does nothing and returns source.
func compressFile(source string, compression Compression) (string, error) {
	if compression == CompressionNone || compression == "" {
		return source, nil
	}
	destination := source + compression.Extension()

	input, err := os.Open(source)
	if err != nil {
		return "", fmt.Errorf("opening rotated segment: %w", err)
	}
	defer input.Close()

	output, err := os.OpenFile(destination, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", destination, err)
	}

	var encoder io.WriteCloser
	switch compression {
	case CompressionZstd:
		encoder, err = zstd.NewWriter(output)
		if err != nil {
			output.Close()
			return "", fmt.Errorf("zstd encoder: %w", err)
		}
	case CompressionLZ4:
		encoder = lz4.NewWriter(output)
	default:
		output.Close()
		return "", fmt.Errorf("unsupported compression %q", compression)
	}

	if _, err := io.Copy(encoder, input); err != nil {
		encoder.Close()
		output.Close()
		return "", fmt.Errorf("compressing %s: %w", source, err)
	}
	if err := encoder.Close(); err != nil {
		output.Close()
		return "", fmt.Errorf("finishing %s: %w", destination, err)
	}
	if err := output.Close(); err != nil {
		return "", fmt.Errorf("closing %s: %w", destination, err)
	}
	if err := os.Remove(source); err != nil {
		return "", fmt.Errorf("removing %s: %w", source, err)
	}
	return destination, nil
}
