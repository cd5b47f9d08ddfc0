// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package logsink drains the framer's logging queue and writes each
// line twice: to the console and to an append-only log file.
//
// Lines are re-parsed into the usual device log shape
//
//	<timestamp> [LEVEL:] [[tag]] message
//
// and rendered as left-justified fixed-width columns (timestamp 27,
// level 6, bracketed tag 12) followed by the message. Fields longer
// than their column are truncated, never wrapped. On a terminal the
// level column is coloured with lipgloss; the file always gets plain
// text.
//
// The file is flushed after every line. When MaxBytes is set the file
// is rotated once it would grow past the limit, and the rotated
// segment is compressed with zstd or lz4.
//
// A file I/O failure ends [Writer.Run] with an error. Nothing else in
// the pipeline depends on the writer, so the tracker and the rollout
// loop keep running.
package logsink
