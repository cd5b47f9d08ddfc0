// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// storePoolSize covers one writer (the rollout loop) and concurrent
// readers from the CLI.
const storePoolSize = 2

const schema = `
CREATE TABLE IF NOT EXISTS audit (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp        INTEGER NOT NULL,
	session_id       TEXT NOT NULL DEFAULT '',
	device_id        TEXT NOT NULL,
	firmware_id      TEXT NOT NULL,
	firmware_version TEXT NOT NULL,
	firmware_path    TEXT NOT NULL,
	before_version   TEXT NOT NULL DEFAULT '',
	after_version    TEXT NOT NULL DEFAULT '',
	result           TEXT NOT NULL,
	job_id           TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS audit_device ON audit (device_id, id);
`

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA temp_store=MEMORY",
}

// Store mirrors audit records into SQLite.
type Store struct {
	pool   *sqlitex.Pool
	path   string
	logger *slog.Logger
}

// OpenStore opens (creating if needed) the database at path. Every
// pooled connection gets the standard pragmas and the schema.
func OpenStore(path string, logger *slog.Logger) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("audit store: path is required")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	pool, err := sqlitex.NewPool(path, sqlitex.PoolOptions{
		PoolSize:    storePoolSize,
		PrepareConn: prepareConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("audit store: opening %s: %w", path, err)
	}
	logger.Info("audit store opened", "path", path)
	return &Store{pool: pool, path: path, logger: logger}, nil
}

func prepareConnection(conn *sqlite.Conn) error {
	for _, pragma := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("audit store: %s: %w", pragma, err)
		}
	}
	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		return fmt.Errorf("audit store: schema: %w", err)
	}
	return nil
}

// Append inserts one record.
func (s *Store) Append(ctx context.Context, record Record) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("audit store: append: %w", err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn, `INSERT INTO audit
		(timestamp, session_id, device_id, firmware_id, firmware_version, firmware_path,
		 before_version, after_version, result, job_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{
			Args: []any{
				record.Timestamp.UnixNano(),
				record.SessionID,
				record.DeviceID,
				record.FirmwareID,
				record.FirmwareVersion,
				record.FirmwarePath,
				record.BeforeVersion,
				record.AfterVersion,
				record.Result,
				record.JobID,
			},
		})
	if err != nil {
		return fmt.Errorf("audit store: insert: %w", err)
	}
	return nil
}

// List returns up to limit records, newest first. An empty deviceID
// matches every device; a non-positive limit means no limit.
func (s *Store) List(ctx context.Context, deviceID string, limit int) ([]Record, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("audit store: list: %w", err)
	}
	defer s.pool.Put(conn)

	query := `SELECT timestamp, session_id, device_id, firmware_id, firmware_version,
		firmware_path, before_version, after_version, result, job_id FROM audit`
	var args []any
	if deviceID != "" {
		query += " WHERE device_id = ?"
		args = append(args, deviceID)
	}
	query += " ORDER BY id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	var records []Record
	err = sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			records = append(records, Record{
				Timestamp:       time.Unix(0, stmt.ColumnInt64(0)).UTC(),
				SessionID:       stmt.ColumnText(1),
				DeviceID:        stmt.ColumnText(2),
				FirmwareID:      stmt.ColumnText(3),
				FirmwareVersion: stmt.ColumnText(4),
				FirmwarePath:    stmt.ColumnText(5),
				BeforeVersion:   stmt.ColumnText(6),
				AfterVersion:    stmt.ColumnText(7),
				Result:          stmt.ColumnText(8),
				JobID:           stmt.ColumnText(9),
			})
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("audit store: query: %w", err)
	}
	return records, nil
}

// Close closes the pool.
func (s *Store) Close() error {
	if err := s.pool.Close(); err != nil {
		return fmt.Errorf("audit store: closing %s: %w", s.path, err)
	}
	s.logger.Info("audit store closed", "path", s.path)
	return nil
}
