// Package storage keeps the optional upload ledger: one row per delivered
// asset, recorded after the remote store accepted it. The ledger is an audit
// trail only; nothing reads it back during request handling.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// OpenSQLite opens (and creates if needed) the SQLite database at path and
// ensures the ledger table exists.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}
	if err := validateSQLiteFilesystem(path); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA busy_timeout = 5000;",
	} {
		if _, err := db.ExecContext(pctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}
	if err := BootstrapSQLite(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// BootstrapSQLite creates tables/indexes if missing.
func BootstrapSQLite(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS asset_ledger (
  id          INTEGER PRIMARY KEY AUTOINCREMENT,
  event_id    TEXT,
  message_id  TEXT NOT NULL,
  user_id     TEXT,
  filename    TEXT NOT NULL,
  path        TEXT NOT NULL,
  url         TEXT NOT NULL,
  revision    TEXT,
  digest      TEXT NOT NULL,
  bytes       INTEGER NOT NULL,
  width       INTEGER NOT NULL,
  height      INTEGER NOT NULL,
  redelivery  INTEGER NOT NULL DEFAULT 0,
  created_at  TEXT NOT NULL
);`,
		`CREATE INDEX IF NOT EXISTS asset_ledger_created_at_idx ON asset_ledger(created_at);`,
		`CREATE INDEX IF NOT EXISTS asset_ledger_message_id_idx ON asset_ledger(message_id);`,
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap sqlite: %w", err)
		}
	}
	return nil
}
