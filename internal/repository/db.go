// Copyright (c) 2025 Lazycat Apps
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package repository provides the data access layer: the SQLite-backed
// image and settings stores and the in-memory sync run store.
package repository

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS images (
	id            TEXT PRIMARY KEY,
	regular_url   TEXT NOT NULL,
	thumb_url     TEXT NOT NULL,
	description   TEXT NOT NULL DEFAULT '',
	user_name     TEXT NOT NULL DEFAULT '',
	user_username TEXT NOT NULL DEFAULT '',
	likes         INTEGER NOT NULL DEFAULT 0,
	created_at    TEXT NOT NULL DEFAULT '',
	is_favorite   INTEGER NOT NULL DEFAULT 0,
	is_downloaded INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_images_favorite   ON images (is_favorite);
CREATE INDEX IF NOT EXISTS idx_images_downloaded ON images (is_downloaded);

CREATE TABLE IF NOT EXISTS settings (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// OpenDB opens (or creates) the SQLite database at path, enables WAL mode,
// and applies the schema idempotently.
func OpenDB(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Enable WAL mode for better concurrency.
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set wal mode: %w", err)
	}

	// Single writer to avoid SQLITE_BUSY under WAL.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}
