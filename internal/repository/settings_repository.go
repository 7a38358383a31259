// Copyright (c) 2025 Lazycat Apps
// Licensed under the MIT License. See LICENSE file in the project root for details.

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"sync"

	"github.com/lazycatapps/photo-cache/internal/models"
)

// Settings keys in the settings table.
const (
	settingSyncEnabled  = "sync_enabled"
	settingSyncInterval = "sync_interval_minutes"
)

// SettingsRepository defines the durable user preference store. Watch
// returns a live channel that emits the current settings immediately and a
// fresh value after every update; it is closed when ctx is cancelled.
type SettingsRepository interface {
	Get(ctx context.Context) (models.Settings, error)
	Update(ctx context.Context, settings models.Settings) error
	Watch(ctx context.Context) <-chan models.Settings
}

// SQLiteSettingsRepository implements SettingsRepository on the shared
// SQLite database using a key/value table.
type SQLiteSettingsRepository struct {
	db *sql.DB

	watchMu     sync.Mutex
	nextWatchID int64
	watches     map[int64]chan models.Settings
}

// NewSQLiteSettingsRepository creates a settings repository over an open database.
func NewSQLiteSettingsRepository(db *sql.DB) *SQLiteSettingsRepository {
	return &SQLiteSettingsRepository{
		db:      db,
		watches: make(map[int64]chan models.Settings),
	}
}

// Get returns the persisted settings, falling back to defaults for any
// missing or malformed key.
func (r *SQLiteSettingsRepository) Get(ctx context.Context) (models.Settings, error) {
	settings := models.DefaultSettings()

	rows, err := r.db.QueryContext(ctx, "SELECT key, value FROM settings")
	if err != nil {
		return settings, fmt.Errorf("query settings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return settings, fmt.Errorf("scan setting row: %w", err)
		}
		switch key {
		case settingSyncEnabled:
			settings.SyncEnabled = value == "1"
		case settingSyncInterval:
			if minutes, err := strconv.Atoi(value); err == nil && minutes > 0 {
				settings.SyncInterval = minutes
			}
		}
	}
	return settings, rows.Err()
}

// Update persists the settings transactionally and notifies watchers.
func (r *SQLiteSettingsRepository) Update(ctx context.Context, settings models.Settings) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin settings update: %w", err)
	}

	const q = "INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value"

	enabled := "0"
	if settings.SyncEnabled {
		enabled = "1"
	}
	if _, err := tx.ExecContext(ctx, q, settingSyncEnabled, enabled); err != nil {
		tx.Rollback()
		return fmt.Errorf("update %s: %w", settingSyncEnabled, err)
	}
	if _, err := tx.ExecContext(ctx, q, settingSyncInterval, strconv.Itoa(settings.SyncInterval)); err != nil {
		tx.Rollback()
		return fmt.Errorf("update %s: %w", settingSyncInterval, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit settings update: %w", err)
	}

	r.watchMu.Lock()
	for _, ch := range r.watches {
		select {
		case ch <- settings:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- settings:
			default:
			}
		}
	}
	r.watchMu.Unlock()

	return nil
}

// Watch subscribes to settings changes.
func (r *SQLiteSettingsRepository) Watch(ctx context.Context) <-chan models.Settings {
	ch := make(chan models.Settings, 1)

	r.watchMu.Lock()
	r.nextWatchID++
	key := r.nextWatchID
	r.watches[key] = ch
	if settings, err := r.Get(ctx); err == nil {
		ch <- settings
	}
	r.watchMu.Unlock()

	go func() {
		<-ctx.Done()
		r.watchMu.Lock()
		if _, ok := r.watches[key]; ok {
			delete(r.watches, key)
			close(ch)
		}
		r.watchMu.Unlock()
	}()

	return ch
}
