// Copyright (c) 2025 Lazycat Apps
// Licensed under the MIT License. See LICENSE file in the project root for details.

package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/lazycatapps/photo-cache/internal/models"
)

func newTestSettingsRepo(t *testing.T) *SQLiteSettingsRepository {
	t.Helper()

	db, err := OpenDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return NewSQLiteSettingsRepository(db)
}

func TestSQLiteSettingsRepository_Defaults(t *testing.T) {
	repo := newTestSettingsRepo(t)

	settings, err := repo.Get(context.Background())
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if settings.SyncEnabled {
		t.Error("Expected sync disabled by default")
	}
	if settings.SyncInterval != models.DefaultSyncInterval {
		t.Errorf("Expected default interval %d, got %d", models.DefaultSyncInterval, settings.SyncInterval)
	}
}

func TestSQLiteSettingsRepository_UpdateAndGet(t *testing.T) {
	repo := newTestSettingsRepo(t)
	ctx := context.Background()

	want := models.Settings{SyncEnabled: true, SyncInterval: 30}
	if err := repo.Update(ctx, want); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	got, err := repo.Get(ctx)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if got != want {
		t.Errorf("Expected %+v, got %+v", want, got)
	}
}

func TestSQLiteSettingsRepository_Watch(t *testing.T) {
	repo := newTestSettingsRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := repo.Watch(ctx)

	// First emission is the current state.
	select {
	case settings := <-ch:
		if settings.SyncEnabled {
			t.Error("Expected initial sync disabled")
		}
	case <-time.After(1 * time.Second):
		t.Fatal("Timeout waiting for initial emission")
	}

	repo.Update(ctx, models.Settings{SyncEnabled: true, SyncInterval: 5})

	select {
	case settings := <-ch:
		if !settings.SyncEnabled || settings.SyncInterval != 5 {
			t.Errorf("Expected enabled with interval 5, got %+v", settings)
		}
	case <-time.After(1 * time.Second):
		t.Fatal("Timeout waiting for update emission")
	}
}
