// Copyright (c) 2025 Lazycat Apps
// Licensed under the MIT License. See LICENSE file in the project root for details.

package repository

import (
	"testing"

	"github.com/lazycatapps/photo-cache/internal/models"
)

func TestInMemoryRunRepository_Create(t *testing.T) {
	repo := NewInMemoryRunRepository()
	run := models.NewSyncRun("test-id", models.TriggerManual)

	err := repo.Create(run)
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}

	retrieved, err := repo.Get("test-id")
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}

	if retrieved.ID != "test-id" {
		t.Errorf("Expected ID 'test-id', got '%s'", retrieved.ID)
	}
}

func TestInMemoryRunRepository_Get_NotFound(t *testing.T) {
	repo := NewInMemoryRunRepository()

	_, err := repo.Get("non-existent")
	if err != ErrRunNotFound {
		t.Errorf("Expected ErrRunNotFound, got %v", err)
	}
}

func TestInMemoryRunRepository_Update(t *testing.T) {
	repo := NewInMemoryRunRepository()
	run := models.NewSyncRun("test-id", models.TriggerManual)

	repo.Create(run)

	run.Status = models.RunCompleted
	run.Message = "Done"
	run.CachedCount = 7

	err := repo.Update(run)
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}

	retrieved, _ := repo.Get("test-id")
	if retrieved.Status != models.RunCompleted {
		t.Errorf("Expected status 'completed', got '%s'", retrieved.Status)
	}
	if retrieved.CachedCount != 7 {
		t.Errorf("Expected cached count 7, got %d", retrieved.CachedCount)
	}
}

func TestInMemoryRunRepository_Delete(t *testing.T) {
	repo := NewInMemoryRunRepository()
	run := models.NewSyncRun("test-id", models.TriggerManual)

	repo.Create(run)

	err := repo.Delete("test-id")
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}

	_, err = repo.Get("test-id")
	if err != ErrRunNotFound {
		t.Errorf("Expected ErrRunNotFound after delete, got %v", err)
	}
}

func TestInMemoryRunRepository_List(t *testing.T) {
	repo := NewInMemoryRunRepository()

	run1 := models.NewSyncRun("id1", models.TriggerManual)
	run2 := models.NewSyncRun("id2", models.TriggerPeriodic)

	repo.Create(run1)
	repo.Create(run2)

	runs, err := repo.List()
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}

	if len(runs) != 2 {
		t.Errorf("Expected 2 runs, got %d", len(runs))
	}
}
