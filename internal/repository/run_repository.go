// Copyright (c) 2025 Lazycat Apps
// Licensed under the MIT License. See LICENSE file in the project root for details.

package repository

import (
	"errors"
	"sync"

	"github.com/lazycatapps/photo-cache/internal/models"
)

var (
	// ErrRunNotFound is returned when a requested sync run does not exist.
	ErrRunNotFound = errors.New("sync run not found")
)

// RunRepository defines the interface for sync run persistence operations.
type RunRepository interface {
	Create(run *models.SyncRun) error
	Get(id string) (*models.SyncRun, error)
	Update(run *models.SyncRun) error
	Delete(id string) error
	List() ([]*models.SyncRun, error)
}

// InMemoryRunRepository implements RunRepository using in-memory storage.
// It uses a map for storage and a RWMutex for thread-safe access.
// Note: Run history is lost when the process restarts.
type InMemoryRunRepository struct {
	runs map[string]*models.SyncRun
	mu   sync.RWMutex
}

// NewInMemoryRunRepository creates a new in-memory run repository.
func NewInMemoryRunRepository() *InMemoryRunRepository {
	return &InMemoryRunRepository{
		runs: make(map[string]*models.SyncRun),
	}
}

// Create adds a new run to the repository.
func (r *InMemoryRunRepository) Create(run *models.SyncRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.runs[run.ID] = run
	return nil
}

// Get retrieves a run by ID.
func (r *InMemoryRunRepository) Get(id string) (*models.SyncRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	run, exists := r.runs[id]
	if !exists {
		return nil, ErrRunNotFound
	}
	return run, nil
}

// Update modifies an existing run.
func (r *InMemoryRunRepository) Update(run *models.SyncRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.runs[run.ID]; !exists {
		return ErrRunNotFound
	}
	r.runs[run.ID] = run
	return nil
}

// Delete removes a run from the repository.
func (r *InMemoryRunRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.runs[id]; !exists {
		return ErrRunNotFound
	}
	delete(r.runs, id)
	return nil
}

// List returns all runs in the repository.
func (r *InMemoryRunRepository) List() ([]*models.SyncRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	runs := make([]*models.SyncRun, 0, len(r.runs))
	for _, run := range r.runs {
		runs = append(runs, run)
	}
	return runs, nil
}
