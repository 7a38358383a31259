// Copyright (c) 2025 Lazycat Apps
// Licensed under the MIT License. See LICENSE file in the project root for details.

package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/lazycatapps/photo-cache/internal/models"
	"github.com/lazycatapps/photo-cache/internal/pkg/logger"
	"github.com/lazycatapps/photo-cache/internal/repository"
	"github.com/lazycatapps/photo-cache/internal/scheduler"
)

// stubSync satisfies SyncService without doing any work.
type stubSync struct{}

func (stubSync) CreateRun(trigger string) (string, error) { return "run-id", nil }
func (stubSync) ExecuteRun(ctx context.Context, runID string) scheduler.Result {
	return scheduler.ResultSuccess
}
func (stubSync) RunOnce(ctx context.Context, trigger string) scheduler.Result {
	return scheduler.ResultSuccess
}
func (stubSync) GetRun(id string) (*models.SyncRun, error) { return nil, repository.ErrRunNotFound }
func (stubSync) ListRuns(req *models.RunListRequest) (*models.RunListResponse, error) {
	return &models.RunListResponse{}, nil
}

func newSettingsFixture(t *testing.T) (SettingsService, *scheduler.Scheduler) {
	t.Helper()

	db, err := repository.OpenDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	log := logger.New()
	sched := scheduler.New(scheduler.AlwaysOnline{}, 10*time.Millisecond, log)
	t.Cleanup(sched.Stop)

	repo := repository.NewSQLiteSettingsRepository(db)
	return NewSettingsService(repo, sched, stubSync{}, log), sched
}

func TestSettingsService_EnableArmsSchedule(t *testing.T) {
	svc, sched := newSettingsFixture(t)
	ctx := context.Background()

	_, err := svc.Update(ctx, models.Settings{SyncEnabled: true, SyncInterval: 15})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if !sched.Armed(jobSyncPeriodic) {
		t.Error("Expected periodic job armed after enabling sync")
	}
	if got := sched.ArmedInterval(jobSyncPeriodic); got != 15*time.Minute {
		t.Errorf("Expected 15m interval, got %s", got)
	}
}

func TestSettingsService_DisableCancelsSchedule(t *testing.T) {
	svc, sched := newSettingsFixture(t)
	ctx := context.Background()

	svc.Update(ctx, models.Settings{SyncEnabled: true, SyncInterval: 15})
	svc.Update(ctx, models.Settings{SyncEnabled: false, SyncInterval: 15})

	if sched.Armed(jobSyncPeriodic) {
		t.Error("Expected periodic job cancelled after disabling sync")
	}
	if sched.Armed(jobSyncNow) {
		t.Error("Expected catch-up job cancelled after disabling sync")
	}
}

func TestSettingsService_IntervalChangeRearms(t *testing.T) {
	svc, sched := newSettingsFixture(t)
	ctx := context.Background()

	svc.Update(ctx, models.Settings{SyncEnabled: true, SyncInterval: 15})
	svc.Update(ctx, models.Settings{SyncEnabled: true, SyncInterval: 60})

	if got := sched.ArmedInterval(jobSyncPeriodic); got != 60*time.Minute {
		t.Errorf("Expected 60m interval after change, got %s", got)
	}
}

func TestSettingsService_ReconcileScheduleFromPersistedState(t *testing.T) {
	svc, sched := newSettingsFixture(t)
	ctx := context.Background()

	// Nothing persisted: defaults keep sync disabled.
	if err := svc.ReconcileSchedule(ctx); err != nil {
		t.Fatalf("ReconcileSchedule failed: %v", err)
	}
	if sched.Armed(jobSyncPeriodic) {
		t.Error("Expected no jobs armed for default settings")
	}

	svc.Update(ctx, models.Settings{SyncEnabled: true, SyncInterval: 30})

	// A fresh reconcile from persisted state keeps the schedule armed.
	if err := svc.ReconcileSchedule(ctx); err != nil {
		t.Fatalf("ReconcileSchedule failed: %v", err)
	}
	if got := sched.ArmedInterval(jobSyncPeriodic); got != 30*time.Minute {
		t.Errorf("Expected 30m interval restored, got %s", got)
	}
}
