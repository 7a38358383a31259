// Copyright (c) 2025 Lazycat Apps
// Licensed under the MIT License. See LICENSE file in the project root for details.

package service

import (
	"context"
	"time"

	"github.com/lazycatapps/photo-cache/internal/models"
	"github.com/lazycatapps/photo-cache/internal/pkg/logger"
	"github.com/lazycatapps/photo-cache/internal/repository"
	"github.com/lazycatapps/photo-cache/internal/scheduler"
)

// Job names under which the prefetch worker is scheduled. Names are unique
// per job kind, so re-arming replaces rather than accumulates.
const (
	jobSyncNow      = "sync-now"
	jobSyncPeriodic = "sync-periodic"
)

// SettingsService owns the user preferences and keeps the background
// schedule consistent with them: every settings write is followed by a
// schedule reconcile, and ReconcileSchedule can be called at startup to
// restore the schedule from persisted state.
type SettingsService interface {
	Get(ctx context.Context) (models.Settings, error)
	Update(ctx context.Context, settings models.Settings) (models.Settings, error)
	Watch(ctx context.Context) <-chan models.Settings
	ReconcileSchedule(ctx context.Context) error
}

type settingsService struct {
	repo  repository.SettingsRepository
	sched *scheduler.Scheduler
	sync  SyncService
	log   logger.Logger
}

// NewSettingsService creates a new settings service instance.
func NewSettingsService(repo repository.SettingsRepository, sched *scheduler.Scheduler, sync SyncService, log logger.Logger) SettingsService {
	return &settingsService{
		repo:  repo,
		sched: sched,
		sync:  sync,
		log:   log,
	}
}

// Get returns the current persisted settings.
func (s *settingsService) Get(ctx context.Context) (models.Settings, error) {
	return s.repo.Get(ctx)
}

// Update persists the settings and reconciles the background schedule.
func (s *settingsService) Update(ctx context.Context, settings models.Settings) (models.Settings, error) {
	if err := s.repo.Update(ctx, settings); err != nil {
		return models.Settings{}, err
	}

	s.log.Info("Settings updated: syncEnabled=%v syncInterval=%dm", settings.SyncEnabled, settings.SyncInterval)
	s.reconcile(settings)
	return settings, nil
}

// Watch subscribes to settings changes.
func (s *settingsService) Watch(ctx context.Context) <-chan models.Settings {
	return s.repo.Watch(ctx)
}

// ReconcileSchedule reads the persisted settings and arms or cancels the
// prefetch jobs accordingly. Called once at startup.
func (s *settingsService) ReconcileSchedule(ctx context.Context) error {
	settings, err := s.repo.Get(ctx)
	if err != nil {
		return err
	}
	s.reconcile(settings)
	return nil
}

// reconcile maps the settings onto the desired job set. Enabled sync means
// one immediate catch-up run plus the periodic schedule; disabled sync
// cancels both.
func (s *settingsService) reconcile(settings models.Settings) {
	if !settings.SyncEnabled {
		s.sched.Reconcile(nil)
		return
	}

	s.sched.Reconcile([]scheduler.JobSpec{
		{
			// Replace: toggling sync on always queues a fresh catch-up run,
			// even if an earlier one is still waiting for connectivity.
			Name:   jobSyncNow,
			Policy: scheduler.PolicyReplace,
			Job: func(ctx context.Context) scheduler.Result {
				return s.sync.RunOnce(ctx, models.TriggerInitial)
			},
		},
		{
			// Update: an unchanged interval keeps the armed schedule and its
			// tick phase; a changed interval re-arms.
			Name:   jobSyncPeriodic,
			Every:  time.Duration(settings.SyncInterval) * time.Minute,
			Policy: scheduler.PolicyUpdate,
			Job: func(ctx context.Context) scheduler.Result {
				return s.sync.RunOnce(ctx, models.TriggerPeriodic)
			},
		},
	})
}
