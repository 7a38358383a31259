// Copyright (c) 2025 Lazycat Apps
// Licensed under the MIT License. See LICENSE file in the project root for details.

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/lazycatapps/photo-cache/internal/catalog"
	"github.com/lazycatapps/photo-cache/internal/imagecache"
	"github.com/lazycatapps/photo-cache/internal/models"
	"github.com/lazycatapps/photo-cache/internal/pkg/logger"
	"github.com/lazycatapps/photo-cache/internal/repository"
	"github.com/lazycatapps/photo-cache/internal/scheduler"

	"github.com/google/uuid"
)

// SyncService runs the background prefetch worker: it pins every image
// known to the store but not yet downloaded, recording each invocation as
// a SyncRun with streamable logs.
type SyncService interface {
	// CreateRun registers a new pending run and returns its id.
	CreateRun(trigger string) (string, error)
	// ExecuteRun performs the prefetch pass for an already-created run.
	ExecuteRun(ctx context.Context, runID string) scheduler.Result
	// RunOnce creates and executes a run in one step. Used by scheduled jobs.
	RunOnce(ctx context.Context, trigger string) scheduler.Result
	GetRun(id string) (*models.SyncRun, error)
	ListRuns(req *models.RunListRequest) (*models.RunListResponse, error)
}

// syncService implements the SyncService interface.
type syncService struct {
	runs       repository.RunRepository
	images     repository.ImageRepository
	client     catalog.Client
	cache      imagecache.Cache
	perPage    int
	fetchFirst bool // Refresh catalog page 1 before prefetching
	logger     logger.Logger
}

// NewSyncService creates a new SyncService instance. fetchFirst enables a
// catalog page refresh at the start of each run, so a run on a fresh store
// has something to prefetch.
func NewSyncService(
	runs repository.RunRepository,
	images repository.ImageRepository,
	client catalog.Client,
	cache imagecache.Cache,
	perPage int,
	fetchFirst bool,
	log logger.Logger,
) SyncService {
	return &syncService{
		runs:       runs,
		images:     images,
		client:     client,
		cache:      cache,
		perPage:    perPage,
		fetchFirst: fetchFirst,
		logger:     log,
	}
}

// CreateRun creates a new sync run record in the repository.
func (s *syncService) CreateRun(trigger string) (string, error) {
	runID := uuid.New().String()

	run := models.NewSyncRun(runID, trigger)
	if err := s.runs.Create(run); err != nil {
		return "", fmt.Errorf("failed to create run: %w", err)
	}
	return runID, nil
}

// GetRun retrieves a run by ID from the repository.
func (s *syncService) GetRun(id string) (*models.SyncRun, error) {
	return s.runs.Get(id)
}

// RunOnce creates and executes a run under the given trigger.
func (s *syncService) RunOnce(ctx context.Context, trigger string) scheduler.Result {
	runID, err := s.CreateRun(trigger)
	if err != nil {
		s.logger.Error("Failed to create %s run: %v", trigger, err)
		return scheduler.ResultRetry
	}
	return s.ExecuteRun(ctx, runID)
}

// ExecuteRun walks the undownloaded snapshot and pins each image's regular
// and thumbnail bytes to disk. A single image failing is logged and
// absorbed; the run still completes. Failure to obtain the snapshot itself
// fails the run and requests a retry.
func (s *syncService) ExecuteRun(ctx context.Context, runID string) scheduler.Result {
	run, err := s.runs.Get(runID)
	if err != nil {
		s.logger.Error("[%s] Failed to get run: %v", runID, err)
		return scheduler.ResultRetry
	}

	run.Status = models.RunRunning
	run.Message = "Prefetching images..."
	if err := s.runs.Update(run); err != nil {
		s.logger.Error("[%s] Failed to update run: %v", runID, err)
	}

	run.AddLog(fmt.Sprintf("Run started at %s (trigger: %s)", run.StartTime.Format(time.RFC3339), run.Trigger))
	s.logger.Info("[%s] Starting prefetch run (trigger: %s)", runID, run.Trigger)

	if s.fetchFirst {
		s.refreshCatalogPage(ctx, run)
	}

	pending, err := s.images.ListUndownloaded(ctx)
	if err != nil {
		return s.failRun(run, "Failed to list undownloaded images", err)
	}
	run.AddLog(fmt.Sprintf("%d images pending download", len(pending)))

	for _, rec := range pending {
		if ctx.Err() != nil {
			return s.failRun(run, "Run cancelled", ctx.Err())
		}
		if err := s.prefetchImage(ctx, rec); err != nil {
			// Absorb and continue: one broken image must not starve the rest.
			run.FailedCount++
			run.AddLog(fmt.Sprintf("Failed to cache %s: %v", rec.ID, err))
			s.logger.Error("[%s] Failed to cache %s: %v", runID, rec.ID, err)
			continue
		}
		run.CachedCount++
		run.AddLog(fmt.Sprintf("Cached %s", rec.ID))
	}

	endTime := time.Now()
	run.EndTime = &endTime
	run.Status = models.RunCompleted
	run.Message = fmt.Sprintf("Cached %d images, %d failed", run.CachedCount, run.FailedCount)
	run.AddLog(fmt.Sprintf("Run completed at %s: %s", endTime.Format(time.RFC3339), run.Message))

	run.CloseAllLogListeners()

	if err := s.runs.Update(run); err != nil {
		s.logger.Error("[%s] Failed to update run status: %v", runID, err)
	}

	s.logger.Info("[%s] Prefetch run completed: %s", runID, run.Message)
	return scheduler.ResultSuccess
}

// refreshCatalogPage pulls the first catalog page into the store so the
// prefetch loop below sees fresh entries. Failures are absorbed: the run
// falls back to prefetching whatever the store already holds.
func (s *syncService) refreshCatalogPage(ctx context.Context, run *models.SyncRun) {
	photos, err := s.client.ListPhotos(ctx, 1, s.perPage)
	if err != nil {
		run.AddLog(fmt.Sprintf("Catalog refresh skipped: %v", err))
		s.logger.Info("[%s] Catalog refresh skipped: %v", run.ID, err)
		return
	}

	records := make([]models.ImageRecord, 0, len(photos))
	for _, photo := range photos {
		records = append(records, toImageRecord(photo))
	}
	if err := s.images.UpsertImages(ctx, records); err != nil {
		run.AddLog(fmt.Sprintf("Catalog refresh failed to store: %v", err))
		s.logger.Error("[%s] Catalog refresh failed to store: %v", run.ID, err)
		return
	}
	run.AddLog(fmt.Sprintf("Refreshed %d catalog entries", len(records)))
}

// prefetchImage pins both resolutions of one image and marks the record
// downloaded. The downloaded flag is only set after both fetches succeed.
func (s *syncService) prefetchImage(ctx context.Context, rec models.ImageRecord) error {
	if err := s.cache.Execute(ctx, imagecache.Request{URL: rec.RegularURL, DiskCache: true}); err != nil {
		return err
	}
	if rec.ThumbURL != "" {
		if err := s.cache.Execute(ctx, imagecache.Request{URL: rec.ThumbURL, DiskCache: true}); err != nil {
			return err
		}
	}
	return s.images.MarkDownloaded(ctx, rec.ID)
}

// failRun finalizes a run that could not reach the prefetch loop and
// requests a delayed retry from the scheduler.
func (s *syncService) failRun(run *models.SyncRun, message string, err error) scheduler.Result {
	run.AddLog(fmt.Sprintf("Error: %v", err))
	run.Status = models.RunFailed
	run.Message = message
	endTime := time.Now()
	run.EndTime = &endTime

	run.CloseAllLogListeners()

	if updateErr := s.runs.Update(run); updateErr != nil {
		s.logger.Error("[%s] Failed to update run: %v", run.ID, updateErr)
	}

	s.logger.Error("[%s] %s: %v", run.ID, message, err)
	return scheduler.ResultRetry
}

// ListRuns retrieves a paginated and filtered list of sync runs, newest
// first.
func (s *syncService) ListRuns(req *models.RunListRequest) (*models.RunListResponse, error) {
	runs, err := s.runs.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	// Filter by status if specified
	filtered := runs
	if req.Status != "" {
		filtered = []*models.SyncRun{}
		for _, run := range runs {
			if run.Status == req.Status {
				filtered = append(filtered, run)
			}
		}
	}

	sortRuns(filtered)

	// Pagination
	total := len(filtered)
	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	pagedRuns := filtered[start:end]

	summaries := make([]*models.RunSummary, len(pagedRuns))
	for i, run := range pagedRuns {
		summaries[i] = &models.RunSummary{
			ID:          run.ID,
			Trigger:     run.Trigger,
			Status:      run.Status,
			Message:     run.Message,
			CachedCount: run.CachedCount,
			FailedCount: run.FailedCount,
			StartTime:   run.StartTime,
			EndTime:     run.EndTime,
		}
	}

	return &models.RunListResponse{
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		Runs:     summaries,
	}, nil
}

// sortRuns sorts runs in-place by start time, newest first. Bubble sort is
// sufficient for the in-memory run history.
func sortRuns(runs []*models.SyncRun) {
	for i := 0; i < len(runs)-1; i++ {
		for j := 0; j < len(runs)-i-1; j++ {
			if runs[j].StartTime.Before(runs[j+1].StartTime) {
				runs[j], runs[j+1] = runs[j+1], runs[j]
			}
		}
	}
}
