// Copyright (c) 2025 Lazycat Apps
// Licensed under the MIT License. See LICENSE file in the project root for details.

package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/lazycatapps/photo-cache/internal/models"
	apperrors "github.com/lazycatapps/photo-cache/internal/pkg/errors"
	"github.com/lazycatapps/photo-cache/internal/pkg/logger"
	"github.com/lazycatapps/photo-cache/internal/repository"
	"github.com/lazycatapps/photo-cache/internal/service"

	"github.com/gin-gonic/gin"
)

// SyncHandler handles HTTP requests related to background prefetch runs.
type SyncHandler struct {
	syncService service.SyncService
	logger      logger.Logger
}

// NewSyncHandler creates a new SyncHandler instance.
func NewSyncHandler(syncService service.SyncService, logger logger.Logger) *SyncHandler {
	return &SyncHandler{
		syncService: syncService,
		logger:      logger,
	}
}

// handleError processes errors and sends appropriate HTTP responses.
// It checks if the error is an AppError with status code, otherwise returns 500.
func (h *SyncHandler) handleError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		c.JSON(appErr.StatusCode, gin.H{"error": appErr.Message})
	} else {
		h.logger.Error("Unexpected error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// SyncNow starts a manual prefetch run and returns its id. The run
// executes asynchronously; progress is available via GetRun and StreamLogs.
//
// Response (200 OK):
//
//	{"message": "Sync started", "id": "run-uuid"}
//
// Error responses: 500 (server error)
func (h *SyncHandler) SyncNow(c *gin.Context) {
	runID, err := h.syncService.CreateRun(models.TriggerManual)
	if err != nil {
		h.logger.Error("Failed to create sync run: %v", err)
		h.handleError(c, apperrors.WrapInternal(err, "Failed to create sync run"))
		return
	}

	// Execute asynchronously; the run is detached from the request context.
	go h.syncService.ExecuteRun(context.Background(), runID)

	h.logger.Info("Manual sync run created: %s", runID)

	c.JSON(http.StatusOK, gin.H{
		"message": "Sync started",
		"id":      runID,
	})
}

// GetRun retrieves the status and details of a prefetch run by ID.
//
// Path parameter:
//   - id: Run UUID
//
// Response (200 OK): Run object with status, counters, and timestamps
// Error responses: 404 (run not found), 500 (server error)
func (h *SyncHandler) GetRun(c *gin.Context) {
	id := c.Param("id")

	run, err := h.syncService.GetRun(id)
	if err != nil {
		if errors.Is(err, repository.ErrRunNotFound) {
			h.handleError(c, apperrors.WrapRunNotFound(err))
			return
		}
		h.logger.Error("Failed to get run %s: %v", id, err)
		h.handleError(c, apperrors.WrapInternal(err, "Failed to get run"))
		return
	}

	c.JSON(http.StatusOK, run)
}

// StreamLogs streams run logs to the client using Server-Sent Events (SSE).
// It sends historical logs first, then streams new logs in real-time until
// the run completes.
//
// Path parameter:
//   - id: Run UUID
//
// Response format: SSE (data: <log line>\n\n)
// Error responses: 404 (run not found), 500 (server error)
func (h *SyncHandler) StreamLogs(c *gin.Context) {
	id := c.Param("id")

	run, err := h.syncService.GetRun(id)
	if err != nil {
		if errors.Is(err, repository.ErrRunNotFound) {
			h.handleError(c, apperrors.WrapRunNotFound(err))
			return
		}
		h.logger.Error("Failed to get run %s for log streaming: %v", id, err)
		h.handleError(c, apperrors.WrapInternal(err, "Failed to get run"))
		return
	}

	setSSEHeaders(c)

	// Send existing logs first
	existingLogs := run.GetLogLines()
	runStatus := run.Status

	for _, line := range existingLogs {
		fmt.Fprintf(c.Writer, "data: %s\n\n", line)
		c.Writer.Flush()
	}

	// If the run is already finished, no need to stream further
	if runStatus == models.RunCompleted || runStatus == models.RunFailed {
		return
	}

	// Subscribe to new logs
	logChan := run.AddLogListener()
	defer run.RemoveLogListener(logChan)

	// Stream new logs until the run completes or the client disconnects
	clientGone := c.Request.Context().Done()
	for {
		select {
		case line, ok := <-logChan:
			if !ok {
				// Channel closed, run completed
				return
			}
			fmt.Fprintf(c.Writer, "data: %s\n\n", line)
			c.Writer.Flush()
		case <-clientGone:
			// Client disconnected
			return
		}
	}
}

// ListRuns lists prefetch runs with pagination and status filtering,
// newest first.
//
// Query parameters:
//   - page (optional): Page number, default 1
//   - pageSize (optional): Items per page, default 20, max 100
//   - status (optional): Filter by status (pending/running/completed/failed)
//
// Response (200 OK):
//
//	{"total": 100, "page": 1, "pageSize": 20, "runs": [...]}
//
// Error responses: 400 (invalid parameters), 500 (server error)
func (h *SyncHandler) ListRuns(c *gin.Context) {
	var req models.RunListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.handleError(c, apperrors.WrapInvalidInput(err, "Invalid query parameters"))
		return
	}

	resp, err := h.syncService.ListRuns(&req)
	if err != nil {
		h.logger.Error("Failed to list runs: %v", err)
		h.handleError(c, apperrors.WrapInternal(err, "Failed to list runs"))
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Health performs a health check and returns service status.
//
// Response (200 OK):
//
//	{"status": "ok"}
func (h *SyncHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}
