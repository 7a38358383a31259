// Copyright (c) 2025 Lazycat Apps
// Licensed under the MIT License. See LICENSE file in the project root for details.

package handler

import (
	"errors"
	"net/http"

	"github.com/lazycatapps/photo-cache/internal/models"
	apperrors "github.com/lazycatapps/photo-cache/internal/pkg/errors"
	"github.com/lazycatapps/photo-cache/internal/pkg/logger"
	"github.com/lazycatapps/photo-cache/internal/pkg/validator"
	"github.com/lazycatapps/photo-cache/internal/service"

	"github.com/gin-gonic/gin"
)

// SettingsHandler handles HTTP requests for user preferences.
type SettingsHandler struct {
	settingsService service.SettingsService
	logger          logger.Logger
}

// NewSettingsHandler creates a new SettingsHandler instance.
func NewSettingsHandler(settingsService service.SettingsService, logger logger.Logger) *SettingsHandler {
	return &SettingsHandler{
		settingsService: settingsService,
		logger:          logger,
	}
}

// handleError processes errors and sends appropriate HTTP responses.
func (h *SettingsHandler) handleError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		c.JSON(appErr.StatusCode, gin.H{"error": appErr.Message})
	} else {
		h.logger.Error("Unexpected error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// GetSettings returns the current persisted settings.
//
// Response (200 OK):
//
//	{"syncEnabled": true, "syncInterval": 15}
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	settings, err := h.settingsService.Get(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to get settings: %v", err)
		h.handleError(c, apperrors.WrapInternal(err, "Failed to get settings"))
		return
	}

	c.JSON(http.StatusOK, settings)
}

// UpdateSettings persists new settings and reconciles the background
// schedule: enabling sync arms an immediate catch-up run plus the periodic
// schedule, disabling cancels both, and an interval change re-arms the
// periodic schedule.
//
// Request body (JSON):
//   - syncEnabled (required): Whether background sync is on
//   - syncInterval (required): Periodic interval in minutes (5, 15, 30, 60)
//
// Response (200 OK): Updated settings object
// Error responses: 400 (invalid input), 500 (server error)
func (h *SettingsHandler) UpdateSettings(c *gin.Context) {
	var req models.Settings
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleError(c, apperrors.WrapInvalidInput(err, "Invalid request body"))
		return
	}

	if err := validator.ValidateSyncInterval(req.SyncInterval); err != nil {
		h.handleError(c, apperrors.WrapInvalidInput(err, "Invalid sync interval"))
		return
	}

	settings, err := h.settingsService.Update(c.Request.Context(), req)
	if err != nil {
		h.logger.Error("Failed to update settings: %v", err)
		h.handleError(c, apperrors.WrapInternal(err, "Failed to update settings"))
		return
	}

	c.JSON(http.StatusOK, settings)
}

// StreamSettings streams live settings updates over SSE. The current value
// is sent immediately, then a fresh value after every update.
func (h *SettingsHandler) StreamSettings(c *gin.Context) {
	setSSEHeaders(c)

	updates := h.settingsService.Watch(c.Request.Context())
	for settings := range updates {
		writeSSE(c, settings)
	}
}
