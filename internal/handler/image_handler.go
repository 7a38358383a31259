// Copyright (c) 2025 Lazycat Apps
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package handler provides HTTP request handlers for the Photo Cache API.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/lazycatapps/photo-cache/internal/catalog"
	apperrors "github.com/lazycatapps/photo-cache/internal/pkg/errors"
	"github.com/lazycatapps/photo-cache/internal/pkg/logger"
	"github.com/lazycatapps/photo-cache/internal/pkg/validator"
	"github.com/lazycatapps/photo-cache/internal/repository"
	"github.com/lazycatapps/photo-cache/internal/service"

	"github.com/gin-gonic/gin"
)

// ImageHandler handles HTTP requests related to cached images.
type ImageHandler struct {
	imageService service.ImageService
	pager        service.ImagePager
	logger       logger.Logger
}

// NewImageHandler creates a new ImageHandler instance.
func NewImageHandler(imageService service.ImageService, pager service.ImagePager, logger logger.Logger) *ImageHandler {
	return &ImageHandler{
		imageService: imageService,
		pager:        pager,
		logger:       logger,
	}
}

// handleError processes errors and sends appropriate HTTP responses.
// It checks if the error is an AppError with status code, otherwise returns 500.
func (h *ImageHandler) handleError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		c.JSON(appErr.StatusCode, gin.H{"error": appErr.Message})
	} else {
		h.logger.Error("Unexpected error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// ListImages returns one page of the image listing.
//
// Query parameters:
//   - page (optional): Page number, default 1
//
// Response (200 OK):
//
//	{"images": [...], "prevKey": null, "nextKey": 2}
//
// Error responses: 400 (invalid page), 500 (server error)
func (h *ImageHandler) ListImages(c *gin.Context) {
	var key *int
	if raw := c.Query("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			h.handleError(c, apperrors.WrapInvalidInput(err, "Invalid page number"))
			return
		}
		if err := validator.ValidatePage(page); err != nil {
			h.handleError(c, apperrors.WrapInvalidInput(err, "Invalid page number"))
			return
		}
		key = &page
	}

	resp, err := h.pager.LoadPage(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, catalog.ErrRemoteUnavailable) {
			h.handleError(c, apperrors.WrapRemoteUnavailable(err, "Catalog unavailable and nothing cached"))
			return
		}
		h.logger.Error("Failed to load image page: %v", err)
		h.handleError(c, apperrors.WrapInternal(err, "Failed to load images"))
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetImage returns the locally cached record for an image.
//
// Path parameter:
//   - id: Catalog image identifier
//
// Response (200 OK): ImageRecord object
// Error responses: 400 (invalid id), 404 (not cached), 500 (server error)
func (h *ImageHandler) GetImage(c *gin.Context) {
	id := c.Param("id")
	if err := validator.ValidateImageID(id); err != nil {
		h.handleError(c, apperrors.WrapInvalidInput(err, "Invalid image id"))
		return
	}

	rec, err := h.imageService.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrImageNotFound) {
			h.handleError(c, apperrors.WrapImageNotFound(err))
			return
		}
		h.logger.Error("Failed to get image %s: %v", id, err)
		h.handleError(c, apperrors.WrapInternal(err, "Failed to get image"))
		return
	}

	c.JSON(http.StatusOK, rec)
}

// RefreshImage fetches an image from the catalog and updates the local
// record. Local flags survive the refresh.
//
// Path parameter:
//   - id: Catalog image identifier
//
// Response (200 OK): Updated ImageRecord object
// Error responses: 400 (invalid id), 502 (catalog unavailable), 500 (server error)
func (h *ImageHandler) RefreshImage(c *gin.Context) {
	id := c.Param("id")
	if err := validator.ValidateImageID(id); err != nil {
		h.handleError(c, apperrors.WrapInvalidInput(err, "Invalid image id"))
		return
	}

	rec, err := h.imageService.Refresh(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, catalog.ErrRemoteUnavailable) {
			h.handleError(c, apperrors.WrapRemoteUnavailable(err, "Catalog unavailable"))
			return
		}
		h.logger.Error("Failed to refresh image %s: %v", id, err)
		h.handleError(c, apperrors.WrapInternal(err, "Failed to refresh image"))
		return
	}

	h.logger.Info("Refreshed image %s", id)
	c.JSON(http.StatusOK, rec)
}

// ToggleFavorite flips the favorite flag of an image. An uncached image is
// fetched from the catalog first; if that fetch fails the toggle fails and
// nothing is stored.
//
// Path parameter:
//   - id: Catalog image identifier
//
// Response (200 OK): Updated ImageRecord object
// Error responses: 400 (invalid id), 502 (catalog unavailable), 500 (server error)
func (h *ImageHandler) ToggleFavorite(c *gin.Context) {
	id := c.Param("id")
	if err := validator.ValidateImageID(id); err != nil {
		h.handleError(c, apperrors.WrapInvalidInput(err, "Invalid image id"))
		return
	}

	rec, err := h.imageService.ToggleFavorite(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, catalog.ErrRemoteUnavailable) {
			h.handleError(c, apperrors.WrapRemoteUnavailable(err, "Catalog unavailable, favorite not saved"))
			return
		}
		h.logger.Error("Failed to toggle favorite for %s: %v", id, err)
		h.handleError(c, apperrors.WrapInternal(err, "Failed to toggle favorite"))
		return
	}

	c.JSON(http.StatusOK, rec)
}

// ListFavorites returns all locally flagged favorites, newest first.
//
// Response (200 OK):
//
//	{"images": [...]}
func (h *ImageHandler) ListFavorites(c *gin.Context) {
	images, err := h.imageService.ListFavorites(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list favorites: %v", err)
		h.handleError(c, apperrors.WrapInternal(err, "Failed to list favorites"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"images": images})
}

// Search queries the catalog and returns one page of results. Hits are
// cached locally so they remain browsable offline.
//
// Query parameters:
//   - query (required): Search query
//   - page (optional): Page number, default 1
//
// Response (200 OK):
//
//	{"total": 100, "totalPages": 5, "images": [...]}
//
// Error responses: 400 (invalid parameters), 502 (catalog unavailable)
func (h *ImageHandler) Search(c *gin.Context) {
	query := c.Query("query")
	if err := validator.ValidateQuery(query); err != nil {
		h.handleError(c, apperrors.WrapInvalidInput(err, "Invalid search query"))
		return
	}

	page := 1
	if raw := c.Query("page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			h.handleError(c, apperrors.WrapInvalidInput(err, "Invalid page number"))
			return
		}
		if err := validator.ValidatePage(parsed); err != nil {
			h.handleError(c, apperrors.WrapInvalidInput(err, "Invalid page number"))
			return
		}
		page = parsed
	}

	resp, err := h.imageService.Search(c.Request.Context(), query, page)
	if err != nil {
		if errors.Is(err, catalog.ErrRemoteUnavailable) {
			h.handleError(c, apperrors.WrapRemoteUnavailable(err, "Catalog unavailable"))
			return
		}
		h.logger.Error("Failed to search %q: %v", query, err)
		h.handleError(c, apperrors.WrapInternal(err, "Failed to search"))
		return
	}

	c.JSON(http.StatusOK, resp)
}

// DeleteImage removes an image record from the local store.
//
// Path parameter:
//   - id: Catalog image identifier
//
// Response (200 OK):
//
//	{"message": "Image deleted"}
//
// Error responses: 400 (invalid id), 404 (not cached), 500 (server error)
func (h *ImageHandler) DeleteImage(c *gin.Context) {
	id := c.Param("id")
	if err := validator.ValidateImageID(id); err != nil {
		h.handleError(c, apperrors.WrapInvalidInput(err, "Invalid image id"))
		return
	}

	if err := h.imageService.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrImageNotFound) {
			h.handleError(c, apperrors.WrapImageNotFound(err))
			return
		}
		h.logger.Error("Failed to delete image %s: %v", id, err)
		h.handleError(c, apperrors.WrapInternal(err, "Failed to delete image"))
		return
	}

	h.logger.Info("Deleted image %s", id)
	c.JSON(http.StatusOK, gin.H{"message": "Image deleted"})
}

// StreamImage streams live updates of a single image record using
// Server-Sent Events (SSE). The current state is sent immediately, then a
// fresh record after every committed change, until the client disconnects.
//
// Path parameter:
//   - id: Catalog image identifier
//
// Response format: SSE (data: <ImageRecord JSON or null>\n\n)
func (h *ImageHandler) StreamImage(c *gin.Context) {
	id := c.Param("id")
	if err := validator.ValidateImageID(id); err != nil {
		h.handleError(c, apperrors.WrapInvalidInput(err, "Invalid image id"))
		return
	}

	setSSEHeaders(c)

	updates := h.imageService.ObserveByID(c.Request.Context(), id)
	for rec := range updates {
		writeSSE(c, rec)
	}
}

// StreamImages streams the full image listing over SSE; a fresh listing is
// sent after every committed change.
func (h *ImageHandler) StreamImages(c *gin.Context) {
	setSSEHeaders(c)

	updates := h.imageService.ObserveLocal(c.Request.Context())
	for images := range updates {
		writeSSE(c, gin.H{"images": images})
	}
}

// StreamFavorites streams the favorites listing over SSE.
func (h *ImageHandler) StreamFavorites(c *gin.Context) {
	setSSEHeaders(c)

	updates := h.imageService.ObserveFavorites(c.Request.Context())
	for images := range updates {
		writeSSE(c, gin.H{"images": images})
	}
}

// setSSEHeaders prepares the response for Server-Sent Events streaming.
func setSSEHeaders(c *gin.Context) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
}

// writeSSE marshals v and writes it as one SSE event.
func writeSSE(c *gin.Context, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.Writer.WriteString("data: ")
	c.Writer.Write(data)
	c.Writer.WriteString("\n\n")
	c.Writer.Flush()
}
