// Copyright (c) 2025 Lazycat Apps
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package router provides HTTP routing configuration for the Photo Cache server.
package router

import (
	"github.com/lazycatapps/photo-cache/internal/handler"
	"github.com/lazycatapps/photo-cache/internal/middleware"
	"github.com/lazycatapps/photo-cache/internal/types"

	"github.com/gin-gonic/gin"
)

// Router manages HTTP request routing and handler registration.
type Router struct {
	imageHandler    *handler.ImageHandler
	syncHandler     *handler.SyncHandler
	settingsHandler *handler.SettingsHandler
}

// New creates a new Router instance with the provided handlers.
func New(imageHandler *handler.ImageHandler, syncHandler *handler.SyncHandler, settingsHandler *handler.SettingsHandler) *Router {
	return &Router{
		imageHandler:    imageHandler,
		syncHandler:     syncHandler,
		settingsHandler: settingsHandler,
	}
}

// Setup initializes the Gin engine with middleware and routes.
// It configures the following middleware in order:
//  1. gin.Logger() - HTTP request logging
//  2. gin.Recovery() - Panic recovery
//  3. CORS - Cross-Origin Resource Sharing
//
// Returns a configured *gin.Engine ready to serve HTTP requests.
func (r *Router) Setup(cfg *types.Config) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Logger())
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS(cfg.CORS.AllowedOrigins))

	// Disable trusted proxy feature for security
	engine.SetTrustedProxies(nil)

	r.registerRoutes(engine)

	return engine
}

// registerRoutes registers all API routes under /api/v1 prefix.
// Available endpoints:
//   - GET    /health               - Health check
//   - GET    /images               - Paged image listing (local-first)
//   - GET    /images/events        - Stream listing updates via SSE
//   - GET    /images/:id           - Get a cached image record
//   - GET    /images/:id/events    - Stream single-record updates via SSE
//   - POST   /images/:id/refresh   - Refresh a record from the catalog
//   - POST   /images/:id/favorite  - Toggle the favorite flag
//   - DELETE /images/:id           - Delete a cached record
//   - GET    /favorites            - List favorite images
//   - GET    /favorites/events     - Stream favorites updates via SSE
//   - GET    /search               - Search the catalog (results cached)
//   - GET    /settings             - Get user preferences
//   - PUT    /settings             - Update preferences, reconcile schedule
//   - GET    /settings/events      - Stream settings updates via SSE
//   - GET    /sync/runs            - List prefetch runs
//   - GET    /sync/runs/:id        - Get prefetch run details
//   - GET    /sync/runs/:id/logs   - Stream run logs via SSE
//   - POST   /sync/now             - Start a manual prefetch run
func (r *Router) registerRoutes(engine *gin.Engine) {
	api := engine.Group("/api/v1")
	{
		api.GET("/health", r.syncHandler.Health)

		api.GET("/images", r.imageHandler.ListImages)
		api.GET("/images/events", r.imageHandler.StreamImages)
		api.GET("/images/:id", r.imageHandler.GetImage)
		api.GET("/images/:id/events", r.imageHandler.StreamImage)
		api.POST("/images/:id/refresh", r.imageHandler.RefreshImage)
		api.POST("/images/:id/favorite", r.imageHandler.ToggleFavorite)
		api.DELETE("/images/:id", r.imageHandler.DeleteImage)

		api.GET("/favorites", r.imageHandler.ListFavorites)
		api.GET("/favorites/events", r.imageHandler.StreamFavorites)

		api.GET("/search", r.imageHandler.Search)

		api.GET("/settings", r.settingsHandler.GetSettings)
		api.PUT("/settings", r.settingsHandler.UpdateSettings)
		api.GET("/settings/events", r.settingsHandler.StreamSettings)

		api.GET("/sync/runs", r.syncHandler.ListRuns)
		api.GET("/sync/runs/:id", r.syncHandler.GetRun)
		api.GET("/sync/runs/:id/logs", r.syncHandler.StreamLogs)
		api.POST("/sync/now", r.syncHandler.SyncNow)
	}
}
