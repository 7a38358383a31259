// Copyright (c) 2025 Lazycat Apps
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package main is the entry point for the Photo Cache server application.
// It initializes all dependencies, configures the server, and starts the HTTP service.
package main

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/lazycatapps/photo-cache/internal/catalog"
	"github.com/lazycatapps/photo-cache/internal/handler"
	"github.com/lazycatapps/photo-cache/internal/imagecache"
	"github.com/lazycatapps/photo-cache/internal/pkg/logger"
	"github.com/lazycatapps/photo-cache/internal/repository"
	"github.com/lazycatapps/photo-cache/internal/router"
	"github.com/lazycatapps/photo-cache/internal/scheduler"
	"github.com/lazycatapps/photo-cache/internal/service"
	"github.com/lazycatapps/photo-cache/internal/types"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// rootCmd is the root command for the CLI application.
var rootCmd = &cobra.Command{
	Use:   "photo-cache",
	Short: "Photo Cache - Offline-first photo browsing service",
	Long:  `A web service that mirrors an Unsplash-style photo catalog into a local store, serves it local-first, and prefetches image bytes for offline use.`,
	Run:   runServer,
}

// init initializes command-line flags and environment variable bindings.
// It sets up the following configuration options:
//   - --host: Server listening address (default: 0.0.0.0)
//   - --port: Server listening port (default: 8080)
//   - --catalog-base-url: Photo catalog API base URL
//   - --catalog-access-key: Catalog access key (client_id)
//   - --catalog-timeout: Catalog request timeout in seconds (default: 30)
//   - --per-page: Photos per catalog page (default: 20)
//   - --db-path: SQLite database file path
//   - --cache-dir: Directory for disk-cached image files
//   - --sync-fetch-first: Refresh catalog page 1 before each prefetch run
//   - --sync-retry-delay: Delay in seconds before retrying a failed run
//   - --cors-allowed-origins: CORS allowed origins (default: *)
//
// Environment variables are supported with PHOTO_ prefix and underscores
// replacing hyphens. For example: PHOTO_CATALOG_ACCESS_KEY for
// --catalog-access-key.
func init() {
	rootCmd.Flags().String("host", "0.0.0.0", "Server host")
	rootCmd.Flags().IntP("port", "p", 8080, "Server port")
	rootCmd.Flags().String("catalog-base-url", "https://api.unsplash.com", "Photo catalog API base URL")
	rootCmd.Flags().String("catalog-access-key", "", "Photo catalog access key")
	rootCmd.Flags().Int("catalog-timeout", 30, "Catalog request timeout in seconds")
	rootCmd.Flags().Int("per-page", 20, "Photos per catalog page")
	rootCmd.Flags().String("db-path", "./data/photocache.db", "SQLite database file path")
	rootCmd.Flags().String("cache-dir", "./data/images", "Directory for disk-cached image files")
	rootCmd.Flags().Bool("sync-fetch-first", true, "Refresh catalog page 1 before each prefetch run")
	rootCmd.Flags().Int("sync-retry-delay", 60, "Delay in seconds before retrying a failed sync run")
	rootCmd.Flags().StringSlice("cors-allowed-origins", []string{"*"}, "CORS allowed origins")

	viper.BindPFlags(rootCmd.Flags())

	// Set environment variable prefix to "PHOTO"
	viper.SetEnvPrefix("PHOTO")
	viper.AutomaticEnv()
	// Replace hyphens with underscores in environment variable names
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
}

// runServer is the main server execution function.
// It performs the following steps:
//  1. Loads configuration from command-line flags and environment variables
//  2. Initializes logger and opens the SQLite store
//  3. Creates repositories (images, settings, runs)
//  4. Initializes catalog client, image cache, and scheduler
//  5. Initializes services and HTTP handlers
//  6. Restores the background schedule from persisted settings
//  7. Configures routing and starts the HTTP server
func runServer(cmd *cobra.Command, args []string) {
	cfg := &types.Config{
		Server: types.ServerConfig{
			Host: viper.GetString("host"),
			Port: viper.GetInt("port"),
		},
		Catalog: types.CatalogConfig{
			BaseURL:   viper.GetString("catalog-base-url"),
			AccessKey: viper.GetString("catalog-access-key"),
			Timeout:   viper.GetInt("catalog-timeout"),
			PerPage:   viper.GetInt("per-page"),
		},
		Storage: types.StorageConfig{
			DBPath:   viper.GetString("db-path"),
			CacheDir: viper.GetString("cache-dir"),
		},
		Sync: types.SyncConfig{
			FetchBeforePrefetch: viper.GetBool("sync-fetch-first"),
			RetryDelay:          viper.GetInt("sync-retry-delay"),
		},
		CORS: types.CORSConfig{
			AllowedOrigins: viper.GetStringSlice("cors-allowed-origins"),
		},
	}

	// Initialize logger
	log := logger.New()

	log.Info("Catalog: %s (access key: %s)", cfg.Catalog.BaseURL, maskSecret(cfg.Catalog.AccessKey))
	log.Info("Store: %s, image cache: %s", cfg.Storage.DBPath, cfg.Storage.CacheDir)

	// Open the SQLite store
	db, err := repository.OpenDB(cfg.Storage.DBPath)
	if err != nil {
		log.Error("Failed to open database: %v", err)
		return
	}
	defer db.Close()

	// Initialize repositories
	imageRepo := repository.NewSQLiteImageRepository(db)
	settingsRepo := repository.NewSQLiteSettingsRepository(db)
	runRepo := repository.NewInMemoryRunRepository()

	// Initialize catalog client and image cache
	client := catalog.NewHTTPClient(cfg.Catalog.BaseURL, cfg.Catalog.AccessKey, cfg.Catalog.Timeout, log)
	cache, err := imagecache.NewDiskCache(cfg.Storage.CacheDir, log)
	if err != nil {
		log.Error("Failed to initialize image cache: %v", err)
		return
	}

	// Initialize scheduler with a connectivity probe against the catalog host
	sched := scheduler.New(connectivityFor(cfg.Catalog.BaseURL, log), time.Duration(cfg.Sync.RetryDelay)*time.Second, log)
	defer sched.Stop()

	// Initialize services
	imageService := service.NewImageService(imageRepo, client, cfg.Catalog.PerPage, log)
	pager := service.NewImagePager(imageService, log)
	syncService := service.NewSyncService(runRepo, imageRepo, client, cache, cfg.Catalog.PerPage, cfg.Sync.FetchBeforePrefetch, log)
	settingsService := service.NewSettingsService(settingsRepo, sched, syncService, log)

	// Restore the background schedule from persisted settings
	if err := settingsService.ReconcileSchedule(context.Background()); err != nil {
		log.Error("Failed to restore sync schedule: %v", err)
	}

	// Initialize HTTP handlers
	imageHandler := handler.NewImageHandler(imageService, pager, log)
	syncHandler := handler.NewSyncHandler(syncService, log)
	settingsHandler := handler.NewSettingsHandler(settingsService, log)

	// Set up router and middleware
	router := router.New(imageHandler, syncHandler, settingsHandler)
	engine := router.Setup(cfg)

	// Start HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Info("Server starting on %s", addr)
	if err := engine.Run(addr); err != nil {
		log.Error("Failed to start server: %v", err)
	}
}

// connectivityFor derives a TCP connectivity probe from the catalog URL.
// Falls back to an always-online gate when the URL cannot be parsed.
func connectivityFor(baseURL string, log logger.Logger) scheduler.Connectivity {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		log.Error("Cannot derive connectivity probe from %q, sync runs will not wait for network", baseURL)
		return scheduler.AlwaysOnline{}
	}
	host := u.Host
	if u.Port() == "" {
		port := "443"
		if u.Scheme == "http" {
			port = "80"
		}
		host = u.Hostname() + ":" + port
	}
	return scheduler.NewTCPConnectivity(host)
}

// maskSecret masks a secret string for logging.
// Shows first 4 characters if length > 8, otherwise shows masked string.
func maskSecret(secret string) string {
	if secret == "" {
		return "(empty)"
	}
	if len(secret) <= 8 {
		return "***"
	}
	return secret[:4] + "***"
}

// main is the application entry point.
func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
	}
}
