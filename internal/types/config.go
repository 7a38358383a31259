// Copyright (c) 2025 Lazycat Apps
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package types defines configuration types for the Photo Cache application.
package types

// Config represents the complete application configuration.
type Config struct {
	Server  ServerConfig  // HTTP server configuration
	Catalog CatalogConfig // Remote photo catalog configuration
	Storage StorageConfig // Local store and image cache configuration
	Sync    SyncConfig    // Background sync configuration
	CORS    CORSConfig    // CORS policy configuration
}

// ServerConfig defines HTTP server listening configuration.
type ServerConfig struct {
	Host string // Server listening address (e.g., "0.0.0.0", "127.0.0.1")
	Port int    // Server listening port (e.g., 8080)
}

// CatalogConfig defines the remote photo catalog endpoint.
type CatalogConfig struct {
	BaseURL   string // Catalog API base URL (e.g., "https://api.unsplash.com")
	AccessKey string // Catalog access key, sent as the client_id query parameter
	Timeout   int    // Request timeout in seconds (default: 30)
	PerPage   int    // Photos per page for listing and search (default: 20)
}

// StorageConfig defines local persistence locations.
type StorageConfig struct {
	DBPath   string // SQLite database file path (default: "./data/photocache.db")
	CacheDir string // Directory for disk-cached image files (default: "./data/images")
}

// SyncConfig defines background prefetch behavior.
type SyncConfig struct {
	FetchBeforePrefetch bool // Refresh the first catalog page before prefetching
	RetryDelay          int  // Delay in seconds before retrying a failed sync run (default: 60)
}

// CORSConfig defines Cross-Origin Resource Sharing policy.
type CORSConfig struct {
	AllowedOrigins []string // Allowed origins (e.g., ["*"], ["https://app.example.com"])
}
