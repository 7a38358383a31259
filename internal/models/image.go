// Copyright (c) 2025 Lazycat Apps
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package models defines data structures for the Photo Cache application.
package models

// ImageRecord is the unit of cached photo data.
//
// IsFavorite and IsDownloaded are local-only flags with no remote
// counterpart. Data arriving from the catalog must never overwrite them;
// only explicit user actions (favorite toggle) and the background prefetch
// worker (downloaded flag) may change them.
type ImageRecord struct {
	ID           string `json:"id"`           // Stable catalog identifier
	RegularURL   string `json:"regularUrl"`   // Full-resolution image location
	ThumbURL     string `json:"thumbUrl"`     // Thumbnail image location
	Description  string `json:"description"`  // Free-text description (may be empty)
	UserName     string `json:"userName"`     // Author display name
	UserUsername string `json:"userUsername"` // Author handle
	Likes        int    `json:"likes"`        // Popularity count
	CreatedAt    string `json:"createdAt"`    // Creation timestamp, opaque string from the catalog
	IsFavorite   bool   `json:"isFavorite"`   // Local-only favorite flag
	IsDownloaded bool   `json:"isDownloaded"` // Local-only offline-pinned flag
}

// ImageListResponse is the paged listing response.
type ImageListResponse struct {
	Images  []ImageRecord `json:"images"`
	PrevKey *int          `json:"prevKey"` // Previous page number, null on the first page
	NextKey *int          `json:"nextKey"` // Next page number, null when no further pages
}

// SearchResponse is the catalog search response.
type SearchResponse struct {
	Total      int           `json:"total"`
	TotalPages int           `json:"totalPages"`
	Images     []ImageRecord `json:"images"`
}
