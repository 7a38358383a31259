// Copyright (c) 2025 Lazycat Apps
// Licensed under the MIT License. See LICENSE file in the project root for details.

package service

import (
	"context"

	"github.com/lazycatapps/photo-cache/internal/models"
	"github.com/lazycatapps/photo-cache/internal/pkg/logger"
)

// ImagePager is the paged listing adapter. Page 1 is served from the local
// store whenever the store is non-empty; deeper pages come from the
// catalog, and a catalog failure degrades to the local data as a terminal
// page instead of an error.
type ImagePager interface {
	LoadPage(ctx context.Context, key *int) (*models.ImageListResponse, error)
	RefreshKey(last *models.ImageListResponse) *int
}

type imagePager struct {
	images ImageService
	logger logger.Logger
}

// NewImagePager creates a new paged listing adapter on top of the image
// service.
func NewImagePager(images ImageService, log logger.Logger) ImagePager {
	return &imagePager{
		images: images,
		logger: log,
	}
}

// LoadPage loads one page. A nil key means page 1.
func (p *imagePager) LoadPage(ctx context.Context, key *int) (*models.ImageListResponse, error) {
	page := 1
	if key != nil {
		page = *key
	}

	if page == 1 {
		local, err := p.images.ListLocal(ctx)
		if err != nil {
			return nil, err
		}
		if len(local) > 0 {
			// Local-first: an already-populated store serves the opening
			// page without touching the network.
			next := 2
			return &models.ImageListResponse{
				Images:  local,
				PrevKey: nil,
				NextKey: &next,
			}, nil
		}
	}

	fetched, err := p.images.FetchPage(ctx, page)
	if err != nil {
		local, lerr := p.images.ListLocal(ctx)
		if lerr != nil {
			return nil, lerr
		}
		if len(local) == 0 {
			// Nothing cached to degrade to.
			return nil, err
		}
		// Offline fallback: the store contents become the single terminal
		// page so browsing keeps working without connectivity.
		p.logger.Info("Catalog page %d unavailable, serving %d cached images: %v", page, len(local), err)
		return &models.ImageListResponse{
			Images:  local,
			PrevKey: nil,
			NextKey: nil,
		}, nil
	}

	resp := &models.ImageListResponse{Images: fetched}
	if page > 1 {
		prev := page - 1
		resp.PrevKey = &prev
	}
	if len(fetched) > 0 {
		next := page + 1
		resp.NextKey = &next
	}
	return resp, nil
}

// RefreshKey derives the page to reload after invalidation from the last
// loaded page: the page after its prevKey, or the page before its nextKey,
// or nil (meaning page 1) when neither anchor exists.
func (p *imagePager) RefreshKey(last *models.ImageListResponse) *int {
	if last == nil {
		return nil
	}
	if last.PrevKey != nil {
		key := *last.PrevKey + 1
		return &key
	}
	if last.NextKey != nil {
		key := *last.NextKey - 1
		return &key
	}
	return nil
}
