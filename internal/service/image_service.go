// Copyright (c) 2025 Lazycat Apps
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package service implements the business logic of the photo cache: the
// local-first image store, the paged listing adapter, the background
// prefetch worker, and the settings-driven schedule.
package service

import (
	"context"
	"sync"

	"github.com/lazycatapps/photo-cache/internal/catalog"
	"github.com/lazycatapps/photo-cache/internal/models"
	"github.com/lazycatapps/photo-cache/internal/pkg/logger"
	"github.com/lazycatapps/photo-cache/internal/repository"
)

// ImageService defines the image operations exposed to the API surface.
//
// All reads are served from the local store; the remote catalog is only
// consulted by Refresh, Search and the paging/prefetch flows. Mutations of
// a single image are serialized per id so a favorite toggle can never race
// a concurrent refresh of the same record.
type ImageService interface {
	FetchPage(ctx context.Context, page int) ([]models.ImageRecord, error)
	GetByID(ctx context.Context, id string) (*models.ImageRecord, error)
	ObserveByID(ctx context.Context, id string) <-chan *models.ImageRecord
	Refresh(ctx context.Context, id string) (*models.ImageRecord, error)
	ListLocal(ctx context.Context) ([]models.ImageRecord, error)
	ObserveLocal(ctx context.Context) <-chan []models.ImageRecord
	ListFavorites(ctx context.Context) ([]models.ImageRecord, error)
	ObserveFavorites(ctx context.Context) <-chan []models.ImageRecord
	ToggleFavorite(ctx context.Context, id string) (*models.ImageRecord, error)
	Search(ctx context.Context, query string, page int) (*models.SearchResponse, error)
	ListUndownloaded(ctx context.Context) ([]models.ImageRecord, error)
	MarkDownloaded(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

type imageService struct {
	repo    repository.ImageRepository
	client  catalog.Client
	perPage int
	logger  logger.Logger
	locks   keyedMutex
}

// NewImageService creates a new image service instance.
func NewImageService(repo repository.ImageRepository, client catalog.Client, perPage int, log logger.Logger) ImageService {
	return &imageService{
		repo:    repo,
		client:  client,
		perPage: perPage,
		logger:  log,
	}
}

// FetchPage pulls one catalog page into the store and returns the stored
// records. Nothing is mutated locally when the catalog is unreachable.
func (s *imageService) FetchPage(ctx context.Context, page int) ([]models.ImageRecord, error) {
	photos, err := s.client.ListPhotos(ctx, page, s.perPage)
	if err != nil {
		return nil, err
	}

	records := make([]models.ImageRecord, 0, len(photos))
	for _, photo := range photos {
		records = append(records, toImageRecord(photo))
	}
	if err := s.repo.UpsertImages(ctx, records); err != nil {
		return nil, err
	}

	return s.withStoredFlags(ctx, records), nil
}

// GetByID returns the locally cached record for id.
func (s *imageService) GetByID(ctx context.Context, id string) (*models.ImageRecord, error) {
	rec, err := s.repo.GetImage(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, repository.ErrImageNotFound
	}
	return rec, nil
}

// ObserveByID returns a live channel over the record for id.
func (s *imageService) ObserveByID(ctx context.Context, id string) <-chan *models.ImageRecord {
	return s.repo.WatchImage(ctx, id)
}

// Refresh fetches the photo from the catalog and upserts it. The stored
// local flags survive the refresh for an already-known id.
func (s *imageService) Refresh(ctx context.Context, id string) (*models.ImageRecord, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	photo, err := s.client.GetPhoto(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpsertImages(ctx, []models.ImageRecord{toImageRecord(*photo)}); err != nil {
		return nil, err
	}

	rec, err := s.repo.GetImage(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, repository.ErrImageNotFound
	}
	return rec, nil
}

// ListLocal returns all locally cached records, newest first.
func (s *imageService) ListLocal(ctx context.Context) ([]models.ImageRecord, error) {
	return s.repo.ListImages(ctx)
}

// ObserveLocal returns a live channel over the full local listing.
func (s *imageService) ObserveLocal(ctx context.Context) <-chan []models.ImageRecord {
	return s.repo.WatchImages(ctx)
}

// ListFavorites returns the locally flagged favorites, newest first.
func (s *imageService) ListFavorites(ctx context.Context) ([]models.ImageRecord, error) {
	return s.repo.ListFavorites(ctx)
}

// ObserveFavorites returns a live channel over the favorites listing.
func (s *imageService) ObserveFavorites(ctx context.Context) <-chan []models.ImageRecord {
	return s.repo.WatchFavorites(ctx)
}

// ToggleFavorite flips the favorite flag for id and returns the updated
// record. When the image is not cached yet it is fetched from the catalog
// first and stored already favorited; if that fetch fails the toggle fails
// and no record is created.
func (s *imageService) ToggleFavorite(ctx context.Context, id string) (*models.ImageRecord, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	rec, err := s.repo.GetImage(ctx, id)
	if err != nil {
		return nil, err
	}

	if rec == nil {
		photo, err := s.client.GetPhoto(ctx, id)
		if err != nil {
			return nil, err
		}
		newRec := toImageRecord(*photo)
		newRec.IsFavorite = true
		if err := s.repo.UpsertImage(ctx, newRec); err != nil {
			return nil, err
		}
		s.logger.Info("Favorited uncached image %s", id)
		return &newRec, nil
	}

	if err := s.repo.SetFavorite(ctx, id, !rec.IsFavorite); err != nil {
		return nil, err
	}
	rec.IsFavorite = !rec.IsFavorite
	return rec, nil
}

// Search queries the catalog and upserts every hit, so results stay
// browsable after connectivity drops. Local flags of known hits survive.
func (s *imageService) Search(ctx context.Context, query string, page int) (*models.SearchResponse, error) {
	result, err := s.client.SearchPhotos(ctx, query, page, s.perPage)
	if err != nil {
		return nil, err
	}

	records := make([]models.ImageRecord, 0, len(result.Results))
	for _, photo := range result.Results {
		records = append(records, toImageRecord(photo))
	}
	if err := s.repo.UpsertImages(ctx, records); err != nil {
		return nil, err
	}

	return &models.SearchResponse{
		Total:      result.Total,
		TotalPages: result.TotalPages,
		Images:     s.withStoredFlags(ctx, records),
	}, nil
}

// ListUndownloaded returns a snapshot of records not yet pinned to disk.
func (s *imageService) ListUndownloaded(ctx context.Context) ([]models.ImageRecord, error) {
	return s.repo.ListUndownloaded(ctx)
}

// withStoredFlags re-reads freshly upserted records so the returned slice
// carries the stored flag values of already-known ids.
func (s *imageService) withStoredFlags(ctx context.Context, records []models.ImageRecord) []models.ImageRecord {
	merged := make([]models.ImageRecord, 0, len(records))
	for _, rec := range records {
		stored, err := s.repo.GetImage(ctx, rec.ID)
		if err != nil || stored == nil {
			merged = append(merged, rec)
			continue
		}
		merged = append(merged, *stored)
	}
	return merged
}

// MarkDownloaded records that the image bytes are pinned to disk.
func (s *imageService) MarkDownloaded(ctx context.Context, id string) error {
	return s.repo.MarkDownloaded(ctx, id)
}

// Delete removes the record for id from the local store.
func (s *imageService) Delete(ctx context.Context, id string) error {
	unlock := s.locks.lock(id)
	defer unlock()

	rec, err := s.repo.GetImage(ctx, id)
	if err != nil {
		return err
	}
	if rec == nil {
		return repository.ErrImageNotFound
	}
	return s.repo.DeleteImage(ctx, id)
}

// toImageRecord maps a catalog photo onto the stored record shape. The
// local flags are zero; the store decides whether they apply.
func toImageRecord(photo catalog.Photo) models.ImageRecord {
	return models.ImageRecord{
		ID:           photo.ID,
		RegularURL:   photo.URLs.Regular,
		ThumbURL:     photo.URLs.Thumb,
		Description:  photo.Description,
		UserName:     photo.User.Name,
		UserUsername: photo.User.Username,
		Likes:        photo.Likes,
		CreatedAt:    photo.CreatedAt,
	}
}

// keyedMutex serializes operations per image id. Entries are refcounted
// and removed when the last holder unlocks, so the map does not grow with
// the catalog.
type keyedMutex struct {
	mu      sync.Mutex
	entries map[string]*keyedEntry
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.entries == nil {
		k.entries = make(map[string]*keyedEntry)
	}
	entry, ok := k.entries[key]
	if !ok {
		entry = &keyedEntry{}
		k.entries[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()
		k.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(k.entries, key)
		}
		k.mu.Unlock()
	}
}
