// Copyright (c) 2025 Lazycat Apps
// Licensed under the MIT License. See LICENSE file in the project root for details.

package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/lazycatapps/photo-cache/internal/catalog"
	"github.com/lazycatapps/photo-cache/internal/models"
	"github.com/lazycatapps/photo-cache/internal/pkg/logger"
	"github.com/lazycatapps/photo-cache/internal/repository"
)

// stubCatalog is a scriptable in-memory catalog client shared by the
// service tests.
type stubCatalog struct {
	pages       map[int][]catalog.Photo
	photos      map[string]catalog.Photo
	search      *catalog.SearchResult
	unavailable bool

	listCalls   int
	getCalls    int
	searchCalls int
}

func newStubCatalog() *stubCatalog {
	return &stubCatalog{
		pages:  make(map[int][]catalog.Photo),
		photos: make(map[string]catalog.Photo),
	}
}

func (s *stubCatalog) ListPhotos(ctx context.Context, page, perPage int) ([]catalog.Photo, error) {
	s.listCalls++
	if s.unavailable {
		return nil, fmt.Errorf("%w: connection refused", catalog.ErrRemoteUnavailable)
	}
	return s.pages[page], nil
}

func (s *stubCatalog) SearchPhotos(ctx context.Context, query string, page, perPage int) (*catalog.SearchResult, error) {
	s.searchCalls++
	if s.unavailable {
		return nil, fmt.Errorf("%w: connection refused", catalog.ErrRemoteUnavailable)
	}
	return s.search, nil
}

func (s *stubCatalog) GetPhoto(ctx context.Context, id string) (*catalog.Photo, error) {
	s.getCalls++
	if s.unavailable {
		return nil, fmt.Errorf("%w: connection refused", catalog.ErrRemoteUnavailable)
	}
	photo, ok := s.photos[id]
	if !ok {
		return nil, fmt.Errorf("%w: unexpected status 404", catalog.ErrRemoteUnavailable)
	}
	return &photo, nil
}

func testPhoto(id string) catalog.Photo {
	return catalog.Photo{
		ID:          id,
		Description: "A photo",
		URLs: catalog.PhotoURLs{
			Regular: "https://images.example.com/" + id + "/regular",
			Thumb:   "https://images.example.com/" + id + "/thumb",
		},
		User:      catalog.PhotoUser{Name: "Jane Doe", Username: "janedoe"},
		Likes:     10,
		CreatedAt: "2024-01-01T00:00:00Z",
	}
}

// testRecords converts catalog photos into storable records.
func testRecords(photos ...catalog.Photo) []models.ImageRecord {
	records := make([]models.ImageRecord, 0, len(photos))
	for _, photo := range photos {
		records = append(records, toImageRecord(photo))
	}
	return records
}

func newTestImageRepo(t *testing.T) repository.ImageRepository {
	t.Helper()

	db, err := repository.OpenDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return repository.NewSQLiteImageRepository(db)
}

func TestImageService_FetchPage_PreservesFlags(t *testing.T) {
	repo := newTestImageRepo(t)
	remote := newStubCatalog()
	svc := NewImageService(repo, remote, 20, logger.New())
	ctx := context.Background()

	repo.UpsertImages(ctx, testRecords(testPhoto("img1")))
	repo.SetFavorite(ctx, "img1", true)

	remote.pages[1] = []catalog.Photo{testPhoto("img1"), testPhoto("img2")}

	records, err := svc.FetchPage(ctx, 1)
	if err != nil {
		t.Fatalf("FetchPage failed: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}
	if !records[0].IsFavorite {
		t.Error("Expected known id to keep its favorite flag")
	}
	if records[1].IsFavorite || records[1].IsDownloaded {
		t.Error("Expected unseen id to default to flags false")
	}
}

func TestImageService_FetchPage_RemoteFailureLeavesStoreUntouched(t *testing.T) {
	repo := newTestImageRepo(t)
	remote := newStubCatalog()
	remote.unavailable = true
	svc := NewImageService(repo, remote, 20, logger.New())
	ctx := context.Background()

	_, err := svc.FetchPage(ctx, 1)
	if !errors.Is(err, catalog.ErrRemoteUnavailable) {
		t.Fatalf("Expected ErrRemoteUnavailable, got %v", err)
	}

	stored, _ := repo.ListImages(ctx)
	if len(stored) != 0 {
		t.Errorf("Expected empty store after failed fetch, got %d records", len(stored))
	}
}

func TestImageService_GetByID_NotFound(t *testing.T) {
	repo := newTestImageRepo(t)
	svc := NewImageService(repo, newStubCatalog(), 20, logger.New())

	_, err := svc.GetByID(context.Background(), "missing")
	if !errors.Is(err, repository.ErrImageNotFound) {
		t.Errorf("Expected ErrImageNotFound, got %v", err)
	}
}

func TestImageService_ToggleFavorite_Cached(t *testing.T) {
	repo := newTestImageRepo(t)
	remote := newStubCatalog()
	svc := NewImageService(repo, remote, 20, logger.New())
	ctx := context.Background()

	repo.UpsertImages(ctx, testRecords(testPhoto("img1")))

	rec, err := svc.ToggleFavorite(ctx, "img1")
	if err != nil {
		t.Fatalf("ToggleFavorite failed: %v", err)
	}
	if !rec.IsFavorite {
		t.Error("Expected favorite true after first toggle")
	}
	if remote.getCalls != 0 {
		t.Errorf("Expected no catalog calls for a cached image, got %d", remote.getCalls)
	}

	rec, err = svc.ToggleFavorite(ctx, "img1")
	if err != nil {
		t.Fatalf("Second ToggleFavorite failed: %v", err)
	}
	if rec.IsFavorite {
		t.Error("Expected favorite false after second toggle")
	}
}

func TestImageService_ToggleFavorite_Uncached(t *testing.T) {
	repo := newTestImageRepo(t)
	remote := newStubCatalog()
	remote.photos["img1"] = testPhoto("img1")
	svc := NewImageService(repo, remote, 20, logger.New())
	ctx := context.Background()

	rec, err := svc.ToggleFavorite(ctx, "img1")
	if err != nil {
		t.Fatalf("ToggleFavorite failed: %v", err)
	}
	if !rec.IsFavorite {
		t.Error("Expected the fetched image to be stored favorited")
	}

	stored, _ := repo.GetImage(ctx, "img1")
	if stored == nil || !stored.IsFavorite {
		t.Error("Expected the record to be persisted with the favorite flag set")
	}
}

func TestImageService_ToggleFavorite_UncachedRemoteFailure(t *testing.T) {
	repo := newTestImageRepo(t)
	remote := newStubCatalog()
	remote.unavailable = true
	svc := NewImageService(repo, remote, 20, logger.New())
	ctx := context.Background()

	_, err := svc.ToggleFavorite(ctx, "img1")
	if !errors.Is(err, catalog.ErrRemoteUnavailable) {
		t.Fatalf("Expected ErrRemoteUnavailable, got %v", err)
	}

	// A failed toggle of an unknown image must not create a record.
	stored, _ := repo.GetImage(ctx, "img1")
	if stored != nil {
		t.Errorf("Expected no record after failed toggle, got %+v", stored)
	}
}

func TestImageService_Refresh_PreservesFlags(t *testing.T) {
	repo := newTestImageRepo(t)
	remote := newStubCatalog()
	svc := NewImageService(repo, remote, 20, logger.New())
	ctx := context.Background()

	repo.UpsertImages(ctx, testRecords(testPhoto("img1")))
	repo.SetFavorite(ctx, "img1", true)
	repo.MarkDownloaded(ctx, "img1")

	updated := testPhoto("img1")
	updated.Likes = 99
	remote.photos["img1"] = updated

	rec, err := svc.Refresh(ctx, "img1")
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	if rec.Likes != 99 {
		t.Errorf("Expected refreshed likes 99, got %d", rec.Likes)
	}
	if !rec.IsFavorite || !rec.IsDownloaded {
		t.Error("Expected local flags to survive the refresh")
	}
}

func TestImageService_Search_CachesHitsAndMergesFlags(t *testing.T) {
	repo := newTestImageRepo(t)
	remote := newStubCatalog()
	svc := NewImageService(repo, remote, 20, logger.New())
	ctx := context.Background()

	repo.UpsertImages(ctx, testRecords(testPhoto("img1")))
	repo.SetFavorite(ctx, "img1", true)

	remote.search = &catalog.SearchResult{
		Total:      2,
		TotalPages: 1,
		Results:    []catalog.Photo{testPhoto("img1"), testPhoto("img2")},
	}

	resp, err := svc.Search(ctx, "mountains", 1)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if resp.Total != 2 || len(resp.Images) != 2 {
		t.Fatalf("Expected 2 results, got total=%d len=%d", resp.Total, len(resp.Images))
	}

	if !resp.Images[0].IsFavorite {
		t.Error("Expected known hit to keep its favorite flag in the response")
	}

	// Both hits must now be cached locally.
	stored, _ := repo.GetImage(ctx, "img2")
	if stored == nil {
		t.Error("Expected search hit img2 to be cached")
	}
}

func TestImageService_Delete_NotFound(t *testing.T) {
	repo := newTestImageRepo(t)
	svc := NewImageService(repo, newStubCatalog(), 20, logger.New())

	err := svc.Delete(context.Background(), "missing")
	if !errors.Is(err, repository.ErrImageNotFound) {
		t.Errorf("Expected ErrImageNotFound, got %v", err)
	}
}
