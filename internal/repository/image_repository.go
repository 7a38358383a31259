// Copyright (c) 2025 Lazycat Apps
// Licensed under the MIT License. See LICENSE file in the project root for details.

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/lazycatapps/photo-cache/internal/models"
)

// ErrImageNotFound is returned when a requested image does not exist locally.
var ErrImageNotFound = errors.New("image not found")

// ImageRepository defines the interface for image persistence operations.
//
// The Watch methods return live result channels: each emits the current
// result immediately and a fresh result after every committed mutation that
// may affect it. The channel is closed and the subscription removed when
// the supplied context is cancelled.
type ImageRepository interface {
	UpsertImages(ctx context.Context, records []models.ImageRecord) error
	UpsertImage(ctx context.Context, record models.ImageRecord) error
	GetImage(ctx context.Context, id string) (*models.ImageRecord, error)
	SetFavorite(ctx context.Context, id string, favorite bool) error
	MarkDownloaded(ctx context.Context, id string) error
	ListImages(ctx context.Context) ([]models.ImageRecord, error)
	ListFavorites(ctx context.Context) ([]models.ImageRecord, error)
	ListUndownloaded(ctx context.Context) ([]models.ImageRecord, error)
	DeleteImage(ctx context.Context, id string) error
	WatchImage(ctx context.Context, id string) <-chan *models.ImageRecord
	WatchImages(ctx context.Context) <-chan []models.ImageRecord
	WatchFavorites(ctx context.Context) <-chan []models.ImageRecord
}

// upsertImageQuery refreshes content columns on conflict and leaves the
// local-only flags (is_favorite, is_downloaded) untouched for known ids.
// For previously-unseen ids the flag values of the VALUES clause apply.
const upsertImageQuery = `
	INSERT INTO images
	    (id, regular_url, thumb_url, description, user_name, user_username,
	     likes, created_at, is_favorite, is_downloaded)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
	    regular_url   = excluded.regular_url,
	    thumb_url     = excluded.thumb_url,
	    description   = excluded.description,
	    user_name     = excluded.user_name,
	    user_username = excluded.user_username,
	    likes         = excluded.likes,
	    created_at    = excluded.created_at`

const selectImageColumns = `
	SELECT id, regular_url, thumb_url, description, user_name, user_username,
	       likes, created_at, is_favorite, is_downloaded
	FROM images`

// SQLiteImageRepository implements ImageRepository on SQLite with an
// explicit observer registry for live queries.
type SQLiteImageRepository struct {
	db *sql.DB

	// watchMu guards the watcher maps. Sends and closes both happen under
	// it, so a fan-out never races an unsubscribe.
	watchMu      sync.Mutex
	nextWatchID  int64
	imageWatches map[int64]*imageWatcher
	listWatches  map[int64]*listWatcher
}

type imageWatcher struct {
	id string
	ch chan *models.ImageRecord
}

type listWatcher struct {
	favoritesOnly bool
	ch            chan []models.ImageRecord
}

// NewSQLiteImageRepository creates an image repository over an open database.
func NewSQLiteImageRepository(db *sql.DB) *SQLiteImageRepository {
	return &SQLiteImageRepository{
		db:           db,
		imageWatches: make(map[int64]*imageWatcher),
		listWatches:  make(map[int64]*listWatcher),
	}
}

// UpsertImages inserts or refreshes a batch of records in one transaction.
// Unseen ids are stored with both local flags false regardless of the
// records' flag values; known ids keep their current flags.
func (r *SQLiteImageRepository) UpsertImages(ctx context.Context, records []models.ImageRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, upsertImageQuery)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	ids := make([]string, 0, len(records))
	for _, rec := range records {
		if _, err := stmt.ExecContext(ctx,
			rec.ID, rec.RegularURL, rec.ThumbURL, rec.Description,
			rec.UserName, rec.UserUsername, rec.Likes, rec.CreatedAt,
			false, false,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("upsert image %q: %w", rec.ID, err)
		}
		ids = append(ids, rec.ID)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert: %w", err)
	}

	r.notify(ctx, ids...)
	return nil
}

// UpsertImage inserts or refreshes a single record. If the id is unseen the
// record's flag values are stored (used when a favorite action creates the
// record); known ids keep their current flags.
func (r *SQLiteImageRepository) UpsertImage(ctx context.Context, rec models.ImageRecord) error {
	if _, err := r.db.ExecContext(ctx, upsertImageQuery,
		rec.ID, rec.RegularURL, rec.ThumbURL, rec.Description,
		rec.UserName, rec.UserUsername, rec.Likes, rec.CreatedAt,
		rec.IsFavorite, rec.IsDownloaded,
	); err != nil {
		return fmt.Errorf("upsert image %q: %w", rec.ID, err)
	}

	r.notify(ctx, rec.ID)
	return nil
}

// GetImage returns the record for id, or (nil, nil) when absent.
func (r *SQLiteImageRepository) GetImage(ctx context.Context, id string) (*models.ImageRecord, error) {
	row := r.db.QueryRowContext(ctx, selectImageColumns+" WHERE id = ?", id)
	rec, err := scanImage(row)
	if err != nil {
		return nil, fmt.Errorf("get image %q: %w", id, err)
	}
	return rec, nil
}

// SetFavorite updates the favorite flag in place. No-op for absent ids.
func (r *SQLiteImageRepository) SetFavorite(ctx context.Context, id string, favorite bool) error {
	if _, err := r.db.ExecContext(ctx, "UPDATE images SET is_favorite = ? WHERE id = ?", favorite, id); err != nil {
		return fmt.Errorf("set favorite %q: %w", id, err)
	}
	r.notify(ctx, id)
	return nil
}

// MarkDownloaded sets the downloaded flag. No-op for absent ids.
func (r *SQLiteImageRepository) MarkDownloaded(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "UPDATE images SET is_downloaded = 1 WHERE id = ?", id); err != nil {
		return fmt.Errorf("mark downloaded %q: %w", id, err)
	}
	r.notify(ctx, id)
	return nil
}

// ListImages returns all records ordered by creation time descending.
func (r *SQLiteImageRepository) ListImages(ctx context.Context) ([]models.ImageRecord, error) {
	return r.list(ctx, selectImageColumns+" ORDER BY created_at DESC")
}

// ListFavorites returns favorite records ordered by creation time descending.
func (r *SQLiteImageRepository) ListFavorites(ctx context.Context) ([]models.ImageRecord, error) {
	return r.list(ctx, selectImageColumns+" WHERE is_favorite = 1 ORDER BY created_at DESC")
}

// ListUndownloaded returns a snapshot of records not yet pinned to disk.
func (r *SQLiteImageRepository) ListUndownloaded(ctx context.Context) ([]models.ImageRecord, error) {
	return r.list(ctx, selectImageColumns+" WHERE is_downloaded = 0")
}

// DeleteImage removes a record. Present for lifecycle completeness; not
// called by any sync flow.
func (r *SQLiteImageRepository) DeleteImage(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM images WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete image %q: %w", id, err)
	}
	r.notify(ctx, id)
	return nil
}

// WatchImage subscribes to the record for id.
func (r *SQLiteImageRepository) WatchImage(ctx context.Context, id string) <-chan *models.ImageRecord {
	w := &imageWatcher{id: id, ch: make(chan *models.ImageRecord, 1)}

	r.watchMu.Lock()
	r.nextWatchID++
	key := r.nextWatchID
	r.imageWatches[key] = w
	if rec, err := r.GetImage(ctx, id); err == nil {
		w.ch <- rec
	}
	r.watchMu.Unlock()

	go func() {
		<-ctx.Done()
		r.watchMu.Lock()
		if _, ok := r.imageWatches[key]; ok {
			delete(r.imageWatches, key)
			close(w.ch)
		}
		r.watchMu.Unlock()
	}()

	return w.ch
}

// WatchImages subscribes to the full listing (created_at descending).
func (r *SQLiteImageRepository) WatchImages(ctx context.Context) <-chan []models.ImageRecord {
	return r.watchList(ctx, false)
}

// WatchFavorites subscribes to the favorites listing (created_at descending).
func (r *SQLiteImageRepository) WatchFavorites(ctx context.Context) <-chan []models.ImageRecord {
	return r.watchList(ctx, true)
}

func (r *SQLiteImageRepository) watchList(ctx context.Context, favoritesOnly bool) <-chan []models.ImageRecord {
	w := &listWatcher{favoritesOnly: favoritesOnly, ch: make(chan []models.ImageRecord, 1)}

	r.watchMu.Lock()
	r.nextWatchID++
	key := r.nextWatchID
	r.listWatches[key] = w
	if recs, err := r.listFor(ctx, favoritesOnly); err == nil {
		w.ch <- recs
	}
	r.watchMu.Unlock()

	go func() {
		<-ctx.Done()
		r.watchMu.Lock()
		if _, ok := r.listWatches[key]; ok {
			delete(r.listWatches, key)
			close(w.ch)
		}
		r.watchMu.Unlock()
	}()

	return w.ch
}

// notify fans a committed mutation out to every affected watcher. Each
// watcher receives the freshly queried result; a slow consumer has its
// stale pending value replaced rather than blocking the writer.
func (r *SQLiteImageRepository) notify(ctx context.Context, ids ...string) {
	r.watchMu.Lock()
	defer r.watchMu.Unlock()

	affected := make(map[string]bool, len(ids))
	for _, id := range ids {
		affected[id] = true
	}

	for _, w := range r.imageWatches {
		if !affected[w.id] {
			continue
		}
		rec, err := r.GetImage(ctx, w.id)
		if err != nil {
			continue
		}
		sendLatestImage(w.ch, rec)
	}

	for _, w := range r.listWatches {
		recs, err := r.listFor(ctx, w.favoritesOnly)
		if err != nil {
			continue
		}
		sendLatestList(w.ch, recs)
	}
}

func sendLatestImage(ch chan *models.ImageRecord, rec *models.ImageRecord) {
	select {
	case ch <- rec:
	default:
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- rec:
		default:
		}
	}
}

func sendLatestList(ch chan []models.ImageRecord, recs []models.ImageRecord) {
	select {
	case ch <- recs:
	default:
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- recs:
		default:
		}
	}
}

func (r *SQLiteImageRepository) listFor(ctx context.Context, favoritesOnly bool) ([]models.ImageRecord, error) {
	if favoritesOnly {
		return r.ListFavorites(ctx)
	}
	return r.ListImages(ctx)
}

func (r *SQLiteImageRepository) list(ctx context.Context, query string) ([]models.ImageRecord, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	defer rows.Close()

	records := []models.ImageRecord{}
	for rows.Next() {
		rec, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// scanner matches both *sql.Row and *sql.Rows so scanImage can be reused.
type scanner interface {
	Scan(dest ...any) error
}

func scanImage(s scanner) (*models.ImageRecord, error) {
	var rec models.ImageRecord
	err := s.Scan(
		&rec.ID,
		&rec.RegularURL,
		&rec.ThumbURL,
		&rec.Description,
		&rec.UserName,
		&rec.UserUsername,
		&rec.Likes,
		&rec.CreatedAt,
		&rec.IsFavorite,
		&rec.IsDownloaded,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan image row: %w", err)
	}
	return &rec, nil
}
