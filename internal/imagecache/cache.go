// Copyright (c) 2025 Lazycat Apps
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package imagecache pins image bytes to local storage. Entries are
// content-addressed by the SHA-256 of their URL, so a cache request for a
// URL that is already on disk is a cheap no-op.
package imagecache

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/lazycatapps/photo-cache/internal/pkg/logger"
)

const (
	downloadTimeout = 60 * time.Second

	// maxMemoryEntries bounds the in-memory cache; thumbnails dominate it
	// and eviction is oldest-first.
	maxMemoryEntries = 128
	maxMemoryBytes   = 1 << 20 // 1 MiB per entry
)

// Request describes one caching operation.
type Request struct {
	URL         string // Image location to fetch
	DiskCache   bool   // Pin the bytes to disk
	MemoryCache bool   // Keep the bytes in memory for display reads
}

// Cache is the image cache consumed by the prefetch worker and the
// display path.
type Cache interface {
	Execute(ctx context.Context, req Request) error
	Contains(url string) bool
	Open(url string) (io.ReadCloser, error)
}

// DiskCache implements Cache with a directory of content-addressed files
// plus a small bounded memory cache.
type DiskCache struct {
	dir        string
	httpClient *http.Client
	logger     logger.Logger

	memMu    sync.Mutex
	memory   map[string][]byte
	memOrder []string
}

// NewDiskCache creates a cache rooted at dir, creating it if needed.
func NewDiskCache(dir string, log logger.Logger) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	return &DiskCache{
		dir:        dir,
		httpClient: &http.Client{Timeout: downloadTimeout},
		logger:     log,
		memory:     make(map[string][]byte),
	}, nil
}

// Execute fetches the URL and stores it according to the request policy.
// A URL already on disk is not re-downloaded.
func (c *DiskCache) Execute(ctx context.Context, req Request) error {
	if req.URL == "" {
		return fmt.Errorf("image cache: empty url")
	}

	path := c.path(req.URL)

	if req.DiskCache {
		if _, err := os.Stat(path); err == nil {
			if req.MemoryCache {
				c.promote(req.URL, path)
			}
			return nil
		}
	}

	data, err := c.download(ctx, req.URL)
	if err != nil {
		return err
	}

	if req.DiskCache {
		if err := writeAtomic(path, data); err != nil {
			return fmt.Errorf("image cache: writing %s: %w", req.URL, err)
		}
	}

	if req.MemoryCache && len(data) <= maxMemoryBytes {
		c.store(req.URL, data)
	}

	return nil
}

// Contains reports whether the URL's bytes are pinned to disk.
func (c *DiskCache) Contains(url string) bool {
	_, err := os.Stat(c.path(url))
	return err == nil
}

// Open returns a reader over the cached bytes for url. Memory entries are
// preferred; otherwise the disk file is opened.
func (c *DiskCache) Open(url string) (io.ReadCloser, error) {
	c.memMu.Lock()
	data, ok := c.memory[url]
	c.memMu.Unlock()
	if ok {
		return io.NopCloser(bytes.NewReader(data)), nil
	}

	f, err := os.Open(c.path(url))
	if err != nil {
		return nil, fmt.Errorf("image cache: %s not cached: %w", url, err)
	}
	return f, nil
}

func (c *DiskCache) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("image cache: building request for %s: %w", url, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("image cache: fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("image cache: fetching %s: unexpected status %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("image cache: reading %s: %w", url, err)
	}
	return data, nil
}

func (c *DiskCache) path(url string) string {
	sum := sha256.Sum256([]byte(url))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:]))
}

// promote loads a disk entry into the memory cache.
func (c *DiskCache) promote(url, path string) {
	data, err := os.ReadFile(path)
	if err != nil || len(data) > maxMemoryBytes {
		return
	}
	c.store(url, data)
}

func (c *DiskCache) store(url string, data []byte) {
	c.memMu.Lock()
	defer c.memMu.Unlock()

	if _, exists := c.memory[url]; !exists {
		c.memOrder = append(c.memOrder, url)
	}
	c.memory[url] = data

	for len(c.memOrder) > maxMemoryEntries {
		oldest := c.memOrder[0]
		c.memOrder = c.memOrder[1:]
		delete(c.memory, oldest)
	}
}

// writeAtomic writes data to a temp file in the target directory and
// renames it into place, so readers never observe partial entries.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".download-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
