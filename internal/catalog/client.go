// Copyright (c) 2025 Lazycat Apps
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package catalog provides the HTTP client for the remote photo catalog
// service. The catalog is an Unsplash-style JSON API authenticated with a
// static access key passed as the client_id query parameter.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/lazycatapps/photo-cache/internal/pkg/logger"
)

// ErrRemoteUnavailable is returned for any transport error or non-2xx
// response from the catalog. Callers do not distinguish status codes;
// cached data is preferred over failure wherever it exists.
var ErrRemoteUnavailable = errors.New("remote catalog unavailable")

// Photo is a single catalog photo as returned by the remote service.
type Photo struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	URLs        PhotoURLs `json:"urls"`
	User        PhotoUser `json:"user"`
	Likes       int       `json:"likes"`
	CreatedAt   string    `json:"created_at"`
}

// PhotoURLs holds the image locations of a photo at various resolutions.
type PhotoURLs struct {
	Raw     string `json:"raw"`
	Full    string `json:"full"`
	Regular string `json:"regular"`
	Small   string `json:"small"`
	Thumb   string `json:"thumb"`
}

// PhotoUser is the photo's attribution.
type PhotoUser struct {
	Name     string `json:"name"`
	Username string `json:"username"`
}

// SearchResult is the response of a catalog search.
type SearchResult struct {
	Total      int     `json:"total"`
	TotalPages int     `json:"total_pages"`
	Results    []Photo `json:"results"`
}

// Client defines the remote catalog operations consumed by the
// synchronization policy.
type Client interface {
	ListPhotos(ctx context.Context, page, perPage int) ([]Photo, error)
	SearchPhotos(ctx context.Context, query string, page, perPage int) (*SearchResult, error)
	GetPhoto(ctx context.Context, id string) (*Photo, error)
}

// HTTPClient implements Client against a live catalog endpoint.
type HTTPClient struct {
	baseURL    string
	accessKey  string
	httpClient *http.Client
	logger     logger.Logger
}

// NewHTTPClient creates a catalog client. timeout is the per-request
// timeout in seconds.
func NewHTTPClient(baseURL, accessKey string, timeout int, log logger.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL:   baseURL,
		accessKey: accessKey,
		httpClient: &http.Client{
			Timeout: time.Duration(timeout) * time.Second,
		},
		logger: log,
	}
}

// ListPhotos returns one page of the catalog photo listing.
func (c *HTTPClient) ListPhotos(ctx context.Context, page, perPage int) ([]Photo, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(perPage))

	var photos []Photo
	if err := c.get(ctx, "/photos", params, &photos); err != nil {
		return nil, err
	}
	return photos, nil
}

// SearchPhotos returns one page of search results for the given query.
func (c *HTTPClient) SearchPhotos(ctx context.Context, query string, page, perPage int) (*SearchResult, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(perPage))

	var result SearchResult
	if err := c.get(ctx, "/search/photos", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetPhoto returns a single photo by id.
func (c *HTTPClient) GetPhoto(ctx context.Context, id string) (*Photo, error) {
	var photo Photo
	if err := c.get(ctx, "/photos/"+url.PathEscape(id), nil, &photo); err != nil {
		return nil, err
	}
	return &photo, nil
}

// get performs a GET request against the catalog and decodes the JSON
// response into out. Every failure mode collapses into ErrRemoteUnavailable.
func (c *HTTPClient) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("client_id", c.accessKey)

	reqURL := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("%w: building request: %v", ErrRemoteUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("Catalog request failed: GET %s: %v", path, err)
		return fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain so the connection can be reused.
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		c.logger.Debug("Catalog request failed: GET %s: status %d", path, resp.StatusCode)
		return fmt.Errorf("%w: unexpected status %d", ErrRemoteUnavailable, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding response: %v", ErrRemoteUnavailable, err)
	}
	return nil
}
