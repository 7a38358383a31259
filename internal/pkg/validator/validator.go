// Copyright (c) 2025 Lazycat Apps
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package validator provides input validation for API request fields.
package validator

import (
	"fmt"
	"regexp"

	"github.com/lazycatapps/photo-cache/internal/models"
)

const (
	maxImageIDLength = 64
	maxQueryLength   = 256
)

// imageIDPattern matches catalog photo identifiers (URL-safe token).
var imageIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidateImageID checks that an image identifier is a plausible catalog id.
func ValidateImageID(id string) error {
	if id == "" {
		return fmt.Errorf("image id must not be empty")
	}
	if len(id) > maxImageIDLength {
		return fmt.Errorf("image id exceeds %d characters", maxImageIDLength)
	}
	if !imageIDPattern.MatchString(id) {
		return fmt.Errorf("image id contains invalid characters")
	}
	return nil
}

// ValidatePage checks that a page number is positive.
func ValidatePage(page int) error {
	if page < 1 {
		return fmt.Errorf("page must be >= 1, got %d", page)
	}
	return nil
}

// ValidateQuery checks a search query string.
func ValidateQuery(query string) error {
	if query == "" {
		return fmt.Errorf("query must not be empty")
	}
	if len(query) > maxQueryLength {
		return fmt.Errorf("query exceeds %d characters", maxQueryLength)
	}
	return nil
}

// ValidateSyncInterval checks that the interval is one of the supported values.
func ValidateSyncInterval(minutes int) error {
	for _, allowed := range models.SyncIntervals {
		if minutes == allowed {
			return nil
		}
	}
	return fmt.Errorf("sync interval must be one of %v minutes, got %d", models.SyncIntervals, minutes)
}
