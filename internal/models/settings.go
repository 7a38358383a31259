// Copyright (c) 2025 Lazycat Apps
// Licensed under the MIT License. See LICENSE file in the project root for details.

package models

// SyncIntervals lists the supported periodic sync intervals in minutes.
var SyncIntervals = []int{5, 15, 30, 60}

// DefaultSyncInterval is the periodic sync interval used until the user
// picks one.
const DefaultSyncInterval = 15

// Settings is the process-wide user preference record.
type Settings struct {
	SyncEnabled  bool `json:"syncEnabled"`  // Whether background sync is armed
	SyncInterval int  `json:"syncInterval"` // Periodic sync interval in minutes
}

// DefaultSettings returns the settings used before any update is persisted.
func DefaultSettings() Settings {
	return Settings{
		SyncEnabled:  false,
		SyncInterval: DefaultSyncInterval,
	}
}
