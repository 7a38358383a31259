// Copyright (c) 2025 Lazycat Apps
// Licensed under the MIT License. See LICENSE file in the project root for details.

package models

import (
	"sync"
	"time"
)

// RunStatus represents the current state of a background sync run.
type RunStatus string

const (
	RunPending   RunStatus = "pending"   // Run created, not yet started
	RunRunning   RunStatus = "running"   // Run is currently executing
	RunCompleted RunStatus = "completed" // Run completed (possibly with per-image failures)
	RunFailed    RunStatus = "failed"    // Run failed before the prefetch loop started
)

// Run triggers.
const (
	TriggerManual   = "manual"   // Requested via the API
	TriggerInitial  = "initial"  // One-off run armed when sync is enabled
	TriggerPeriodic = "periodic" // Periodic schedule tick
)

// SyncRun represents one invocation of the background prefetch worker.
// It tracks run metadata, status, logs, and provides real-time log
// streaming to clients.
type SyncRun struct {
	ID           string        `json:"id"`                  // Unique run identifier (UUID)
	Trigger      string        `json:"trigger"`             // What started the run (manual/initial/periodic)
	Status       RunStatus     `json:"status"`              // Current run status
	Message      string        `json:"message"`             // Human-readable status message
	CachedCount  int           `json:"cachedCount"`         // Images pinned to disk during this run
	FailedCount  int           `json:"failedCount"`         // Images whose caching failed during this run
	StartTime    time.Time     `json:"startTime"`           // Run start timestamp
	EndTime      *time.Time    `json:"endTime,omitempty"`   // Run end timestamp (nil if not completed)
	LogLines     []string      `json:"-"`                   // In-memory log lines (not serialized)
	LogListeners []chan string `json:"-"`                   // Active log stream subscribers (SSE)
	logMu        sync.Mutex    // Mutex for thread-safe log operations
}

// NewSyncRun creates a new sync run with initial pending status.
func NewSyncRun(id, trigger string) *SyncRun {
	return &SyncRun{
		ID:           id,
		Trigger:      trigger,
		Status:       RunPending,
		Message:      "Run created",
		StartTime:    time.Now(),
		LogLines:     []string{},
		LogListeners: []chan string{},
	}
}

// AddLog appends a log line to the run and broadcasts it to all active listeners.
// Thread-safe for concurrent access.
func (r *SyncRun) AddLog(line string) {
	r.logMu.Lock()
	defer r.logMu.Unlock()

	r.LogLines = append(r.LogLines, line)
	// Broadcast to all SSE listeners
	for _, ch := range r.LogListeners {
		select {
		case ch <- line:
			// Successfully sent
		default:
			// Channel is full or closed, skip this listener
		}
	}
}

// AddLogListener creates a new log listener channel for SSE streaming.
// Returns a buffered channel that will receive new log lines.
func (r *SyncRun) AddLogListener() chan string {
	r.logMu.Lock()
	defer r.logMu.Unlock()

	ch := make(chan string, 100)
	r.LogListeners = append(r.LogListeners, ch)
	return ch
}

// RemoveLogListener removes and closes a log listener channel.
// Should be called when an SSE client disconnects.
func (r *SyncRun) RemoveLogListener(ch chan string) {
	r.logMu.Lock()
	defer r.logMu.Unlock()

	for i, listener := range r.LogListeners {
		if listener == ch {
			r.LogListeners = append(r.LogListeners[:i], r.LogListeners[i+1:]...)
			close(ch)
			break
		}
	}
}

// CloseAllLogListeners closes all active log listener channels.
// Called when a run completes to notify all SSE clients.
func (r *SyncRun) CloseAllLogListeners() {
	r.logMu.Lock()
	defer r.logMu.Unlock()

	for _, ch := range r.LogListeners {
		close(ch)
	}
	r.LogListeners = []chan string{}
}

// GetLogLines returns a copy of all log lines.
// Thread-safe for concurrent access.
func (r *SyncRun) GetLogLines() []string {
	r.logMu.Lock()
	defer r.logMu.Unlock()

	logs := make([]string, len(r.LogLines))
	copy(logs, r.LogLines)
	return logs
}

// RunListRequest represents query parameters for listing sync runs.
type RunListRequest struct {
	Page     int       `form:"page,default=1"`      // Page number (default: 1)
	PageSize int       `form:"pageSize,default=20"` // Items per page (default: 20, max: 100)
	Status   RunStatus `form:"status"`              // Filter by status (optional)
}

// RunSummary represents a summarized view of a run (without full logs).
type RunSummary struct {
	ID          string     `json:"id"`
	Trigger     string     `json:"trigger"`
	Status      RunStatus  `json:"status"`
	Message     string     `json:"message"`
	CachedCount int        `json:"cachedCount"`
	FailedCount int        `json:"failedCount"`
	StartTime   time.Time  `json:"startTime"`
	EndTime     *time.Time `json:"endTime,omitempty"`
}

// RunListResponse represents the response for run list queries.
type RunListResponse struct {
	Total    int           `json:"total"`    // Total number of runs matching filter
	Page     int           `json:"page"`     // Current page number
	PageSize int           `json:"pageSize"` // Items per page
	Runs     []*RunSummary `json:"runs"`     // Run summaries for current page
}
