// Copyright (c) 2025 Lazycat Apps
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package scheduler runs named unique background jobs, one-off or
// periodic, gated on network connectivity.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/lazycatapps/photo-cache/internal/pkg/logger"
)

// Result is what a job reports back to the scheduler.
type Result int

const (
	// ResultSuccess means the run completed; the next periodic tick (if any)
	// picks up whatever is left.
	ResultSuccess Result = iota
	// ResultRetry requests one delayed re-run of this invocation.
	ResultRetry
)

// JobFunc is a job entry point. It must honor ctx cancellation.
type JobFunc func(ctx context.Context) Result

// Policy decides what happens when a job is enqueued under a name that is
// already armed.
type Policy string

const (
	PolicyKeep    Policy = "keep"    // Keep the armed job, drop the new one
	PolicyReplace Policy = "replace" // Cancel the armed job, arm the new one
	PolicyUpdate  Policy = "update"  // Re-arm with the new spec (same as replace for one-offs)
)

// JobSpec describes a named unique job. Every == 0 arms a one-off job that
// runs once as soon as connectivity allows; otherwise the job runs on every
// tick of the interval.
type JobSpec struct {
	Name   string
	Every  time.Duration
	Policy Policy
	Job    JobFunc
}

// Scheduler arms and cancels named jobs. All jobs share one base context;
// Stop cancels everything and waits for running jobs to return.
type Scheduler struct {
	conn       Connectivity
	retryDelay time.Duration
	logger     logger.Logger

	mu   sync.Mutex
	jobs map[string]*armedJob

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

type armedJob struct {
	spec   JobSpec
	cancel context.CancelFunc
}

// New creates a scheduler. retryDelay is used both as the re-check interval
// while waiting for connectivity and as the delay before a requested retry.
func New(conn Connectivity, retryDelay time.Duration, log logger.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		conn:       conn,
		retryDelay: retryDelay,
		logger:     log,
		jobs:       make(map[string]*armedJob),
		baseCtx:    ctx,
		cancel:     cancel,
	}
}

// Enqueue arms a job under its unique name, applying the spec's policy
// against any job already armed under that name.
func (s *Scheduler) Enqueue(spec JobSpec) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.jobs[spec.Name]; ok {
		if spec.Policy == PolicyKeep {
			return
		}
		// An Update with an unchanged interval keeps the armed job so its
		// tick phase is not reset by a no-op settings write.
		if spec.Policy == PolicyUpdate && existing.spec.Every == spec.Every {
			return
		}
		existing.cancel()
		delete(s.jobs, spec.Name)
	}

	ctx, cancel := context.WithCancel(s.baseCtx)
	job := &armedJob{spec: spec, cancel: cancel}
	s.jobs[spec.Name] = job

	s.wg.Add(1)
	go s.run(ctx, job)

	if spec.Every > 0 {
		s.logger.Info("Armed periodic job %q (every %s)", spec.Name, spec.Every)
	} else {
		s.logger.Info("Armed one-off job %q", spec.Name)
	}
}

// Cancel disarms the named job. Unknown names are ignored.
func (s *Scheduler) Cancel(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if job, ok := s.jobs[name]; ok {
		job.cancel()
		delete(s.jobs, name)
		s.logger.Info("Cancelled job %q", name)
	}
}

// Reconcile diffs the desired job set against what is armed: jobs not in
// the desired set are cancelled, desired jobs are enqueued under their own
// policies. Idempotent — reconciling the same desired set twice leaves
// PolicyKeep jobs untouched.
func (s *Scheduler) Reconcile(desired []JobSpec) {
	wanted := make(map[string]bool, len(desired))
	for _, spec := range desired {
		wanted[spec.Name] = true
	}

	s.mu.Lock()
	var stale []string
	for name := range s.jobs {
		if !wanted[name] {
			stale = append(stale, name)
		}
	}
	s.mu.Unlock()

	for _, name := range stale {
		s.Cancel(name)
	}
	for _, spec := range desired {
		s.Enqueue(spec)
	}
}

// Armed reports whether a job is currently armed under name.
func (s *Scheduler) Armed(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.jobs[name]
	return ok
}

// ArmedInterval returns the interval of the named armed job, or zero when
// the job is absent or one-off.
func (s *Scheduler) ArmedInterval(name string) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[name]; ok {
		return job.spec.Every
	}
	return 0
}

// Stop cancels all jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context, job *armedJob) {
	defer s.wg.Done()

	if job.spec.Every == 0 {
		s.invoke(ctx, job.spec)
		s.removeIfArmed(job)
		return
	}

	ticker := time.NewTicker(job.spec.Every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.invoke(ctx, job.spec)
		}
	}
}

// invoke waits out the connectivity precondition, runs the job, and honors
// a single delayed retry request.
func (s *Scheduler) invoke(ctx context.Context, spec JobSpec) {
	for !s.conn.Online(ctx) {
		s.logger.Debug("Job %q waiting for connectivity", spec.Name)
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.retryDelay):
		}
	}

	if spec.Job(ctx) != ResultRetry {
		return
	}

	s.logger.Info("Job %q requested retry, re-running in %s", spec.Name, s.retryDelay)
	select {
	case <-ctx.Done():
		return
	case <-time.After(s.retryDelay):
	}
	if s.conn.Online(ctx) {
		spec.Job(ctx)
	}
}

// removeIfArmed drops a finished one-off job, unless it has already been
// replaced by a newer arming under the same name.
func (s *Scheduler) removeIfArmed(job *armedJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.jobs[job.spec.Name]; ok && current == job {
		delete(s.jobs, job.spec.Name)
	}
}
