// Copyright (c) 2025 Lazycat Apps
// Licensed under the MIT License. See LICENSE file in the project root for details.

package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lazycatapps/photo-cache/internal/pkg/logger"
)

func newTestScheduler() *Scheduler {
	return New(AlwaysOnline{}, 10*time.Millisecond, logger.New())
}

func TestScheduler_OneOffRuns(t *testing.T) {
	s := newTestScheduler()
	defer s.Stop()

	done := make(chan struct{})
	s.Enqueue(JobSpec{
		Name:   "one-off",
		Policy: PolicyReplace,
		Job: func(ctx context.Context) Result {
			close(done)
			return ResultSuccess
		},
	})

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("Timeout waiting for one-off job")
	}

	// A finished one-off job disarms itself.
	deadline := time.After(1 * time.Second)
	for s.Armed("one-off") {
		select {
		case <-deadline:
			t.Fatal("Expected one-off job to disarm after completion")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestScheduler_PeriodicRuns(t *testing.T) {
	s := newTestScheduler()
	defer s.Stop()

	var runs atomic.Int32
	s.Enqueue(JobSpec{
		Name:   "periodic",
		Every:  20 * time.Millisecond,
		Policy: PolicyUpdate,
		Job: func(ctx context.Context) Result {
			runs.Add(1)
			return ResultSuccess
		},
	})

	deadline := time.After(2 * time.Second)
	for runs.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("Expected at least 2 periodic runs, got %d", runs.Load())
		case <-time.After(10 * time.Millisecond):
		}
	}

	s.Cancel("periodic")
	if s.Armed("periodic") {
		t.Error("Expected job to be disarmed after cancel")
	}
}

func TestScheduler_PolicyKeep(t *testing.T) {
	s := newTestScheduler()
	defer s.Stop()

	s.Enqueue(JobSpec{Name: "job", Every: time.Hour, Policy: PolicyKeep, Job: func(ctx context.Context) Result { return ResultSuccess }})
	s.Enqueue(JobSpec{Name: "job", Every: time.Minute, Policy: PolicyKeep, Job: func(ctx context.Context) Result { return ResultSuccess }})

	if got := s.ArmedInterval("job"); got != time.Hour {
		t.Errorf("Expected the first arming to be kept (1h), got %s", got)
	}
}

func TestScheduler_PolicyUpdateChangesInterval(t *testing.T) {
	s := newTestScheduler()
	defer s.Stop()

	s.Enqueue(JobSpec{Name: "job", Every: time.Hour, Policy: PolicyUpdate, Job: func(ctx context.Context) Result { return ResultSuccess }})
	s.Enqueue(JobSpec{Name: "job", Every: time.Minute, Policy: PolicyUpdate, Job: func(ctx context.Context) Result { return ResultSuccess }})

	if got := s.ArmedInterval("job"); got != time.Minute {
		t.Errorf("Expected update to re-arm with 1m, got %s", got)
	}
}

func TestScheduler_Reconcile(t *testing.T) {
	s := newTestScheduler()
	defer s.Stop()

	noop := func(ctx context.Context) Result { return ResultSuccess }

	s.Reconcile([]JobSpec{
		{Name: "a", Every: time.Hour, Policy: PolicyUpdate, Job: noop},
		{Name: "b", Every: time.Hour, Policy: PolicyUpdate, Job: noop},
	})

	if !s.Armed("a") || !s.Armed("b") {
		t.Fatal("Expected both jobs armed after reconcile")
	}

	// Dropping a job from the desired set cancels it.
	s.Reconcile([]JobSpec{
		{Name: "a", Every: time.Hour, Policy: PolicyUpdate, Job: noop},
	})

	if !s.Armed("a") {
		t.Error("Expected job a to stay armed")
	}
	if s.Armed("b") {
		t.Error("Expected job b to be cancelled")
	}

	// An empty desired set cancels everything.
	s.Reconcile(nil)
	if s.Armed("a") {
		t.Error("Expected all jobs cancelled by empty reconcile")
	}
}

func TestScheduler_RetryRequested(t *testing.T) {
	s := newTestScheduler()
	defer s.Stop()

	var runs atomic.Int32
	s.Enqueue(JobSpec{
		Name:   "retry",
		Policy: PolicyReplace,
		Job: func(ctx context.Context) Result {
			if runs.Add(1) == 1 {
				return ResultRetry
			}
			return ResultSuccess
		},
	})

	deadline := time.After(2 * time.Second)
	for runs.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("Expected a retry invocation, got %d runs", runs.Load())
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestScheduler_WaitsForConnectivity(t *testing.T) {
	online := &switchableConnectivity{}
	s := New(online, 10*time.Millisecond, logger.New())
	defer s.Stop()

	done := make(chan struct{})
	s.Enqueue(JobSpec{
		Name:   "gated",
		Policy: PolicyReplace,
		Job: func(ctx context.Context) Result {
			close(done)
			return ResultSuccess
		},
	})

	select {
	case <-done:
		t.Fatal("Job ran while offline")
	case <-time.After(50 * time.Millisecond):
	}

	online.set(true)

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("Timeout waiting for job after going online")
	}
}

type switchableConnectivity struct {
	online atomic.Bool
}

func (c *switchableConnectivity) Online(ctx context.Context) bool {
	return c.online.Load()
}

func (c *switchableConnectivity) set(v bool) {
	c.online.Store(v)
}
