package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestStartRunsImmediatelyAndOnTicks(t *testing.T) {
	var runs atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())

	s := New(10*time.Millisecond, func(context.Context) error {
		if runs.Add(1) >= 3 {
			cancel()
		}
		return nil
	}, nil, quietLogger())

	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Start returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	if runs.Load() < 3 {
		t.Fatalf("runs: got %d, want >= 3", runs.Load())
	}
}

func TestOverlappingTickIsSkipped(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var runs atomic.Int32

	s := New(time.Hour, func(context.Context) error {
		runs.Add(1)
		close(started)
		<-release
		return nil
	}, nil, quietLogger())

	go s.Tick(context.Background())
	<-started

	if s.Tick(context.Background()) {
		t.Fatal("second tick ran while the first was in progress")
	}
	close(release)
	if runs.Load() != 1 {
		t.Fatalf("runs: got %d, want 1", runs.Load())
	}
}

type fakeLock struct{ held bool }

func (l *fakeLock) Acquire(context.Context) (func(), bool, error) {
	if l.held {
		return nil, false, nil
	}
	l.held = true
	return func() { l.held = false }, true, nil
}

func TestLockHeldElsewhereSkips(t *testing.T) {
	lock := &fakeLock{held: true}
	ran := false
	s := New(time.Hour, func(context.Context) error { ran = true; return nil }, lock, quietLogger())

	if s.Tick(context.Background()) || ran {
		t.Fatal("run happened while another process held the lock")
	}

	lock.held = false
	if !s.Tick(context.Background()) || !ran {
		t.Fatal("run did not happen with the lock free")
	}
	if lock.held {
		t.Fatal("lock not released after run")
	}
}

func TestPanicIsRecovered(t *testing.T) {
	s := New(time.Hour, func(context.Context) error { panic("boom") }, nil, quietLogger())
	if !s.Tick(context.Background()) {
		t.Fatal("tick should report the run happened")
	}
	// the in-process guard must be released after a panic
	if !s.Tick(context.Background()) {
		t.Fatal("second tick blocked after panic")
	}
}
