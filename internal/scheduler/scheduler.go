// Package scheduler repeats scrape runs on a fixed interval.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const DefaultInterval = time.Hour

// RunFunc performs one scrape run.
type RunFunc func(ctx context.Context) error

// Locker guards a run across processes. ok is false when another holder has it.
type Locker interface {
	Acquire(ctx context.Context) (release func(), ok bool, err error)
}

type Scheduler struct {
	Interval time.Duration
	Run      RunFunc
	// Lock is optional; without it overlap is only prevented within this process.
	Lock   Locker
	Logger *slog.Logger

	running sync.Mutex
	wg      sync.WaitGroup
}

func New(interval time.Duration, run RunFunc, lock Locker, logger *slog.Logger) *Scheduler {
	return &Scheduler{Interval: interval, Run: run, Lock: lock, Logger: logger}
}

// Start runs once immediately and then on every tick until ctx is done.
// A tick that fires while the previous run is still going is skipped.
// Start returns after the last in-flight run finishes.
func (s *Scheduler) Start(ctx context.Context) error {
	interval := s.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	log := s.logger()
	log.InfoContext(ctx, "scheduler started", slog.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.launch(ctx)
	for {
		select {
		case <-ctx.Done():
			log.InfoContext(ctx, "scheduler stopping, waiting for current run")
			s.wg.Wait()
			return ctx.Err()
		case <-ticker.C:
			s.launch(ctx)
		}
	}
}

func (s *Scheduler) launch(ctx context.Context) {
	if !s.running.TryLock() {
		s.logger().WarnContext(ctx, "previous run still in progress, skipping tick")
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.running.Unlock()
		s.tick(ctx)
	}()
}

// Tick performs one guarded run synchronously. It reports whether the run
// actually happened.
func (s *Scheduler) Tick(ctx context.Context) bool {
	if !s.running.TryLock() {
		return false
	}
	defer s.running.Unlock()
	return s.tick(ctx)
}

func (s *Scheduler) tick(ctx context.Context) (ran bool) {
	log := s.logger()

	if s.Lock != nil {
		release, ok, err := s.Lock.Acquire(ctx)
		if err != nil {
			log.ErrorContext(ctx, "failed to acquire run lock", slog.Any("error", err))
			return false
		}
		if !ok {
			log.WarnContext(ctx, "another process holds the run lock, skipping tick")
			return false
		}
		defer release()
	}

	defer func() {
		if r := recover(); r != nil {
			log.ErrorContext(ctx, "scrape run panicked", slog.Any("error", fmt.Errorf("%v", r)))
		}
	}()

	ran = true
	if err := s.Run(ctx); err != nil {
		log.ErrorContext(ctx, "scrape run failed", slog.Any("error", err))
	}
	return ran
}

func (s *Scheduler) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
