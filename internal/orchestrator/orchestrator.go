// Package orchestrator runs every source fetch of a scrape run concurrently.
// Each source retries on its own; one failing source never holds up or
// fails the others.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/hanzlahyasir/price-alert-notifier-telegram-bot/internal/models"
	"github.com/hanzlahyasir/price-alert-notifier-telegram-bot/internal/platform"
	"github.com/hanzlahyasir/price-alert-notifier-telegram-bot/internal/retry"
)

// FetchFunc fetches one source. An error means the attempt failed and may be
// retried; an empty slice means the source had nothing to report.
type FetchFunc func(ctx context.Context) ([]models.ScrapedItem, error)

// HandleFunc receives a source's batch in the goroutine that fetched it.
// items is empty when the source exhausted its retries.
type HandleFunc func(ctx context.Context, site string, items []models.ScrapedItem)

// FromSources keys each source's Fetch by its name.
func FromSources(sources []platform.Source) map[string]FetchFunc {
	out := make(map[string]FetchFunc, len(sources))
	for _, s := range sources {
		out[s.Name()] = s.Fetch
	}
	return out
}

type Orchestrator struct {
	Policy retry.Policy
	// MaxConcurrent caps simultaneous fetch attempts. A source waiting out a
	// retry backoff does not hold a slot. Zero means no cap.
	MaxConcurrent int
	Logger        *slog.Logger
}

func New(policy retry.Policy, maxConcurrent int, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{Policy: policy, MaxConcurrent: maxConcurrent, Logger: logger}
}

// Run fetches every source and returns each batch keyed by site.
// Sources that exhausted their retries map to an empty slice.
func (o *Orchestrator) Run(ctx context.Context, sources map[string]FetchFunc) map[string][]models.ScrapedItem {
	var mu sync.Mutex
	out := make(map[string][]models.ScrapedItem, len(sources))

	o.RunEach(ctx, sources, func(_ context.Context, site string, items []models.ScrapedItem) {
		mu.Lock()
		out[site] = items
		mu.Unlock()
	})
	return out
}

// RunEach fetches every source and calls handle as soon as each one resolves.
// It returns after all handlers have returned.
func (o *Orchestrator) RunEach(ctx context.Context, sources map[string]FetchFunc, handle HandleFunc) {
	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	sort.Strings(names)

	var sem *semaphore.Weighted
	if o.MaxConcurrent > 0 {
		sem = semaphore.NewWeighted(int64(o.MaxConcurrent))
	}

	// No WithContext: a failed source must not cancel its siblings.
	var g errgroup.Group
	for _, name := range names {
		fetch := sources[name]
		g.Go(func() error {
			items := o.fetch(ctx, name, fetch, sem)
			if handle != nil {
				handle(ctx, name, items)
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (o *Orchestrator) fetch(ctx context.Context, site string, fetch FetchFunc, sem *semaphore.Weighted) []models.ScrapedItem {
	log := o.logger().With(slog.String("site", site))

	var items []models.ScrapedItem
	err := o.Policy.Do(ctx, func(ctx context.Context) (err error) {
		if sem != nil {
			if err := sem.Acquire(ctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)
		}
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic in fetch: %v", r)
			}
		}()
		items, err = fetch(ctx)
		return err
	}, func(a retry.Attempt) {
		log.WarnContext(ctx, "fetch failed, retrying",
			slog.Int("attempt", a.Number),
			slog.Int("max_attempts", a.Max),
			slog.Duration("backoff", a.Delay),
			slog.Any("error", a.Err))
	})
	if err != nil {
		log.ErrorContext(ctx, "source exhausted retries", slog.Any("error", err))
		platform.Progressf(ctx, "%s: failed", site)
		return []models.ScrapedItem{}
	}

	if items == nil {
		items = []models.ScrapedItem{}
	}
	log.DebugContext(ctx, "source fetched", slog.Int("items", len(items)))
	platform.Progressf(ctx, "%s: %d items", site, len(items))
	return items
}

func (o *Orchestrator) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}
