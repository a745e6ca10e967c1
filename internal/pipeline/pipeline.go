// Package pipeline wires one scrape run: fetch every source, diff each batch
// against the store as soon as it arrives, then flush the queued alerts.
package pipeline

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hanzlahyasir/price-alert-notifier-telegram-bot/internal/alert"
	"github.com/hanzlahyasir/price-alert-notifier-telegram-bot/internal/diff"
	"github.com/hanzlahyasir/price-alert-notifier-telegram-bot/internal/models"
	"github.com/hanzlahyasir/price-alert-notifier-telegram-bot/internal/orchestrator"
	"github.com/hanzlahyasir/price-alert-notifier-telegram-bot/internal/storage"
)

type Runner struct {
	Sources      map[string]orchestrator.FetchFunc
	Orchestrator *orchestrator.Orchestrator
	Engine       *diff.Engine
	Store        storage.Store
	Dispatcher   *alert.Dispatcher
	Logger       *slog.Logger
}

// SiteSummary is the outcome for one source.
type SiteSummary struct {
	Site    string      `json:"site"`
	Fetched int         `json:"fetched"`
	Result  diff.Result `json:"result"`
	Error   string      `json:"error,omitempty"`
}

type Summary struct {
	RunID      string            `json:"run_id"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Sites      []SiteSummary     `json:"sites"`
	Totals     diff.Result       `json:"totals"`
	Alerts     alert.FlushReport `json:"alerts"`
}

// RunOnce performs one full run. It only returns an error if ctx is done;
// source, store and transport failures are logged and reflected in the summary.
func (r *Runner) RunOnce(ctx context.Context) (Summary, error) {
	runID := uuid.NewString()
	log := r.logger().With(slog.String("run_id", runID))
	sum := Summary{RunID: runID, StartedAt: time.Now().UTC()}

	log.InfoContext(ctx, "scrape run started", slog.Int("sources", len(r.Sources)))

	var mu sync.Mutex
	r.Orchestrator.RunEach(ctx, r.Sources, func(ctx context.Context, site string, items []models.ScrapedItem) {
		ss := SiteSummary{Site: site, Fetched: len(items)}
		res, err := r.Engine.Process(ctx, site, items, r.Store, r.Dispatcher)
		ss.Result = res
		if err != nil {
			ss.Error = err.Error()
			log.WarnContext(ctx, "batch interrupted", slog.String("site", site), slog.Any("error", err))
		}
		log.InfoContext(ctx, "batch processed",
			slog.String("site", site),
			slog.Int("items", len(items)),
			slog.Int("new", res.New),
			slog.Int("updated", res.Updated),
			slog.Int("alerts", res.Alerts))

		mu.Lock()
		sum.Sites = append(sum.Sites, ss)
		sum.Totals.Add(res)
		mu.Unlock()
	})
	sort.Slice(sum.Sites, func(i, j int) bool { return sum.Sites[i].Site < sum.Sites[j].Site })

	// Alerts already queued are flushed even when ctx was cancelled mid-run.
	sum.Alerts = r.Dispatcher.Flush(context.WithoutCancel(ctx))
	sum.FinishedAt = time.Now().UTC()

	log.InfoContext(ctx, "scrape run finished",
		slog.Int("new", sum.Totals.New),
		slog.Int("updated", sum.Totals.Updated),
		slog.Int("alerts_sent", sum.Alerts.Sent),
		slog.Int("alerts_failed", sum.Alerts.Failed),
		slog.Duration("took", sum.FinishedAt.Sub(sum.StartedAt)))

	return sum, ctx.Err()
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}
