// Package diff reconciles a source's fresh batch with the stored product
// state, queues alerts for meaningful transitions and writes the new state.
package diff

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/hanzlahyasir/price-alert-notifier-telegram-bot/internal/alert"
	"github.com/hanzlahyasir/price-alert-notifier-telegram-bot/internal/models"
	"github.com/hanzlahyasir/price-alert-notifier-telegram-bot/internal/stock"
	"github.com/hanzlahyasir/price-alert-notifier-telegram-bot/internal/storage"
)

const (
	DefaultName = "Unknown"
	DefaultURL  = "#"
)

// Sink receives classified events. *alert.Dispatcher satisfies it.
type Sink interface {
	Enqueue(e alert.Event)
}

// Result counts what happened to one batch.
type Result struct {
	New        int `json:"new"`
	Updated    int `json:"updated"`
	Malformed  int `json:"malformed"`
	Superseded int `json:"superseded"`
	Failed     int `json:"failed"`
	Alerts     int `json:"alerts"`
}

func (r *Result) Add(o Result) {
	r.New += o.New
	r.Updated += o.Updated
	r.Malformed += o.Malformed
	r.Superseded += o.Superseded
	r.Failed += o.Failed
	r.Alerts += o.Alerts
}

type Engine struct {
	Logger *slog.Logger
	// DecimalComma lists sites whose textual prices use ',' as the decimal point.
	DecimalComma map[string]bool
}

func New(logger *slog.Logger) *Engine {
	return &Engine{Logger: logger, DecimalComma: map[string]bool{}}
}

// Process handles one site's batch in order. Store failures are logged and
// counted, never returned; only context cancellation stops the batch early.
// Untracked products are still upserted so their state stays current, but
// they never produce an alert.
func (e *Engine) Process(ctx context.Context, site string, items []models.ScrapedItem, store storage.Store, sink Sink) (Result, error) {
	var res Result
	log := e.logger().With(slog.String("site", site))

	// A code seen twice in one batch is handled once, at its last position.
	last := make(map[string]int, len(items))
	for i, it := range items {
		if it.Code != "" {
			last[it.Code] = i
		}
	}

	for i, it := range items {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if it.Code == "" {
			res.Malformed++
			log.DebugContext(ctx, "skipping item without code", slog.String("name", it.Name))
			continue
		}
		if last[it.Code] != i {
			res.Superseded++
			continue
		}
		e.processItem(ctx, log, site, it, store, sink, &res)
	}
	return res, nil
}

func (e *Engine) processItem(ctx context.Context, log *slog.Logger, site string, it models.ScrapedItem, store storage.Store, sink Sink, res *Result) {
	log = log.With(slog.String("code", it.Code))
	price := NormalizePrice(it.Price, e.DecimalComma[site])

	update := models.ProductUpdate{
		Site:        site,
		Code:        it.Code,
		Name:        orDefault(it.Name, DefaultName),
		URL:         orDefault(it.URL, DefaultURL),
		Price:       price,
		StockStatus: it.StockStatus,
	}

	prev, err := store.Get(ctx, site, it.Code)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		if update.Price == nil {
			zero := decimal.Zero
			update.Price = &zero
		}
		if err := store.Upsert(ctx, update); err != nil {
			res.Failed++
			log.ErrorContext(ctx, "failed to insert product", slog.Any("error", err))
			return
		}
		res.New++
		return
	case err != nil:
		res.Failed++
		log.ErrorContext(ctx, "failed to read product", slog.Any("error", err))
		return
	}

	if prev.IsTracked {
		if ev, ok := Classify(prev, update); ok {
			sink.Enqueue(ev)
			res.Alerts++
		}
	}

	if err := store.Upsert(ctx, update); err != nil {
		res.Failed++
		log.ErrorContext(ctx, "failed to update product", slog.Any("error", err))
		return
	}
	res.Updated++
}

// Classify decides which event, if any, the change from prev to cur produces.
// Stock transitions take precedence over price changes. It ignores
// prev.IsTracked; Process only calls it for tracked products.
func Classify(prev models.ProductRecord, cur models.ProductUpdate) (alert.Event, bool) {
	was := stock.Classify(prev.LastStockStatus)
	now := stock.Classify(cur.StockStatus)

	ev := alert.Event{Site: cur.Site, Name: cur.Name, URL: cur.URL}
	if cur.Price != nil {
		ev.NewPrice = *cur.Price
	}

	switch {
	case was == stock.OutOfStock && now == stock.InStock:
		ev.Kind = alert.BackInStock
		return ev, true
	case was == stock.InStock && now == stock.OutOfStock:
		ev.Kind = alert.OutOfStock
		return ev, true
	case was == stock.InStock && now == stock.InStock && prev.LastPrice != nil && cur.Price != nil:
		ev.OldPrice = *prev.LastPrice
		switch cur.Price.Cmp(*prev.LastPrice) {
		case -1:
			ev.Kind = alert.PriceDrop
			return ev, true
		case 1:
			ev.Kind = alert.PriceIncrease
			return ev, true
		}
	}
	return alert.Event{}, false
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
