// Package sites turns a configured source into a platform.Source.
// Each page is tried with the fast strategies in parallel, then with the
// headless browser when none of them produced a result.
package sites

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/hanzlahyasir/price-alert-notifier-telegram-bot/config"
	"github.com/hanzlahyasir/price-alert-notifier-telegram-bot/internal/models"
	"github.com/hanzlahyasir/price-alert-notifier-telegram-bot/internal/platform"
)

// ErrNoStrategy is returned for a source whose kind resolves to no strategies.
var ErrNoStrategy = errors.New("no scraping strategy")

// Options carries the shared scraping dependencies.
type Options struct {
	Client          *http.Client
	RateLimiter     *rate.Limiter
	PageConcurrency int
	UserAgent       string
	BrowserBin      string
	Timeout         time.Duration
	Logger          *slog.Logger
}

// Scraper implements platform.Source for one configured site.
type Scraper struct {
	name           string
	urls           []string
	fastStrategies []platform.Strategy // raced concurrently
	slowStrategies []platform.Strategy // tried in order as fallback
	rateLimiter    *rate.Limiter
	maxConcurrent  int
	log            *slog.Logger
}

func NewScraper(src config.SourceConfig, opts Options) *Scraper {
	s := &Scraper{
		name:          src.Name,
		urls:          src.URLs,
		rateLimiter:   opts.RateLimiter,
		maxConcurrent: opts.PageConcurrency,
		log:           opts.Logger,
	}
	if s.maxConcurrent <= 0 {
		s.maxConcurrent = 1
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	s.log = s.log.With(slog.String("site", src.Name))

	static := NewStaticPageStrategy(opts.Client)
	selector := NewSelectorStrategy(opts.Client, opts.UserAgent, src.Selectors, src.StockDefault)
	headless := NewHeadlessStrategy(opts.BrowserBin, src.Selectors, src.StockDefault, opts.Timeout)

	switch src.EffectiveKind() {
	case config.KindJSONLD:
		s.fastStrategies = []platform.Strategy{static}
	case config.KindSelector:
		s.fastStrategies = []platform.Strategy{selector}
	case config.KindHeadless:
		s.slowStrategies = []platform.Strategy{headless}
	default:
		s.fastStrategies = []platform.Strategy{static}
		if !src.Selectors.IsZero() {
			s.fastStrategies = append(s.fastStrategies, selector)
		}
		s.slowStrategies = []platform.Strategy{headless}
	}
	return s
}

// WithStrategies replaces the strategy chain. Used by tests and callers that
// bring their own extraction.
func (t *Scraper) WithStrategies(fast, slow []platform.Strategy) *Scraper {
	t.fastStrategies = fast
	t.slowStrategies = slow
	return t
}

func (t *Scraper) Name() string { return t.name }

// Fetch scrapes every configured URL. Any page failing fails the whole
// fetch so the orchestrator retries the source.
func (t *Scraper) Fetch(ctx context.Context) ([]models.ScrapedItem, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(t.maxConcurrent)

	results := make([][]models.ScrapedItem, len(t.urls))
	for i, u := range t.urls {
		g.Go(func() error {
			items, err := t.executeWithFallback(ctx, platform.Request{URL: u})
			if err != nil {
				return fmt.Errorf("%s: %w", u, err)
			}
			results[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return flatten(results), nil
}

// executeWithFallback races fast strategies concurrently, then falls back to
// slow strategies. An empty page from a fast strategy is only returned when
// no slow strategy does better.
func (t *Scraper) executeWithFallback(ctx context.Context, req platform.Request) ([]models.ScrapedItem, error) {
	var (
		errs     []error
		sawEmpty bool
	)

	if len(t.fastStrategies) > 0 {
		raceCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		type outcome struct {
			result   *platform.Result
			strategy string
			err      error
		}
		outCh := make(chan outcome, len(t.fastStrategies))

		for _, s := range t.fastStrategies {
			go func(s platform.Strategy) {
				if err := t.wait(raceCtx); err != nil {
					outCh <- outcome{strategy: s.Name(), err: err}
					return
				}
				r, err := s.Execute(raceCtx, req)
				outCh <- outcome{result: r, strategy: s.Name(), err: err}
			}(s)
		}

		for range t.fastStrategies {
			select {
			case o := <-outCh:
				switch {
				case o.err != nil:
					t.log.DebugContext(ctx, "strategy failed",
						slog.String("strategy", o.strategy), slog.String("url", req.URL), slog.Any("error", o.err))
					errs = append(errs, fmt.Errorf("%s: %w", o.strategy, o.err))
				case o.result != nil && len(o.result.Items) > 0:
					cancel()
					platform.Progressf(ctx, "%s: %d items via %s", t.name, len(o.result.Items), o.strategy)
					return o.result.Items, nil
				default:
					sawEmpty = true
				}
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		if sawEmpty && len(t.slowStrategies) == 0 {
			return []models.ScrapedItem{}, nil
		}
	}

	for _, s := range t.slowStrategies {
		platform.Progressf(ctx, "%s: trying %s", t.name, s.Name())
		if err := t.wait(ctx); err != nil {
			return nil, err
		}
		r, err := s.Execute(ctx, req)
		if err != nil {
			t.log.WarnContext(ctx, "strategy failed",
				slog.String("strategy", s.Name()), slog.String("url", req.URL), slog.Any("error", err))
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		items := []models.ScrapedItem{}
		if r != nil && r.Items != nil {
			items = r.Items
		}
		platform.Progressf(ctx, "%s: %d items via %s", t.name, len(items), s.Name())
		return items, nil
	}

	// A fast strategy read the page fine and found nothing.
	if sawEmpty {
		return []models.ScrapedItem{}, nil
	}
	if len(errs) == 0 {
		return nil, ErrNoStrategy
	}
	return nil, fmt.Errorf("all strategies failed: %w", errors.Join(errs...))
}

func (t *Scraper) wait(ctx context.Context) error {
	if t.rateLimiter == nil {
		return nil
	}
	return t.rateLimiter.Wait(ctx)
}

func flatten(results [][]models.ScrapedItem) []models.ScrapedItem {
	out := []models.ScrapedItem{}
	for _, r := range results {
		out = append(out, r...)
	}
	return out
}

func parseBase(raw string) *url.URL {
	u, err := url.Parse(raw)
	if err != nil {
		return nil
	}
	return u
}
