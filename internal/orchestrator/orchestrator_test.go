package orchestrator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hanzlahyasir/price-alert-notifier-telegram-bot/internal/models"
	"github.com/hanzlahyasir/price-alert-notifier-telegram-bot/internal/platform"
	"github.com/hanzlahyasir/price-alert-notifier-telegram-bot/internal/retry"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fastPolicy() retry.Policy {
	return retry.New(3, time.Millisecond)
}

func TestRunIsolatesFailingSource(t *testing.T) {
	var calls atomic.Int32
	sources := map[string]FetchFunc{
		"broken": func(context.Context) ([]models.ScrapedItem, error) {
			calls.Add(1)
			return nil, errors.New("connection reset")
		},
		"healthy": func(context.Context) ([]models.ScrapedItem, error) {
			return []models.ScrapedItem{{Code: "A1"}, {Code: "A2"}}, nil
		},
	}

	o := New(fastPolicy(), 0, quietLogger())
	got := o.Run(context.Background(), sources)

	if n := len(got["healthy"]); n != 2 {
		t.Fatalf("healthy items: got %d, want 2", n)
	}
	broken, ok := got["broken"]
	if !ok || broken == nil || len(broken) != 0 {
		t.Fatalf("broken batch: got %v (present %v), want empty slice", broken, ok)
	}
	if n := calls.Load(); n != 3 {
		t.Fatalf("broken attempts: got %d, want 3", n)
	}
}

func TestRunRetriesUntilSuccess(t *testing.T) {
	var calls atomic.Int32
	sources := map[string]FetchFunc{
		"flaky": func(context.Context) ([]models.ScrapedItem, error) {
			if calls.Add(1) < 3 {
				return nil, errors.New("timeout")
			}
			return []models.ScrapedItem{{Code: "X"}}, nil
		},
	}

	got := New(fastPolicy(), 1, quietLogger()).Run(context.Background(), sources)
	if len(got["flaky"]) != 1 {
		t.Fatalf("flaky items: got %v", got["flaky"])
	}
}

func TestRunRecoversPanics(t *testing.T) {
	sources := map[string]FetchFunc{
		"panics": func(context.Context) ([]models.ScrapedItem, error) {
			panic("nil map")
		},
		"fine": func(context.Context) ([]models.ScrapedItem, error) {
			return []models.ScrapedItem{{Code: "1"}}, nil
		},
	}

	got := New(fastPolicy(), 0, quietLogger()).Run(context.Background(), sources)
	if len(got["panics"]) != 0 || len(got["fine"]) != 1 {
		t.Fatalf("unexpected result: %v", got)
	}
}

func TestSlowSourceDoesNotDelayOthers(t *testing.T) {
	release := make(chan struct{})
	handled := make(chan string, 2)

	sources := map[string]FetchFunc{
		"slow": func(ctx context.Context) ([]models.ScrapedItem, error) {
			<-release
			return nil, nil
		},
		"quick": func(context.Context) ([]models.ScrapedItem, error) {
			return []models.ScrapedItem{{Code: "1"}}, nil
		},
	}

	done := make(chan struct{})
	go func() {
		New(fastPolicy(), 0, quietLogger()).RunEach(context.Background(), sources,
			func(_ context.Context, site string, _ []models.ScrapedItem) { handled <- site })
		close(done)
	}()

	select {
	case site := <-handled:
		if site != "quick" {
			t.Fatalf("first handled: got %q, want quick", site)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("quick source was blocked by slow one")
	}
	close(release)
	<-done
}

func TestBackoffDoesNotHoldSlot(t *testing.T) {
	var attempts atomic.Int32
	quickDone := make(chan time.Duration, 1)
	start := time.Now()

	sources := map[string]FetchFunc{
		"a-broken": func(context.Context) ([]models.ScrapedItem, error) {
			attempts.Add(1)
			return nil, errors.New("503")
		},
		"b-quick": func(context.Context) ([]models.ScrapedItem, error) {
			quickDone <- time.Since(start)
			return []models.ScrapedItem{{Code: "1"}}, nil
		},
	}

	got := New(retry.New(3, 200*time.Millisecond), 1, quietLogger()).Run(context.Background(), sources)

	if elapsed := <-quickDone; elapsed > 150*time.Millisecond {
		t.Fatalf("quick source waited %v behind a backoff", elapsed)
	}
	if len(got["b-quick"]) != 1 || len(got["a-broken"]) != 0 {
		t.Fatalf("unexpected result: %v", got)
	}
	if n := attempts.Load(); n != 3 {
		t.Fatalf("broken attempts: got %d, want 3", n)
	}
}

func TestMaxConcurrentCapsAttempts(t *testing.T) {
	var inflight, peak atomic.Int32
	fetch := func(context.Context) ([]models.ScrapedItem, error) {
		n := inflight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		inflight.Add(-1)
		return []models.ScrapedItem{{Code: "1"}}, nil
	}
	sources := map[string]FetchFunc{"a": fetch, "b": fetch, "c": fetch, "d": fetch, "e": fetch}

	got := New(fastPolicy(), 2, quietLogger()).Run(context.Background(), sources)

	if len(got) != 5 {
		t.Fatalf("got %d batches, want 5", len(got))
	}
	if p := peak.Load(); p > 2 {
		t.Fatalf("peak concurrency %d, want <= 2", p)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sources := map[string]FetchFunc{
		"s": func(ctx context.Context) ([]models.ScrapedItem, error) { return nil, ctx.Err() },
	}
	got := New(retry.New(3, time.Hour), 0, quietLogger()).Run(ctx, sources)
	if len(got["s"]) != 0 {
		t.Fatalf("got %v", got)
	}
}

type namedSource struct{ name string }

func (s namedSource) Name() string { return s.name }
func (s namedSource) Fetch(context.Context) ([]models.ScrapedItem, error) {
	return []models.ScrapedItem{{Code: s.name}}, nil
}

func TestFromSources(t *testing.T) {
	fns := FromSources([]platform.Source{namedSource{"a"}, namedSource{"b"}})
	if len(fns) != 2 {
		t.Fatalf("len = %d", len(fns))
	}
	items, err := fns["b"](context.Background())
	if err != nil || len(items) != 1 || items[0].Code != "b" {
		t.Fatalf("fetch b = %v, %v", items, err)
	}
}
