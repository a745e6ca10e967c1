package sites

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hanzlahyasir/price-alert-notifier-telegram-bot/config"
	"github.com/hanzlahyasir/price-alert-notifier-telegram-bot/internal/models"
	"github.com/hanzlahyasir/price-alert-notifier-telegram-bot/internal/platform"
	"github.com/hanzlahyasir/price-alert-notifier-telegram-bot/internal/stock"
)

const productPage = `<!doctype html><html><head>
<script type="application/ld+json">
{"@context":"https://schema.org","@graph":[
  {"@type":"Product","name":"Widget","sku":"W-1","url":"/p/w1",
   "offers":{"@type":"Offer","price":"19.99","availability":"https://schema.org/InStock"}},
  {"@type":"ItemList","itemListElement":[
    {"@type":"ListItem","position":1,"item":{"@type":"Product","name":"Gadget","productID":42,
      "offers":[{"@type":"Offer","price":5,"availability":"http://schema.org/OutOfStock"}]}}
  ]}
]}
</script>
<script type="application/ld+json">{"@type":"Organization","name":"Shop"}</script>
</head><body></body></html>`

const listingPage = `<html><body>
<div class="product" data-sku="A1"><h2 class="title"> Red
  Mug </h2><span class="price">$ 12.50</span><span class="stock">In stock</span><a href="/mug">x</a></div>
<div class="product" data-sku="B2"><h2 class="title">Blue Mug</h2><span class="price">$ 9.00</span></div>
<div class="product"><h2 class="title">No code</h2></div>
</body></html>`

var mugSelectors = config.Selectors{
	Item:     ".product",
	CodeAttr: "data-sku",
	Name:     ".title",
	Price:    ".price",
	Stock:    ".stock",
	Link:     "a",
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func serve(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestExtractJSONLD(t *testing.T) {
	items, err := extractJSONLD([]byte(productPage), "https://shop.example/list")
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2: %+v", len(items), items)
	}

	w := items[0]
	if w.Code != "W-1" || w.Name != "Widget" || w.URL != "https://shop.example/p/w1" {
		t.Fatalf("widget = %+v", w)
	}
	if txt, ok := w.Price.Text(); !ok || txt != "19.99" {
		t.Fatalf("widget price = %v", w.Price)
	}
	if w.StockStatus != stock.LabelInStock {
		t.Fatalf("widget stock = %q", w.StockStatus)
	}

	g := items[1]
	if g.Code != "42" || g.StockStatus != stock.LabelOutOfStock {
		t.Fatalf("gadget = %+v", g)
	}
	if n, ok := g.Price.Number(); !ok || n.String() != "5" {
		t.Fatalf("gadget price = %v", g.Price)
	}
}

func TestExtractJSONLDFallsBackToURLForCode(t *testing.T) {
	page := `<script type="application/ld+json">{"@type":["Product"],"name":"X","url":"https://a.example/x"}</script>`
	items, err := extractJSONLD([]byte(page), "https://a.example/")
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].Code != "https://a.example/x" {
		t.Fatalf("items = %+v", items)
	}
	if !items[0].Price.IsZero() {
		t.Fatalf("price should be absent, got %v", items[0].Price)
	}
}

func TestStaticStrategy(t *testing.T) {
	srv := serve(t, productPage)
	res, err := NewStaticPageStrategy(srv.Client()).Execute(context.Background(), platform.Request{URL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Items) != 2 || res.Strategy != "static" {
		t.Fatalf("result = %+v", res)
	}
}

func TestSelectorStrategy(t *testing.T) {
	srv := serve(t, listingPage)
	s := NewSelectorStrategy(srv.Client(), "", mugSelectors, "unknown")

	res, err := s.Execute(context.Background(), platform.Request{URL: srv.URL + "/mugs"})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Items) != 2 {
		t.Fatalf("got %d items, want 2: %+v", len(res.Items), res.Items)
	}

	red := res.Items[0]
	if red.Code != "A1" || red.Name != "Red Mug" || red.StockStatus != "In stock" {
		t.Fatalf("red = %+v", red)
	}
	if txt, _ := red.Price.Text(); txt != "$ 12.50" {
		t.Fatalf("red price = %q", txt)
	}
	if red.URL != srv.URL+"/mug" {
		t.Fatalf("red url = %q", red.URL)
	}
	if blue := res.Items[1]; blue.StockStatus != "unknown" {
		t.Fatalf("blue stock default = %q", blue.StockStatus)
	}
}

func TestSelectorStrategyHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewSelectorStrategy(srv.Client(), "", mugSelectors, "").
		Execute(context.Background(), platform.Request{URL: srv.URL})
	if err == nil {
		t.Fatal("expected error on 502")
	}
}

func TestSelectorStrategyHonorsCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := NewSelectorStrategy(srv.Client(), "", mugSelectors, "").
		Execute(ctx, platform.Request{URL: srv.URL})
	if err == nil {
		t.Fatal("expected error after cancel")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("page load not aborted, took %v", elapsed)
	}
}

type fakeStrategy struct {
	name  string
	items []models.ScrapedItem
	err   error
	calls atomic.Int32
}

func (f *fakeStrategy) Name() string { return f.name }

func (f *fakeStrategy) Execute(context.Context, platform.Request) (*platform.Result, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return &platform.Result{Items: f.items, Strategy: f.name}, nil
}

func newTestScraper(urls []string, fast, slow []platform.Strategy) *Scraper {
	src := config.SourceConfig{Name: "shop", URLs: urls}
	return NewScraper(src, Options{PageConcurrency: 2, Logger: quietLogger()}).WithStrategies(fast, slow)
}

func TestFetchUsesFastStrategyFirst(t *testing.T) {
	fast := &fakeStrategy{name: "static", items: []models.ScrapedItem{{Code: "1"}}}
	slow := &fakeStrategy{name: "headless", items: []models.ScrapedItem{{Code: "2"}}}

	items, err := newTestScraper([]string{"u1", "u2"}, []platform.Strategy{fast}, []platform.Strategy{slow}).
		Fetch(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 || slow.calls.Load() != 0 {
		t.Fatalf("items = %+v, headless calls = %d", items, slow.calls.Load())
	}
}

func TestFetchFallsBackToSlow(t *testing.T) {
	fast := &fakeStrategy{name: "static", err: errors.New("blocked")}
	slow := &fakeStrategy{name: "headless", items: []models.ScrapedItem{{Code: "2"}}}

	items, err := newTestScraper([]string{"u1"}, []platform.Strategy{fast}, []platform.Strategy{slow}).
		Fetch(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].Code != "2" {
		t.Fatalf("items = %+v", items)
	}
}

func TestFetchEmptyPageIsSuccess(t *testing.T) {
	fast := &fakeStrategy{name: "static"}
	slow := &fakeStrategy{name: "headless", err: errors.New("no chromium")}

	items, err := newTestScraper([]string{"u1"}, []platform.Strategy{fast}, []platform.Strategy{slow}).
		Fetch(context.Background())
	if err != nil {
		t.Fatalf("empty page should not fail: %v", err)
	}
	if items == nil || len(items) != 0 {
		t.Fatalf("items = %#v, want empty slice", items)
	}
}

func TestFetchAllStrategiesFail(t *testing.T) {
	fast := &fakeStrategy{name: "static", err: errors.New("timeout")}
	slow := &fakeStrategy{name: "headless", err: errors.New("no chromium")}

	_, err := newTestScraper([]string{"u1"}, []platform.Strategy{fast}, []platform.Strategy{slow}).
		Fetch(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestNewScraperKinds(t *testing.T) {
	tests := []struct {
		kind      string
		selectors config.Selectors
		fast      int
		slow      int
	}{
		{kind: "", fast: 1, slow: 1},
		{kind: config.KindAuto, selectors: mugSelectors, fast: 2, slow: 1},
		{kind: config.KindJSONLD, fast: 1, slow: 0},
		{kind: config.KindSelector, selectors: mugSelectors, fast: 1, slow: 0},
		{kind: config.KindHeadless, fast: 0, slow: 1},
	}
	for _, tt := range tests {
		s := NewScraper(config.SourceConfig{Name: "x", Kind: tt.kind, Selectors: tt.selectors}, Options{})
		if len(s.fastStrategies) != tt.fast || len(s.slowStrategies) != tt.slow {
			t.Errorf("kind %q: fast=%d slow=%d, want %d/%d",
				tt.kind, len(s.fastStrategies), len(s.slowStrategies), tt.fast, tt.slow)
		}
	}
}
