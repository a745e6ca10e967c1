package sites

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/hanzlahyasir/price-alert-notifier-telegram-bot/config"
	"github.com/hanzlahyasir/price-alert-notifier-telegram-bot/internal/platform"
)

// HeadlessStrategy renders the page in a stealth Chromium and extracts
// JSON-LD first, then configured selectors.
type HeadlessStrategy struct {
	bin          string
	selectors    config.Selectors
	stockDefault string
	timeout      time.Duration
}

func NewHeadlessStrategy(bin string, sel config.Selectors, stockDefault string, timeout time.Duration) *HeadlessStrategy {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HeadlessStrategy{bin: bin, selectors: sel, stockDefault: stockDefault, timeout: timeout}
}

func (h *HeadlessStrategy) Name() string { return "headless" }

func (h *HeadlessStrategy) Execute(ctx context.Context, req platform.Request) (*platform.Result, error) {
	page, cleanup, err := h.openPage(ctx, req.URL)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	timed := page.Timeout(h.timeout)
	if err := timed.WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait load: %w", err)
	}
	_ = timed.WaitDOMStable(2*time.Second, 0.1)

	content, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("get page HTML: %w", err)
	}

	items, err := extractJSONLD([]byte(content), req.URL)
	if err == nil && len(items) > 0 {
		return &platform.Result{Items: items, Strategy: h.Name()}, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parse rendered HTML: %w", err)
	}
	items = extractSelection(doc.Selection, h.selectors, req.URL, h.stockDefault)
	return &platform.Result{Items: items, Strategy: h.Name()}, nil
}

func (h *HeadlessStrategy) openPage(ctx context.Context, pageURL string) (*rod.Page, func(), error) {
	l := launcher.New().Headless(true).Logger(io.Discard)
	if h.bin != "" {
		l = l.Bin(h.bin)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return nil, nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, nil, fmt.Errorf("connect browser: %w", err)
	}

	page, err := stealth.Page(browser)
	if err != nil {
		_ = browser.Close()
		l.Kill()
		return nil, nil, fmt.Errorf("open stealth page: %w", err)
	}

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{Width: 1920, Height: 1080}); err != nil {
		_ = browser.Close()
		l.Kill()
		return nil, nil, fmt.Errorf("set viewport: %w", err)
	}

	if err := page.Navigate(pageURL); err != nil {
		_ = browser.Close()
		l.Kill()
		return nil, nil, fmt.Errorf("navigate %s: %w", pageURL, err)
	}

	cleanup := func() {
		_ = page.Close()
		_ = browser.Close()
		l.Cleanup()
	}
	return page, cleanup, nil
}
