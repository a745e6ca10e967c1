package sites

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"github.com/hanzlahyasir/price-alert-notifier-telegram-bot/config"
	"github.com/hanzlahyasir/price-alert-notifier-telegram-bot/internal/models"
	"github.com/hanzlahyasir/price-alert-notifier-telegram-bot/internal/platform"
)

// SelectorStrategy scrapes listing pages with configured CSS selectors.
type SelectorStrategy struct {
	transport    http.RoundTripper
	userAgent    string
	selectors    config.Selectors
	stockDefault string
}

func NewSelectorStrategy(client *http.Client, userAgent string, sel config.Selectors, stockDefault string) *SelectorStrategy {
	var rt http.RoundTripper
	if client != nil {
		rt = client.Transport
	}
	return &SelectorStrategy{transport: rt, userAgent: userAgent, selectors: sel, stockDefault: stockDefault}
}

func (s *SelectorStrategy) Name() string { return "selector" }

func (s *SelectorStrategy) Execute(ctx context.Context, req platform.Request) (*platform.Result, error) {
	c := colly.NewCollector(colly.AllowURLRevisit())
	if s.userAgent != "" {
		c.UserAgent = s.userAgent
	}
	c.WithTransport(&ctxTransport{base: s.transport, ctx: ctx})

	var (
		mu       sync.Mutex
		items    []models.ScrapedItem
		fetchErr error
	)
	c.OnHTML("html", func(e *colly.HTMLElement) {
		found := extractSelection(e.DOM, s.selectors, e.Request.URL.String(), s.stockDefault)
		mu.Lock()
		items = append(items, found...)
		mu.Unlock()
	})
	c.OnError(func(r *colly.Response, err error) {
		mu.Lock()
		fetchErr = fmt.Errorf("GET %s: status %d: %w", r.Request.URL, r.StatusCode, err)
		mu.Unlock()
	})

	if err := c.Visit(req.URL); err != nil {
		return nil, fmt.Errorf("visit %s: %w", req.URL, err)
	}
	c.Wait()

	if fetchErr != nil {
		return nil, fetchErr
	}
	return &platform.Result{Items: items, Strategy: s.Name()}, nil
}

// ctxTransport binds every request colly sends to the caller's context so a
// cancelled run aborts in-flight page loads.
type ctxTransport struct {
	base http.RoundTripper
	ctx  context.Context
}

func (t *ctxTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req.WithContext(t.ctx))
}

// extractSelection reads one ScrapedItem per sel.Item match under root.
// Matches without a code are skipped.
func extractSelection(root *goquery.Selection, sel config.Selectors, pageURL, stockDefault string) []models.ScrapedItem {
	if sel.IsZero() {
		return nil
	}
	base := parseBase(pageURL)

	var items []models.ScrapedItem
	root.Find(sel.Item).Each(func(_ int, s *goquery.Selection) {
		node := s
		if sel.Code != "" {
			node = s.Find(sel.Code).First()
		}
		code := ""
		if sel.CodeAttr != "" {
			code, _ = node.Attr(sel.CodeAttr)
		} else {
			code = node.Text()
		}
		code = strings.TrimSpace(code)
		if code == "" {
			return
		}

		it := models.ScrapedItem{
			Code:        code,
			Name:        fieldText(s, sel.Name),
			StockStatus: fieldText(s, sel.Stock),
		}
		if p := fieldText(s, sel.Price); p != "" {
			it.Price = models.PriceText(p)
		}
		if sel.Link != "" {
			if href, ok := s.Find(sel.Link).First().Attr("href"); ok {
				it.URL = resolve(base, href)
			}
		}
		if it.StockStatus == "" {
			it.StockStatus = stockDefault
		}
		items = append(items, it)
	})
	return items
}

func fieldText(s *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	return strings.Join(strings.Fields(s.Find(selector).First().Text()), " ")
}
