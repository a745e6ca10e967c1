package sites

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/hanzlahyasir/price-alert-notifier-telegram-bot/internal/httputil"
	"github.com/hanzlahyasir/price-alert-notifier-telegram-bot/internal/models"
	"github.com/hanzlahyasir/price-alert-notifier-telegram-bot/internal/platform"
	"github.com/hanzlahyasir/price-alert-notifier-telegram-bot/internal/stock"
)

// StaticPageStrategy fetches raw HTML and extracts schema.org JSON-LD.
type StaticPageStrategy struct {
	client *http.Client
}

func NewStaticPageStrategy(client *http.Client) *StaticPageStrategy {
	return &StaticPageStrategy{client: client}
}

func (s *StaticPageStrategy) Name() string { return "static" }

func (s *StaticPageStrategy) Execute(ctx context.Context, req platform.Request) (*platform.Result, error) {
	body, err := httputil.Get(ctx, s.client, req.URL)
	if err != nil {
		return nil, err
	}

	items, err := extractJSONLD(body, req.URL)
	if err != nil {
		return nil, fmt.Errorf("extract JSON-LD: %w", err)
	}
	return &platform.Result{Items: items, Strategy: s.Name()}, nil
}

// extractJSONLD walks every ld+json script and collects Product nodes,
// including those nested in ItemList or @graph.
func extractJSONLD(page []byte, pageURL string) ([]models.ScrapedItem, error) {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}
	base := parseBase(pageURL)

	var items []models.ScrapedItem
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "script" && isJSONLD(n) && n.FirstChild != nil {
			items = append(items, parseJSONLD([]byte(n.FirstChild.Data), base)...)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return items, nil
}

func isJSONLD(n *html.Node) bool {
	for _, attr := range n.Attr {
		if attr.Key == "type" && strings.EqualFold(strings.TrimSpace(attr.Val), "application/ld+json") {
			return true
		}
	}
	return false
}

// ldNode is the subset of schema.org Thing fields we read.
type ldNode struct {
	Type            json.RawMessage   `json:"@type"`
	Graph           []json.RawMessage `json:"@graph"`
	Name            string            `json:"name"`
	URL             string            `json:"url"`
	SKU             json.RawMessage   `json:"sku"`
	ProductID       json.RawMessage   `json:"productID"`
	MPN             json.RawMessage   `json:"mpn"`
	Offers          json.RawMessage   `json:"offers"`
	ItemListElement []json.RawMessage `json:"itemListElement"`
	Item            json.RawMessage   `json:"item"`
}

type ldOffer struct {
	Type         json.RawMessage `json:"@type"`
	Price        json.RawMessage `json:"price"`
	LowPrice     json.RawMessage `json:"lowPrice"`
	Availability string          `json:"availability"`
	URL          string          `json:"url"`
	Offers       json.RawMessage `json:"offers"`
}

func parseJSONLD(data []byte, base *url.URL) []models.ScrapedItem {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}

	if data[0] == '[' {
		var nodes []json.RawMessage
		if err := json.Unmarshal(data, &nodes); err != nil {
			return nil
		}
		var out []models.ScrapedItem
		for _, n := range nodes {
			out = append(out, parseJSONLD(n, base)...)
		}
		return out
	}

	var n ldNode
	if err := json.Unmarshal(data, &n); err != nil {
		return nil
	}

	var out []models.ScrapedItem
	switch {
	case hasType(n.Type, "Product"):
		if it, ok := productItem(n, base); ok {
			out = append(out, it)
		}
	case hasType(n.Type, "ListItem") && len(n.Item) > 0:
		out = append(out, parseJSONLD(n.Item, base)...)
	}
	for _, el := range n.ItemListElement {
		out = append(out, parseJSONLD(el, base)...)
	}
	for _, g := range n.Graph {
		out = append(out, parseJSONLD(g, base)...)
	}
	return out
}

func productItem(n ldNode, base *url.URL) (models.ScrapedItem, bool) {
	it := models.ScrapedItem{
		Name: strings.TrimSpace(n.Name),
		URL:  resolve(base, n.URL),
	}

	if offer, ok := firstOffer(n.Offers); ok {
		it.Price = rawPrice(offer.Price)
		if it.Price.IsZero() {
			it.Price = rawPrice(offer.LowPrice)
		}
		it.StockStatus = availabilityLabel(offer.Availability)
		if it.URL == "" {
			it.URL = resolve(base, offer.URL)
		}
	}

	for _, raw := range []json.RawMessage{n.SKU, n.ProductID, n.MPN} {
		if code := scalar(raw); code != "" {
			it.Code = code
			break
		}
	}
	if it.Code == "" {
		it.Code = it.URL
	}
	return it, it.Code != ""
}

// firstOffer accepts an Offer, an AggregateOffer or an array of either.
func firstOffer(raw json.RawMessage) (ldOffer, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ldOffer{}, false
	}
	if raw[0] == '[' {
		var offers []json.RawMessage
		if err := json.Unmarshal(raw, &offers); err != nil || len(offers) == 0 {
			return ldOffer{}, false
		}
		return firstOffer(offers[0])
	}

	var o ldOffer
	if err := json.Unmarshal(raw, &o); err != nil {
		return ldOffer{}, false
	}
	if len(o.Price) == 0 && len(o.LowPrice) == 0 && len(o.Offers) > 0 {
		if inner, ok := firstOffer(o.Offers); ok {
			if inner.Availability == "" {
				inner.Availability = o.Availability
			}
			return inner, true
		}
	}
	return o, true
}

// availabilityLabel maps schema.org availability URLs to the labels the
// stock classifier understands. Unknown values pass through unchanged.
func availabilityLabel(v string) string {
	key := v
	if i := strings.LastIndexByte(key, '/'); i >= 0 {
		key = key[i+1:]
	}
	switch key {
	case "InStock", "InStoreOnly", "OnlineOnly", "LimitedAvailability", "BackOrder", "PreSale":
		return stock.LabelInStock
	case "OutOfStock", "SoldOut", "Discontinued":
		return stock.LabelOutOfStock
	default:
		return v
	}
}

func rawPrice(raw json.RawMessage) models.RawPrice {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return models.RawPrice{}
	}
	var p models.RawPrice
	if err := json.Unmarshal(raw, &p); err != nil {
		return models.RawPrice{}
	}
	return p
}

// hasType matches "@type" given as a string or an array of strings.
func hasType(raw json.RawMessage, want string) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return false
	}
	if raw[0] == '[' {
		var types []string
		if err := json.Unmarshal(raw, &types); err != nil {
			return false
		}
		for _, t := range types {
			if t == want {
				return true
			}
		}
		return false
	}
	var t string
	return json.Unmarshal(raw, &t) == nil && t == want
}

// scalar returns a JSON string or number as text.
func scalar(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if json.Unmarshal(raw, &n) == nil {
		return n.String()
	}
	return ""
}

func resolve(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || base == nil {
		return ref
	}
	u, err := base.Parse(ref)
	if err != nil {
		return ref
	}
	return u.String()
}
