package alert

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestRenderTextPriceDrop(t *testing.T) {
	got := RenderText(Event{Kind: PriceDrop, Site: "mobilezone", Name: "iPhone 15",
		URL: "https://mz/iphone", OldPrice: decimal.NewFromInt(100), NewPrice: decimal.RequireFromString("80")})

	for _, want := range []string{
		"<b>Price Drop Alert!</b>",
		"<b>Product:</b> iPhone 15",
		"<b>Old Price:</b> $100.00",
		"<b>New Price:</b> <b>$80.00</b>",
		"<b>URL:</b> https://mz/iphone",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}
}

func TestRenderTextStockEventHasSinglePrice(t *testing.T) {
	got := RenderText(Event{Kind: OutOfStock, Site: "s", Name: "n", NewPrice: decimal.NewFromInt(7)})
	if strings.Contains(got, "Old Price") {
		t.Fatalf("stock event rendered an old price:\n%s", got)
	}
	if !strings.Contains(got, "<b>Price:</b> $7.00") {
		t.Fatalf("missing price:\n%s", got)
	}
}

func TestRenderEscapesScrapedMarkup(t *testing.T) {
	e := Event{Kind: BackInStock, Name: `<script>alert(1)</script>Cable & Plug`, URL: "#"}

	text := RenderText(e)
	if strings.Contains(text, "<script>") {
		t.Fatalf("script tag survived in text:\n%s", text)
	}
	html := RenderHTML(e)
	if strings.Contains(html, "<script>") {
		t.Fatalf("script tag survived in html:\n%s", html)
	}
	if !strings.Contains(html, "Cable &amp; Plug") {
		t.Fatalf("name not escaped:\n%s", html)
	}
	if !strings.Contains(html, "Buy now") {
		t.Fatalf("missing link:\n%s", html)
	}
}

func TestEventJSON(t *testing.T) {
	b, err := json.Marshal(Event{Kind: BackInStock, Site: "s", Name: "n", NewPrice: decimal.NewFromInt(3)})
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatal(err)
	}
	if m["kind"] != "back_in_stock" {
		t.Fatalf("kind = %v", m["kind"])
	}
	if _, ok := m["old_price"]; ok {
		t.Fatalf("stock event should omit old_price: %s", b)
	}
}
