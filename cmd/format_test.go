package cmd

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hanzlahyasir/price-alert-notifier-telegram-bot/internal/alert"
	"github.com/hanzlahyasir/price-alert-notifier-telegram-bot/internal/diff"
	"github.com/hanzlahyasir/price-alert-notifier-telegram-bot/internal/models"
	"github.com/hanzlahyasir/price-alert-notifier-telegram-bot/internal/pipeline"
)

func TestFormatPrice(t *testing.T) {
	d := decimal.RequireFromString("1299.5")
	if got := formatPrice(&d); got != "$1299.50" {
		t.Fatalf("formatPrice = %q", got)
	}
	if got := formatPrice(nil); got != "-" {
		t.Fatalf("formatPrice(nil) = %q", got)
	}
}

func TestCleanURL(t *testing.T) {
	tests := []struct{ in, want string }{
		{"https://shop.example/p/1?utm_source=x#reviews", "https://shop.example/p/1"},
		{"#", "#"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := cleanURL(tt.in); got != tt.want {
			t.Errorf("cleanURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("Stainless steel mug", 10); got != "Stainle..." {
		t.Fatalf("truncate = %q", got)
	}
	if got := truncate("mug", 10); got != "mug" {
		t.Fatalf("truncate = %q", got)
	}
}

func TestPrintSummary(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := pipeline.Summary{
		RunID:      "run-1",
		StartedAt:  start,
		FinishedAt: start.Add(1500 * time.Millisecond),
		Sites: []pipeline.SiteSummary{
			{Site: "shop", Fetched: 3, Result: diff.Result{New: 1, Updated: 2, Alerts: 1}},
		},
		Totals: diff.Result{New: 1, Updated: 2, Alerts: 1},
		Alerts: alert.FlushReport{Events: 1, Sent: 2},
	}

	var buf bytes.Buffer
	printSummary(&buf, s)
	out := buf.String()
	for _, want := range []string{"shop", "TOTAL", "Run run-1 took 1.5s", "Alerts sent: 2"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary lacks %q:\n%s", want, out)
		}
	}
}

func TestPrintProductsTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	printProductsTable(&buf, []models.ProductRecord{})
	if !strings.Contains(buf.String(), "No products") {
		t.Fatalf("got %q", buf.String())
	}
}
