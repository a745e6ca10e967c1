package cmd

import (
	"fmt"
	"io"
	"net/url"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hanzlahyasir/price-alert-notifier-telegram-bot/internal/models"
	"github.com/hanzlahyasir/price-alert-notifier-telegram-bot/internal/pipeline"
)

// printProductsTable prints one row per product.
func printProductsTable(w io.Writer, products []models.ProductRecord) {
	if len(products) == 0 {
		fmt.Fprintln(w, "No products stored yet.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SITE\tCODE\tNAME\tPRICE\tSTOCK\tALERTS\tLAST SEEN\tURL")
	for _, p := range products {
		alerts := "on"
		if !p.IsTracked {
			alerts = "off"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			p.Site,
			truncate(p.Code, 20),
			truncate(p.Name, 40),
			formatPrice(p.LastPrice),
			truncate(p.LastStockStatus, 16),
			alerts,
			p.LastSeenAt.Local().Format(time.DateTime),
			cleanURL(p.URL),
		)
	}
	tw.Flush()
}

// printSummary prints per-site counts of a run and the alert totals.
func printSummary(w io.Writer, s pipeline.Summary) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SITE\tFETCHED\tNEW\tUPDATED\tALERTS\tSKIPPED\tFAILED")
	for _, site := range s.Sites {
		r := site.Result
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%d\n",
			site.Site, site.Fetched, r.New, r.Updated, r.Alerts, r.Malformed+r.Superseded, r.Failed)
	}
	t := s.Totals
	fmt.Fprintf(tw, "TOTAL\t\t%d\t%d\t%d\t%d\t%d\n", t.New, t.Updated, t.Alerts, t.Malformed+t.Superseded, t.Failed)
	tw.Flush()

	fmt.Fprintf(w, "\nRun %s took %s. Alerts sent: %d, failed: %d, dropped: %d.\n",
		s.RunID,
		s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond),
		s.Alerts.Sent, s.Alerts.Failed, s.Alerts.Dropped)
}

// formatPrice formats a price as "$1234.50", or "-" when none is stored.
func formatPrice(p *decimal.Decimal) string {
	if p == nil {
		return "-"
	}
	return "$" + p.StringFixed(2)
}

// cleanURL strips tracking query params and returns just the product page URL.
func cleanURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}
