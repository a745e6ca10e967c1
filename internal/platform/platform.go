package platform

import (
	"context"

	"github.com/hanzlahyasir/price-alert-notifier-telegram-bot/internal/models"
)

// Source is one external site polled once per run.
// Fetch returns an error for failures worth retrying; an empty slice means
// the site had nothing to report.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]models.ScrapedItem, error)
}

// Request asks a strategy to extract items from one page.
type Request struct {
	URL string
}

type Result struct {
	Items    []models.ScrapedItem
	Strategy string
}

// Strategy is one way of getting items out of a page (static HTML, CSS
// selectors, headless browser).
type Strategy interface {
	Name() string
	Execute(ctx context.Context, req Request) (*Result, error)
}
