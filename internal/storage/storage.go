// Package storage defines the product state store used by the diff engine.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/hanzlahyasir/price-alert-notifier-telegram-bot/internal/models"
)

var (
	ErrNotFound      = errors.New("product not found")
	ErrInvalidKey    = errors.New("site and code are required")
	ErrNegativePrice = errors.New("price must not be negative")
)

// TimeLayout is the fixed-width ISO-8601 UTC form used for timestamps.
// Fixed width keeps lexical and chronological order identical.
const TimeLayout = "2006-01-02T15:04:05.000000Z07:00"

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Site        string
	TrackedOnly bool
	Limit       int
}

// Store is keyed by (site, code). Upsert is insert-or-update in one statement.
type Store interface {
	Get(ctx context.Context, site, code string) (models.ProductRecord, error)
	Upsert(ctx context.Context, u models.ProductUpdate) error
	SetTracked(ctx context.Context, site, code string, tracked bool) error
	List(ctx context.Context, f Filter) ([]models.ProductRecord, error)
	Close() error
}

// Clock returns the current time. Backends default to time.Now.
type Clock func() time.Time

// ValidateUpdate checks the invariants every backend enforces before writing.
func ValidateUpdate(u models.ProductUpdate) error {
	if u.Site == "" || u.Code == "" {
		return ErrInvalidKey
	}
	if u.Price != nil && u.Price.IsNegative() {
		return ErrNegativePrice
	}
	return nil
}
