package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ProductRecord is the last known state of one product on one site.
type ProductRecord struct {
	Site            string           `json:"site_name"`
	Code            string           `json:"product_code"`
	Name            string           `json:"name"`
	URL             string           `json:"url"`
	LastPrice       *decimal.Decimal `json:"last_price_usd"`
	LastStockStatus string           `json:"last_stock_status"`
	IsTracked       bool             `json:"is_tracked"`
	FirstSeenAt     time.Time        `json:"first_seen_timestamp"`
	LastSeenAt      time.Time        `json:"last_seen_timestamp"`
}

// ProductUpdate carries the fields written by an upsert.
// A nil Price keeps the stored price on update.
type ProductUpdate struct {
	Site        string
	Code        string
	Name        string
	URL         string
	Price       *decimal.Decimal
	StockStatus string
}

// ScrapedItem is one product as reported by a source.
type ScrapedItem struct {
	Code        string   `json:"code"`
	Name        string   `json:"name"`
	URL         string   `json:"url"`
	Price       RawPrice `json:"price"`
	StockStatus string   `json:"stock_status"`
}

// RawPrice is a price as scraped: either a number or free text.
// The zero value means no price was reported.
type RawPrice struct {
	num  *decimal.Decimal
	text string
	set  bool
}

func PriceNumber(d decimal.Decimal) RawPrice {
	return RawPrice{num: &d, set: true}
}

func PriceFloat(f float64) RawPrice {
	return PriceNumber(decimal.NewFromFloat(f))
}

func PriceText(s string) RawPrice {
	return RawPrice{text: s, set: true}
}

// Number returns the numeric value when the price was reported as a number.
func (p RawPrice) Number() (decimal.Decimal, bool) {
	if p.num == nil {
		return decimal.Decimal{}, false
	}
	return *p.num, true
}

// Text returns the textual value when the price was reported as text.
func (p RawPrice) Text() (string, bool) {
	if !p.set || p.num != nil {
		return "", false
	}
	return p.text, true
}

func (p RawPrice) IsZero() bool { return !p.set }

func (p RawPrice) String() string {
	switch {
	case p.num != nil:
		return p.num.String()
	case p.set:
		return p.text
	default:
		return ""
	}
}

func (p RawPrice) MarshalJSON() ([]byte, error) {
	switch {
	case p.num != nil:
		return []byte(p.num.String()), nil
	case p.set:
		return json.Marshal(p.text)
	default:
		return []byte("null"), nil
	}
}

func (p *RawPrice) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*p = RawPrice{}
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = PriceText(s)
	default:
		d, err := decimal.NewFromString(string(data))
		if err != nil {
			return fmt.Errorf("price: %w", err)
		}
		*p = PriceNumber(d)
	}
	return nil
}
