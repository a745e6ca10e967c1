// Package alert queues state-transition events during a run and sends them
// through the configured transports when the run ends.
package alert

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

type Kind int

const (
	PriceDrop Kind = iota + 1
	PriceIncrease
	BackInStock
	OutOfStock
)

func (k Kind) String() string {
	switch k {
	case PriceDrop:
		return "price_drop"
	case PriceIncrease:
		return "price_increase"
	case BackInStock:
		return "back_in_stock"
	case OutOfStock:
		return "out_of_stock"
	default:
		return "unknown"
	}
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Event is one transition worth telling someone about. Price events carry
// both prices; stock events carry only NewPrice.
type Event struct {
	Kind     Kind
	Site     string
	Name     string
	URL      string
	OldPrice decimal.Decimal
	NewPrice decimal.Decimal
}

// Price is the current price, the only one stock events have.
func (e Event) Price() decimal.Decimal { return e.NewPrice }

// IsPriceChange reports whether OldPrice is meaningful.
func (e Event) IsPriceChange() bool {
	return e.Kind == PriceDrop || e.Kind == PriceIncrease
}

type eventJSON struct {
	Kind     Kind             `json:"kind"`
	Site     string           `json:"site"`
	Name     string           `json:"name"`
	URL      string           `json:"url"`
	OldPrice *decimal.Decimal `json:"old_price,omitempty"`
	Price    decimal.Decimal  `json:"price"`
}

func (e Event) MarshalJSON() ([]byte, error) {
	out := eventJSON{Kind: e.Kind, Site: e.Site, Name: e.Name, URL: e.URL, Price: e.NewPrice}
	if e.IsPriceChange() {
		old := e.OldPrice
		out.OldPrice = &old
	}
	return json.Marshal(out)
}
