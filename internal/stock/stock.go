// Package stock turns free-text availability labels into a tri-state.
package stock

import "strings"

type Status int

const (
	Unknown Status = iota
	InStock
	OutOfStock
)

func (s Status) String() string {
	switch s {
	case InStock:
		return "in-stock"
	case OutOfStock:
		return "out-of-stock"
	default:
		return "unknown"
	}
}

// Labels used when a source reports availability as a flag rather than text.
const (
	LabelInStock    = "In Stock"
	LabelOutOfStock = "Out of Stock"
)

// Classify matches case-insensitive substrings. An out-of-stock phrase wins
// over "in stock", so "Out of stock, back in stock soon" is OutOfStock.
func Classify(label string) Status {
	l := strings.ToLower(label)
	switch {
	case strings.Contains(l, "out of stock"), strings.Contains(l, "out stock"):
		return OutOfStock
	case strings.Contains(l, "in stock"):
		return InStock
	default:
		return Unknown
	}
}
