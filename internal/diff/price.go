package diff

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/hanzlahyasir/price-alert-notifier-telegram-bot/internal/models"
)

// NormalizePrice turns a scraped price into a non-negative decimal, or nil
// when no usable price was reported.
//
// Numbers are taken as-is. Text keeps only digits and '.', so "$1,299.00"
// becomes 1299.00 and "80,00" becomes 8000. With decimalComma set, '.' is a
// thousands separator and ',' the decimal point: "1.234,56" becomes 1234.56.
func NormalizePrice(raw models.RawPrice, decimalComma bool) *decimal.Decimal {
	if n, ok := raw.Number(); ok {
		if n.IsNegative() {
			return nil
		}
		return &n
	}

	s, ok := raw.Text()
	if !ok {
		return nil
	}
	if decimalComma {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}

	var b strings.Builder
	digits := 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
			b.WriteRune(r)
		case r == '.':
			b.WriteRune(r)
		}
	}
	if digits == 0 {
		return nil
	}

	d, err := decimal.NewFromString(b.String())
	if err != nil {
		return nil
	}
	return &d
}
