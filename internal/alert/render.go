package alert

import (
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/shopspring/decimal"
)

var (
	// scraped names and URLs are untrusted
	textPolicy = bluemonday.StrictPolicy()
	mailPolicy = bluemonday.UGCPolicy()
)

func money(d decimal.Decimal) string { return "$" + d.StringFixed(2) }

func headline(k Kind) (icon, title string) {
	switch k {
	case PriceDrop:
		return "📉", "Price Drop Alert!"
	case PriceIncrease:
		return "📈", "Price Increase Alert!"
	case BackInStock:
		return "📦", "Back in Stock!"
	case OutOfStock:
		return "🚫", "Out of Stock"
	default:
		return "🔔", "Product Update"
	}
}

// RenderText builds the instant-message body in Telegram's HTML parse mode.
func RenderText(e Event) string {
	icon, title := headline(e.Kind)
	name := textPolicy.Sanitize(e.Name)

	var b strings.Builder
	fmt.Fprintf(&b, "%s <b>%s</b>\n\n", icon, title)
	fmt.Fprintf(&b, "<b>Product:</b> %s\n", name)
	fmt.Fprintf(&b, "<b>Site:</b> %s\n", textPolicy.Sanitize(e.Site))
	if e.IsPriceChange() {
		fmt.Fprintf(&b, "<b>Old Price:</b> %s\n", money(e.OldPrice))
		fmt.Fprintf(&b, "<b>New Price:</b> <b>%s</b>\n", money(e.NewPrice))
	} else {
		fmt.Fprintf(&b, "<b>Price:</b> %s\n", money(e.Price()))
	}
	fmt.Fprintf(&b, "<b>URL:</b> %s", textPolicy.Sanitize(e.URL))
	return b.String()
}

func RenderSubject(e Event) string {
	var prefix string
	switch e.Kind {
	case PriceDrop:
		prefix = "Price Drop"
	case PriceIncrease:
		prefix = "Price Increase"
	case BackInStock:
		prefix = "Back in Stock"
	case OutOfStock:
		prefix = "Out of Stock"
	default:
		prefix = "Update"
	}
	return prefix + ": " + textPolicy.Sanitize(e.Name)
}

// RenderHTML builds the email body. The result is passed through a UGC
// policy so a hostile product name cannot inject markup.
func RenderHTML(e Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<h1>%s</h1>", textPolicy.Sanitize(e.Name))
	fmt.Fprintf(&b, "<p>Site: %s</p>", textPolicy.Sanitize(e.Site))
	switch e.Kind {
	case PriceDrop, PriceIncrease:
		fmt.Fprintf(&b, "<p>Price changed from <s>%s</s> to <strong>%s</strong></p>",
			money(e.OldPrice), money(e.NewPrice))
	case BackInStock:
		fmt.Fprintf(&b, "<p>Back in stock at <strong>%s</strong></p>", money(e.Price()))
	case OutOfStock:
		fmt.Fprintf(&b, "<p>Now out of stock (last price %s)</p>", money(e.Price()))
	}
	fmt.Fprintf(&b, `<p><a href="%s">Buy now</a></p>`, textPolicy.Sanitize(e.URL))
	return mailPolicy.Sanitize(b.String())
}
