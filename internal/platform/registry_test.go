package platform

import (
	"context"
	"errors"
	"testing"

	"github.com/hanzlahyasir/price-alert-notifier-telegram-bot/internal/models"
)

type stubSource string

func (s stubSource) Name() string { return string(s) }
func (s stubSource) Fetch(context.Context) ([]models.ScrapedItem, error) {
	return nil, nil
}

func TestRegistry(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	Register(stubSource("megaeletronicos"))
	Register(stubSource("atacadoconnect"))

	names := List()
	if len(names) != 2 || names[0] != "atacadoconnect" || names[1] != "megaeletronicos" {
		t.Fatalf("List() = %v", names)
	}
	if _, err := Get("mobilezone"); !errors.Is(err, ErrUnknownSource) {
		t.Fatalf("Get(unknown) err = %v, want ErrUnknownSource", err)
	}
	s, err := Get("atacadoconnect")
	if err != nil || s.Name() != "atacadoconnect" {
		t.Fatalf("Get = %v, %v", s, err)
	}
}

func TestReportProgress(t *testing.T) {
	var got string
	ctx := WithProgress(context.Background(), func(msg string) { got = msg })
	ReportProgress(ctx, "mobilezone: 12 items")
	if got != "mobilezone: 12 items" {
		t.Fatalf("progress = %q", got)
	}
	ReportProgress(context.Background(), "ignored")
}

func TestProgressf(t *testing.T) {
	var got string
	ctx := WithProgress(context.Background(), func(msg string) { got = msg })
	Progressf(ctx, "%s: %d items via %s", "tecnoblog", 3, "static")
	if got != "tecnoblog: 3 items via static" {
		t.Fatalf("progress = %q", got)
	}
	Progressf(context.Background(), "%d", 1)
}
