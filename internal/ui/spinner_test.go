package ui

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSpinnerShowsLatestMessage(t *testing.T) {
	out := &syncBuffer{}
	s := NewSpinner(out)
	s.tick = time.Millisecond

	s.Start("starting")
	s.Update("shop: 3 items")
	time.Sleep(20 * time.Millisecond)
	s.Stop()

	got := out.String()
	if !strings.Contains(got, "shop: 3 items") {
		t.Fatalf("output %q lacks updated message", got)
	}
	if !strings.HasSuffix(got, "\r\033[K") {
		t.Fatalf("output %q does not end by clearing the line", got)
	}
}

func TestSpinnerStopIsSafe(t *testing.T) {
	s := NewSpinner(&syncBuffer{})
	s.Stop()
	s.Start("x")
	s.Stop()
	s.Stop()

	var nilSpinner *Spinner
	nilSpinner.Start("x")
	nilSpinner.Update("y")
	nilSpinner.Stop()
}
