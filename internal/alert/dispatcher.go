package alert

import (
	"context"
	"log/slog"
	"sync"
)

// Dispatcher is the run-scoped alert queue. It is safe for concurrent use.
// The queue lives in memory only; events not flushed before a crash are lost.
type Dispatcher struct {
	mu         sync.Mutex
	queue      []Event
	transports []Transport
	log        *slog.Logger
}

// FlushReport counts per-message outcomes. Dropped counts events that had no
// transport to go to.
type FlushReport struct {
	Events  int `json:"events"`
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Dropped int `json:"dropped"`
}

func NewDispatcher(log *slog.Logger, transports ...Transport) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{transports: transports, log: log}
}

func (d *Dispatcher) Enqueue(e Event) {
	d.mu.Lock()
	d.queue = append(d.queue, e)
	d.mu.Unlock()
}

func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

func (d *Dispatcher) Transports() []string {
	names := make([]string, len(d.transports))
	for i, t := range d.transports {
		names[i] = t.Name()
	}
	return names
}

// Flush sends every queued event through every transport in enqueue order.
// The queue is emptied whatever the outcome; failed messages are logged and
// not requeued.
func (d *Dispatcher) Flush(ctx context.Context) FlushReport {
	d.mu.Lock()
	events := d.queue
	d.queue = nil
	d.mu.Unlock()

	report := FlushReport{Events: len(events)}
	if len(events) == 0 {
		return report
	}
	if len(d.transports) == 0 {
		for _, e := range events {
			d.log.InfoContext(ctx, "alert dropped, no transport configured",
				slog.String("kind", e.Kind.String()),
				slog.String("site", e.Site),
				slog.String("name", e.Name),
				slog.String("url", e.URL))
		}
		report.Dropped = len(events)
		return report
	}

	for _, t := range d.transports {
		d.log.InfoContext(ctx, "sending alerts", slog.String("transport", t.Name()), slog.Int("count", len(events)))
		for _, e := range events {
			if err := t.Send(ctx, e); err != nil {
				report.Failed++
				d.log.ErrorContext(ctx, "alert delivery failed",
					slog.String("transport", t.Name()),
					slog.String("kind", e.Kind.String()),
					slog.String("site", e.Site),
					slog.Any("error", err))
				continue
			}
			report.Sent++
		}
	}
	return report
}
