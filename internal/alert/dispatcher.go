package alert

import (
	"context"
	"log/slog"
	"sync"
)

// Dispatcher fans events out to every webhook subscribed to them.
// A nil *Dispatcher drops everything.
type Dispatcher struct {
	configs []Config
	log     *slog.Logger
	wg      sync.WaitGroup
}

// NewDispatcher returns nil when there is nothing to deliver to.
func NewDispatcher(configs []Config, log *slog.Logger) *Dispatcher {
	if len(configs) == 0 {
		return nil
	}
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{configs: configs, log: log}
}

// Dispatch delivers ev in the background to each matching webhook.
func (d *Dispatcher) Dispatch(ev Event) {
	if d == nil {
		return
	}
	for _, cfg := range d.configs {
		if !matches(cfg.Events, ev) {
			continue
		}
		d.wg.Add(1)
		go func(cfg Config) {
			defer d.wg.Done()
			if err := Send(context.Background(), cfg, ev); err != nil {
				d.log.Warn("alert delivery failed", "url", cfg.URL, "receipt_id", ev.ReceiptID, "error", err)
			}
		}(cfg)
	}
}

// Wait blocks until in-flight deliveries finish.
func (d *Dispatcher) Wait() {
	if d == nil {
		return
	}
	d.wg.Wait()
}

func matches(events []string, ev Event) bool {
	for _, e := range events {
		if e == ev.Decision || e == ev.Kind {
			return true
		}
	}
	return false
}
