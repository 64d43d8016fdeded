package monitor

import (
	"signal-core/internal/engine"
	"signal-core/pkg/cache"
)

// SignalTracker returns an observer that records every product's latest
// signal in c.
func SignalTracker(c *cache.SignalCache) engine.Observer {
	return engine.ObserverFunc(func(d engine.Decision) {
		for _, p := range d.Products {
			c.Set(cache.Entry{
				Product:   p.Product,
				Fair:      p.Signal.Fair,
				Trend:     string(p.Signal.Trend),
				Position:  p.Position,
				Orders:    len(p.Orders),
				Failed:    p.Err != nil,
				Timestamp: d.Timestamp,
			})
		}
	})
}
