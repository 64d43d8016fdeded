package events

import "signal-core/internal/engine"

// DecisionPublisher returns an engine observer that publishes every decision
// and every failed product on b.
func DecisionPublisher(b *Bus) engine.Observer {
	return engine.ObserverFunc(func(d engine.Decision) {
		b.Publish(EventDecision, d)
		for _, f := range d.Failures() {
			b.Publish(EventProductFailed, f)
		}
	})
}
