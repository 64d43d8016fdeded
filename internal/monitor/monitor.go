package monitor

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"signal-core/internal/engine"
	"signal-core/internal/events"
)

// Monitor watches failed products on the bus and forwards alerts.
type Monitor struct {
	Bus    *events.Bus
	Sink   AlertSink
	Logger *zap.Logger
}

// Start subscribes and returns immediately; the listener stops with ctx.
func (m *Monitor) Start(ctx context.Context) {
	logger := m.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "monitor"))
	if m.Bus == nil || m.Sink == nil {
		logger.Info("monitor not fully configured; skipping")
		return
	}
	stream, unsub := m.Bus.Subscribe(events.EventProductFailed, 50)
	go func() {
		defer unsub()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-stream:
				if !ok {
					return
				}
				if err := m.Sink.Send(formatAlert(msg)); err != nil {
					logger.Error("alert delivery failed", zap.Error(err))
				}
			}
		}
	}()
}

func formatAlert(msg any) string {
	return "[" + time.Now().Format(time.RFC3339) + "] " + toString(msg)
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case engine.ProductResult:
		return fmt.Sprintf("product %s skipped: %v", t.Product, t.Err)
	default:
		return "alert triggered"
	}
}
