package monitor

import "go.uber.org/zap"

// AlertSink interface for pluggable alert delivery.
type AlertSink interface {
	Send(message string) error
}

// LogSink writes alerts to a logger at warn level.
type LogSink struct {
	Logger *zap.Logger
}

func (s LogSink) Send(message string) error {
	s.Logger.Warn("alert", zap.String("message", message))
	return nil
}
