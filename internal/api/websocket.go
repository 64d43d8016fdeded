package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"signal-core/internal/engine"
	"signal-core/internal/events"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// DecisionMessage is the websocket frame pushed for every decision.
type DecisionMessage struct {
	ID        string          `json:"id"`
	Timestamp int64           `json:"timestamp"`
	Strategy  string          `json:"strategy"`
	LatencyMs float64         `json:"latency_ms"`
	Result    engine.Result   `json:"result"`
	Failures  []FailureDetail `json:"failures,omitempty"`
}

// FailureDetail names a product that was skipped.
type FailureDetail struct {
	Product string `json:"product"`
	Error   string `json:"error"`
}

func newDecisionMessage(d engine.Decision) DecisionMessage {
	msg := DecisionMessage{
		ID:        d.ID,
		Timestamp: d.Timestamp,
		Strategy:  d.Strategy,
		LatencyMs: float64(d.Latency.Microseconds()) / 1000,
		Result:    d.Result,
	}
	for _, f := range d.Failures() {
		msg.Failures = append(msg.Failures, FailureDetail{Product: f.Product, Error: f.Err.Error()})
	}
	return msg
}

func (s *Server) websocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	if s.deps.Bus == nil {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"bus not ready"}`))
		return
	}

	stream, unsub := s.deps.Bus.Subscribe(events.EventDecision, 100)
	defer unsub()

	// Drain client frames so close messages are noticed.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			return
		case msg, ok := <-stream:
			if !ok {
				return
			}
			d, isDecision := msg.(engine.Decision)
			if !isDecision {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteJSON(newDecisionMessage(d)); err != nil {
				s.logger.Debug("ws write failed", zap.Error(err))
				return
			}
		}
	}
}
