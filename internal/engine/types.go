package engine

import (
	"time"

	"signal-core/internal/market"
	"signal-core/internal/state"
	"signal-core/internal/strategy"
)

// Result is the reply handed back to the simulator.
type Result struct {
	Orders      map[string][]market.Order `json:"orders"`
	Conversions *int                      `json:"conversions"`
	TraderData  string                    `json:"traderData"`
}

// ProductResult is the outcome for one product. A non-nil Err means the
// product produced no orders and its prior state was carried forward.
type ProductResult struct {
	Product  string
	Position int
	Signal   strategy.Signal
	Orders   []market.Order
	State    state.Product
	Err      error
}

// Decision is one Run with everything observers need.
type Decision struct {
	ID        string
	Timestamp int64
	Strategy  string
	Kind      state.Kind
	Products  []ProductResult
	Result    Result
	Latency   time.Duration
	// EncodeErr is set when the next state could not be serialized and
	// Result.TraderData fell back to state.EmptyBlob.
	EncodeErr error
}

// OrderCount returns the number of orders across all products.
func (d Decision) OrderCount() int {
	n := 0
	for _, orders := range d.Result.Orders {
		n += len(orders)
	}
	return n
}

// Failures returns the products that failed.
func (d Decision) Failures() []ProductResult {
	var out []ProductResult
	for _, p := range d.Products {
		if p.Err != nil {
			out = append(out, p)
		}
	}
	return out
}

// Observer is notified after every Run, on the caller's goroutine.
type Observer interface {
	ObserveDecision(d Decision)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(d Decision)

func (f ObserverFunc) ObserveDecision(d Decision) { f(d) }
