package strategy

import (
	"signal-core/internal/market"
	"signal-core/internal/state"
)

// Trend is the crossover classification of a price history.
type Trend string

const (
	TrendUp       Trend = "upward"
	TrendDown     Trend = "downward"
	TrendSideways Trend = "sideways"
)

// Signal is what a strategy decided for one product in one call.
type Signal struct {
	Symbol string
	Fair   float64 // last fair value the book was compared against
	Trend  Trend   // only set by the crossover strategy
	Orders []market.Order
}

// Strategy defines the interface for all signal strategies.
type Strategy interface {
	// Name returns the human-readable name
	Name() string
	// Kind is the state schema the strategy reads and writes
	Kind() state.Kind
	// OnBook evaluates one product's top of book, mutating st in place.
	// Ask-side work always happens before bid-side work.
	OnBook(product string, top market.Top, position int, st *state.Product) Signal
}
