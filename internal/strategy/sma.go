package strategy

import (
	"fmt"

	"signal-core/internal/indicators"
	"signal-core/internal/market"
	"signal-core/internal/state"
)

// SMAStrategy trades the best levels against a simple moving average of
// observed best prices. With adaptive set, the averaging window is widened by
// recent volatility on every observation.
type SMAStrategy struct {
	window   int
	adaptive bool
}

// NewSMAStrategy creates a fixed-window SMA strategy.
func NewSMAStrategy(window int) *SMAStrategy {
	return &SMAStrategy{window: window}
}

// NewAdaptiveSMAStrategy creates a volatility-adaptive SMA strategy around a base window.
func NewAdaptiveSMAStrategy(baseWindow int) *SMAStrategy {
	return &SMAStrategy{window: baseWindow, adaptive: true}
}

func (s *SMAStrategy) Name() string {
	if s.adaptive {
		return fmt.Sprintf("AdaptiveSMA_%d", s.window)
	}
	return fmt.Sprintf("SMA_%d", s.window)
}

func (s *SMAStrategy) Kind() state.Kind {
	if s.adaptive {
		return state.KindAdaptiveSMA
	}
	return state.KindSMA
}

// windowFor sizes the window for a history that is about to contain prices.
func (s *SMAStrategy) windowFor(prices []float64) int {
	if !s.adaptive {
		return s.window
	}
	return indicators.AdaptiveWindow(s.window, indicators.Volatility(prices))
}

func (s *SMAStrategy) OnBook(product string, top market.Top, _ int, st *state.Product) Signal {
	sig := Signal{Symbol: product}
	h := st.History

	if top.HasAsk {
		ask := top.Ask.PriceFloat()
		size := s.windowFor(h.With(ask))
		h.Append(ask, size)
		sig.Fair = indicators.SMA(h.Tail(size), size)

		if ask < sig.Fair {
			if o, ok := takeAsk(product, top.Ask); ok {
				sig.Orders = append(sig.Orders, o)
			}
		}
	}

	if top.HasBid {
		bid := top.Bid.PriceFloat()
		next := h.Values()
		if last, ok := h.Last(); !ok || last != bid {
			next = h.With(bid)
		}
		size := s.windowFor(next)
		h.AppendIfChanged(bid, size)
		sig.Fair = indicators.SMA(h.Tail(size), size)

		if bid > sig.Fair {
			if o, ok := hitBid(product, top.Bid); ok {
				sig.Orders = append(sig.Orders, o)
			}
		}
	}

	return sig
}
