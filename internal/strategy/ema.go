package strategy

import (
	"fmt"

	"signal-core/internal/indicators"
	"signal-core/internal/market"
	"signal-core/internal/state"
)

// EMAStrategy trades the best levels against an exponential moving average.
// Both sides feed the same average, ask first.
type EMAStrategy struct {
	period    int
	smoothing float64
	alpha     float64
}

// NewEMAStrategy creates an EMA strategy with alpha = smoothing/(1+period).
func NewEMAStrategy(period int, smoothing float64) *EMAStrategy {
	return &EMAStrategy{
		period:    period,
		smoothing: smoothing,
		alpha:     indicators.Alpha(smoothing, period),
	}
}

func (s *EMAStrategy) Name() string {
	return fmt.Sprintf("EMA_%d_%g", s.period, s.smoothing)
}

func (s *EMAStrategy) Kind() state.Kind { return state.KindEMA }

func (s *EMAStrategy) OnBook(product string, top market.Top, _ int, st *state.Product) Signal {
	sig := Signal{Symbol: product}

	if top.HasAsk {
		ask := top.Ask.PriceFloat()
		sig.Fair = st.EMA.Update(ask, s.alpha)
		if ask < sig.Fair {
			if o, ok := takeAsk(product, top.Ask); ok {
				sig.Orders = append(sig.Orders, o)
			}
		}
	}

	if top.HasBid {
		bid := top.Bid.PriceFloat()
		sig.Fair = st.EMA.Update(bid, s.alpha)
		if bid > sig.Fair {
			if o, ok := hitBid(product, top.Bid); ok {
				sig.Orders = append(sig.Orders, o)
			}
		}
	}

	return sig
}
