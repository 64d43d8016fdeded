package strategy

import (
	"fmt"
	"slices"

	"signal-core/internal/indicators"
	"signal-core/internal/market"
	"signal-core/internal/risk"
	"signal-core/internal/state"
)

// MACrossStrategy classifies the trend of the mid price with a short and a
// long moving average and trades in its direction, sized by position headroom.
// Upward trend buys the best ask, downward trend sells the best bid.
type MACrossStrategy struct {
	shortPeriod  int
	longPeriod   int
	historyLimit int
	limits       risk.Limits
}

// NewMACrossStrategy creates a crossover strategy.
func NewMACrossStrategy(shortPeriod, longPeriod, historyLimit int, limits risk.Limits) *MACrossStrategy {
	return &MACrossStrategy{
		shortPeriod:  shortPeriod,
		longPeriod:   longPeriod,
		historyLimit: max(historyLimit, longPeriod),
		limits:       limits,
	}
}

func (s *MACrossStrategy) Name() string {
	return fmt.Sprintf("MA_Cross_%d_%d", s.shortPeriod, s.longPeriod)
}

func (s *MACrossStrategy) Kind() state.Kind { return state.KindCrossover }

// ClassifyTrend compares the short and long SMA of history. Ties are sideways.
func ClassifyTrend(history []float64, shortPeriod, longPeriod int) Trend {
	shortMA := indicators.SMA(history, min(len(history), shortPeriod))
	longMA := indicators.SMA(history, min(len(history), longPeriod))
	switch {
	case shortMA > longMA:
		return TrendUp
	case shortMA < longMA:
		return TrendDown
	default:
		return TrendSideways
	}
}

func (s *MACrossStrategy) OnBook(product string, top market.Top, position int, st *state.Product) Signal {
	sig := Signal{Symbol: product, Trend: TrendSideways}
	if !top.HasAsk || !top.HasBid {
		return sig
	}

	mid := market.MidPrice(top.Ask, top.Bid)
	st.History.Append(mid, s.historyLimit)
	sig.Fair = mid

	recent := st.History.Tail(s.longPeriod)
	support, resistance := slices.Min(recent), slices.Max(recent)
	st.Support, st.Resistance = &support, &resistance

	sig.Trend = ClassifyTrend(st.History.Values(), s.shortPeriod, s.longPeriod)
	switch sig.Trend {
	case TrendUp:
		if s.limits.CanBuy(product, position) {
			if o, ok := buyUpTo(product, top.Ask, s.limits.MaxBuy(product, position)); ok {
				sig.Orders = append(sig.Orders, o)
			}
		}
	case TrendDown:
		if s.limits.CanSell(product, position) {
			if o, ok := sellUpTo(product, top.Bid, s.limits.MaxSell(product, position)); ok {
				sig.Orders = append(sig.Orders, o)
			}
		}
	}
	return sig
}
