package strategy

import "signal-core/internal/market"

// takeAsk lifts the whole best ask. The resting sell quantity is negative,
// so flipping its sign yields the buy size.
func takeAsk(product string, ask market.Level) (market.Order, bool) {
	qty := -ask.Quantity
	if qty == 0 {
		return market.Order{}, false
	}
	return market.Order{Symbol: product, Price: ask.PriceFloat(), Quantity: qty}, true
}

// hitBid sells into the whole best bid.
func hitBid(product string, bid market.Level) (market.Order, bool) {
	qty := -bid.Quantity
	if qty == 0 {
		return market.Order{}, false
	}
	return market.Order{Symbol: product, Price: bid.PriceFloat(), Quantity: qty}, true
}

// buyUpTo buys at the best ask, capped by headroom.
func buyUpTo(product string, ask market.Level, headroom int) (market.Order, bool) {
	qty := min(abs(ask.Quantity), headroom)
	if qty <= 0 {
		return market.Order{}, false
	}
	return market.Order{Symbol: product, Price: ask.PriceFloat(), Quantity: qty}, true
}

// sellUpTo sells at the best bid, capped by headroom.
func sellUpTo(product string, bid market.Level, headroom int) (market.Order, bool) {
	qty := min(abs(bid.Quantity), headroom)
	if qty <= 0 {
		return market.Order{}, false
	}
	return market.Order{Symbol: product, Price: bid.PriceFloat(), Quantity: -qty}, true
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
