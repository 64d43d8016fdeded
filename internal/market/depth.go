package market

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrBadLevel reports a price level whose key is not a decimal number.
var ErrBadLevel = errors.New("malformed price level")

// Level is a single resting price level.
type Level struct {
	Price    decimal.Decimal
	Quantity int
}

// PriceFloat returns the level price as float64.
func (l Level) PriceFloat() float64 {
	f, _ := l.Price.Float64()
	return f
}

// NewDepth returns an empty book ready for Bid/Ask chaining.
func NewDepth() *OrderDepth {
	return &OrderDepth{
		BuyOrders:  make(map[string]int),
		SellOrders: make(map[string]int),
	}
}

// Bid adds a resting buy level.
func (d *OrderDepth) Bid(price float64, qty int) *OrderDepth {
	if d.BuyOrders == nil {
		d.BuyOrders = make(map[string]int)
	}
	d.BuyOrders[decimal.NewFromFloat(price).String()] = qty
	return d
}

// Ask adds a resting sell level; qty is expected to be negative.
func (d *OrderDepth) Ask(price float64, qty int) *OrderDepth {
	if d.SellOrders == nil {
		d.SellOrders = make(map[string]int)
	}
	d.SellOrders[decimal.NewFromFloat(price).String()] = qty
	return d
}

// BestAsk returns the lowest sell level. ok is false for an empty side.
func (d OrderDepth) BestAsk() (Level, bool, error) {
	return best(d.SellOrders, func(a, b decimal.Decimal) bool { return a.LessThan(b) })
}

// BestBid returns the highest buy level. ok is false for an empty side.
func (d OrderDepth) BestBid() (Level, bool, error) {
	return best(d.BuyOrders, func(a, b decimal.Decimal) bool { return a.GreaterThan(b) })
}

func best(levels map[string]int, better func(a, b decimal.Decimal) bool) (Level, bool, error) {
	var (
		top   Level
		found bool
	)
	for key, qty := range levels {
		price, err := decimal.NewFromString(key)
		if err != nil {
			return Level{}, false, fmt.Errorf("%w: %q", ErrBadLevel, key)
		}
		if !found || better(price, top.Price) {
			top = Level{Price: price, Quantity: qty}
			found = true
		}
	}
	return top, found, nil
}

// MidPrice is the exact mean of the two level prices, converted to float64.
func MidPrice(ask, bid Level) float64 {
	mid, _ := ask.Price.Add(bid.Price).Div(decimal.NewFromInt(2)).Float64()
	return mid
}

// Top is the best level on each side of a book.
type Top struct {
	Ask    Level
	Bid    Level
	HasAsk bool
	HasBid bool
}

// Top parses both sides of d. Any malformed level key fails the whole book.
func (d OrderDepth) Top() (Top, error) {
	var (
		t   Top
		err error
	)
	if t.Ask, t.HasAsk, err = d.BestAsk(); err != nil {
		return Top{}, fmt.Errorf("sell side: %w", err)
	}
	if t.Bid, t.HasBid, err = d.BestBid(); err != nil {
		return Top{}, fmt.Errorf("buy side: %w", err)
	}
	return t, nil
}
