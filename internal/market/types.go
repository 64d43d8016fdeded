package market

// Order is an instruction returned to the simulator. Positive quantity buys,
// negative quantity sells.
type Order struct {
	Symbol   string  `json:"symbol"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// Side returns BUY or SELL.
func (o Order) Side() string {
	if o.Quantity < 0 {
		return "SELL"
	}
	return "BUY"
}

// OrderDepth is one product's resting book. Keys are decimal price strings;
// buy quantities are positive and sell quantities negative.
type OrderDepth struct {
	BuyOrders  map[string]int `json:"buy_orders"`
	SellOrders map[string]int `json:"sell_orders"`
}

// TradingState is the per-call snapshot handed over by the simulator.
type TradingState struct {
	Timestamp   int64                 `json:"timestamp"`
	TraderData  string                `json:"traderData"`
	OrderDepths map[string]OrderDepth `json:"order_depths"`
	Position    map[string]int        `json:"position"`
}

// PositionOf returns the signed holding for product; absent means flat.
func (s TradingState) PositionOf(product string) int {
	return s.Position[product]
}
