package engine

import (
	"context"
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal-core/internal/market"
	"signal-core/internal/state"
	"signal-core/internal/strategy"
)

func newEngine(t *testing.T, kind state.Kind, opts ...Option) *Engine {
	t.Helper()
	e, err := New(strategy.DefaultConfig(kind), opts...)
	require.NoError(t, err)
	return e
}

func book(products map[string]*market.OrderDepth) map[string]market.OrderDepth {
	out := make(map[string]market.OrderDepth, len(products))
	for k, v := range products {
		out[k] = *v
	}
	return out
}

func TestRunSMAColdStart(t *testing.T) {
	e := newEngine(t, state.KindSMA)

	res := e.Run(context.Background(), market.TradingState{
		OrderDepths: book(map[string]*market.OrderDepth{
			"AMETHYSTS": market.NewDepth().Ask(10, -5).Bid(8, 5),
		}),
	})

	assert.Equal(t, []market.Order{}, res.Orders["AMETHYSTS"])
	assert.Equal(t, `{"AMETHYSTS":[10,8]}`, res.TraderData)
	require.NotNil(t, res.Conversions)
	assert.Equal(t, 1, *res.Conversions)
}

func TestRunEMAAcrossCalls(t *testing.T) {
	e := newEngine(t, state.KindEMA)
	ctx := context.Background()

	first := e.Run(ctx, market.TradingState{
		OrderDepths: book(map[string]*market.OrderDepth{"P": market.NewDepth().Ask(100, -4)}),
	})
	assert.Empty(t, first.Orders["P"])
	assert.JSONEq(t, `{"P":{"ema":100,"initialized":true}}`, first.TraderData)

	second := e.Run(ctx, market.TradingState{
		TraderData:  first.TraderData,
		OrderDepths: book(map[string]*market.OrderDepth{"P": market.NewDepth().Ask(90, -4)}),
	})
	assert.Equal(t, []market.Order{{Symbol: "P", Price: 90, Quantity: 4}}, second.Orders["P"])
}

func TestRunCrossoverRespectsLimits(t *testing.T) {
	e := newEngine(t, state.KindCrossover)
	blob := `{"AMETHYSTS":{"price_history":[10,10,10,10],"support":null,"resistance":null}}`

	tests := []struct {
		name     string
		position int
		depth    *market.OrderDepth
		want     []market.Order
	}{
		{name: "flat buys full level", depth: market.NewDepth().Ask(12, -5).Bid(10, 5),
			want: []market.Order{{Symbol: "AMETHYSTS", Price: 12, Quantity: 5}}},
		{name: "near limit buys headroom", position: 19, depth: market.NewDepth().Ask(12, -5).Bid(10, 5),
			want: []market.Order{{Symbol: "AMETHYSTS", Price: 12, Quantity: 1}}},
		{name: "empty ask side", depth: market.NewDepth().Bid(10, 5), want: []market.Order{}},
		{name: "zero resting quantity", depth: market.NewDepth().Ask(12, 0).Bid(10, 5), want: []market.Order{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := e.Run(context.Background(), market.TradingState{
				TraderData:  blob,
				OrderDepths: book(map[string]*market.OrderDepth{"AMETHYSTS": tt.depth}),
				Position:    map[string]int{"AMETHYSTS": tt.position},
			})
			assert.Equal(t, tt.want, res.Orders["AMETHYSTS"])
			assert.Nil(t, res.Conversions)
		})
	}
}

func TestRunMalformedTraderData(t *testing.T) {
	tests := []struct {
		kind state.Kind
		want string
	}{
		{state.KindSMA, `{"P":[]}`},
		{state.KindAdaptiveSMA, `{"P":[]}`},
		{state.KindEMA, `{"P":{"ema":0,"initialized":false}}`},
		{state.KindCrossover, `{"P":{"price_history":[],"support":null,"resistance":null}}`},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			e := newEngine(t, tt.kind)
			var res Result
			require.NotPanics(t, func() {
				res = e.Run(context.Background(), market.TradingState{
					TraderData:  "definitely not json",
					OrderDepths: map[string]market.OrderDepth{"P": {}},
				})
			})
			assert.JSONEq(t, tt.want, res.TraderData)
			assert.Equal(t, []market.Order{}, res.Orders["P"])
		})
	}
}

func TestRunKeepsUntouchedProducts(t *testing.T) {
	e := newEngine(t, state.KindSMA)
	blob := `{"ORCHIDS":[1.5,2,3],"P":[4]}`

	res := e.Run(context.Background(), market.TradingState{
		TraderData:  blob,
		OrderDepths: map[string]market.OrderDepth{"P": {}},
	})
	assert.JSONEq(t, blob, res.TraderData)
	assert.NotContains(t, res.Orders, "ORCHIDS")
}

func TestRunIsolatesBadBooks(t *testing.T) {
	e := newEngine(t, state.KindSMA)
	bad := market.OrderDepth{SellOrders: map[string]int{"n/a": -3}}

	d := e.Decide(context.Background(), market.TradingState{
		TraderData: `{"BAD":[5,6]}`,
		OrderDepths: map[string]market.OrderDepth{
			"BAD":  bad,
			"GOOD": *market.NewDepth().Ask(10, -5).Bid(8, 5),
		},
	})

	require.Len(t, d.Products, 2)
	assert.Equal(t, "BAD", d.Products[0].Product)
	assert.ErrorIs(t, d.Products[0].Err, market.ErrBadLevel)
	assert.NoError(t, d.Products[1].Err)
	assert.Equal(t, []market.Order{}, d.Result.Orders["BAD"])
	assert.JSONEq(t, `{"BAD":[5,6],"GOOD":[10,8]}`, d.Result.TraderData)
	assert.Len(t, d.Failures(), 1)
}

type panicky struct {
	strategy.Strategy
	product string
}

func (p panicky) OnBook(product string, top market.Top, position int, st *state.Product) strategy.Signal {
	st.History.Append(-1, 1)
	if product == p.product {
		panic("boom")
	}
	return p.Strategy.OnBook(product, top, position, st)
}

func TestRunRecoversPanics(t *testing.T) {
	e := newEngine(t, state.KindSMA, WithStrategy(panicky{Strategy: strategy.NewSMAStrategy(5), product: "BOOM"}))

	d := e.Decide(context.Background(), market.TradingState{
		TraderData: `{"BOOM":[1,2]}`,
		OrderDepths: map[string]market.OrderDepth{
			"BOOM": *market.NewDepth().Ask(3, -1),
			"OK":   *market.NewDepth().Bid(12, 2),
		},
	})

	assert.ErrorIs(t, d.Products[0].Err, ErrProductPanic)
	assert.Equal(t, []market.Order{}, d.Result.Orders["BOOM"])
	assert.Equal(t, []market.Order{{Symbol: "OK", Price: 12, Quantity: -2}}, d.Result.Orders["OK"])

	var m map[string][]float64
	require.NoError(t, json.Unmarshal([]byte(d.Result.TraderData), &m))
	assert.Equal(t, []float64{1, 2}, m["BOOM"], "panicking product keeps its prior state")
}

// unencodable leaves a NaN EMA behind, which JSON cannot represent.
type unencodable struct {
	strategy.Strategy
}

func (u unencodable) OnBook(product string, top market.Top, position int, st *state.Product) strategy.Signal {
	sig := u.Strategy.OnBook(product, top, position, st)
	st.EMA.Value = math.NaN()
	return sig
}

func TestRunEncodeFailureResetsBlobButKeepsOrders(t *testing.T) {
	var seen []Decision
	e := newEngine(t, state.KindEMA,
		WithStrategy(unencodable{Strategy: strategy.NewEMAStrategy(5, 2)}),
		WithObserver(ObserverFunc(func(d Decision) { seen = append(seen, d) })),
	)

	d := e.Decide(context.Background(), market.TradingState{
		TraderData: `{"P":{"ema":100,"initialized":true}}`,
		OrderDepths: map[string]market.OrderDepth{
			"P": *market.NewDepth().Ask(90, -4),
		},
	})

	assert.ErrorIs(t, d.EncodeErr, state.ErrEncode)
	assert.Equal(t, state.EmptyBlob, d.Result.TraderData)
	assert.Equal(t, []market.Order{{Symbol: "P", Price: 90, Quantity: 4}}, d.Result.Orders["P"])
	require.Len(t, seen, 1)
	assert.Error(t, seen[0].EncodeErr)
}

func TestRunCancelledContext(t *testing.T) {
	e := newEngine(t, state.KindSMA)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := e.Decide(ctx, market.TradingState{
		TraderData:  `{"P":[7]}`,
		OrderDepths: map[string]market.OrderDepth{"P": *market.NewDepth().Ask(1, -1)},
	})
	assert.ErrorIs(t, d.Products[0].Err, context.Canceled)
	assert.Equal(t, `{"P":[7]}`, d.Result.TraderData)
}

func TestObserversSeeEveryDecision(t *testing.T) {
	var seen []Decision
	e := newEngine(t, state.KindSMA, WithObserver(ObserverFunc(func(d Decision) { seen = append(seen, d) })))

	e.Run(context.Background(), market.TradingState{
		Timestamp:   100,
		OrderDepths: map[string]market.OrderDepth{"P": *market.NewDepth().Bid(12, 2)},
	})
	e.Run(context.Background(), market.TradingState{Timestamp: 200})

	require.Len(t, seen, 2)
	assert.Equal(t, int64(100), seen[0].Timestamp)
	assert.Equal(t, "SMA_5", seen[0].Strategy)
	assert.NotEmpty(t, seen[0].ID)
	assert.NotEqual(t, seen[0].ID, seen[1].ID)
	assert.Equal(t, 0, seen[0].OrderCount(), "cold start never trades")
	assert.Equal(t, `{"P":[12]}`, seen[0].Result.TraderData)
	assert.Equal(t, state.EmptyBlob, seen[1].Result.TraderData)
}

func TestNewRejectsMismatchedStrategy(t *testing.T) {
	_, err := New(strategy.DefaultConfig(state.KindEMA), WithStrategy(strategy.NewSMAStrategy(5)))
	assert.ErrorIs(t, err, strategy.ErrInvalidConfig)

	_, err = New(strategy.DefaultConfig("bogus"))
	assert.ErrorIs(t, err, strategy.ErrInvalidConfig)
}
