package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal-core/internal/indicators"
	"signal-core/internal/market"
	"signal-core/internal/risk"
	"signal-core/internal/state"
)

func top(t *testing.T, d *market.OrderDepth) market.Top {
	t.Helper()
	tp, err := d.Top()
	require.NoError(t, err)
	return tp
}

func history(kind state.Kind, prices ...float64) state.Product {
	p := state.NewProduct(kind)
	p.History = indicators.NewWindow(prices)
	return p
}

func TestSMAStrategy(t *testing.T) {
	tests := []struct {
		name        string
		history     []float64
		book        *market.OrderDepth
		wantOrders  []market.Order
		wantHistory []float64
	}{
		{
			name:        "cold start emits nothing",
			book:        market.NewDepth().Ask(10, -5).Bid(8, 5),
			wantHistory: []float64{10, 8},
		},
		{
			name:        "ask below average is lifted in full",
			history:     []float64{10, 10, 10, 10},
			book:        market.NewDepth().Ask(8, -3).Bid(7, 2),
			wantOrders:  []market.Order{{Symbol: "P", Price: 8, Quantity: 3}},
			wantHistory: []float64{10, 10, 10, 8, 7},
		},
		{
			name:        "bid above average is hit in full",
			history:     []float64{10, 10, 10, 10, 10},
			book:        market.NewDepth().Bid(12, 4),
			wantOrders:  []market.Order{{Symbol: "P", Price: 12, Quantity: -4}},
			wantHistory: []float64{10, 10, 10, 10, 12},
		},
		{
			name:        "bid equal to last entry is not appended twice",
			history:     []float64{10},
			book:        market.NewDepth().Ask(9, -1).Bid(9, 1),
			wantOrders:  []market.Order{{Symbol: "P", Price: 9, Quantity: 1}},
			wantHistory: []float64{10, 9},
		},
		{
			name:        "empty book leaves history alone",
			history:     []float64{1, 2},
			book:        market.NewDepth(),
			wantHistory: []float64{1, 2},
		},
	}

	s := NewSMAStrategy(5)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := history(state.KindSMA, tt.history...)
			sig := s.OnBook("P", top(t, tt.book), 0, &st)
			assert.Equal(t, tt.wantOrders, sig.Orders)
			assert.Equal(t, tt.wantHistory, st.History.Values())
		})
	}
}

func TestAdaptiveSMAStrategy(t *testing.T) {
	s := NewAdaptiveSMAStrategy(5)
	assert.Equal(t, state.KindAdaptiveSMA, s.Kind())

	t.Run("cold start", func(t *testing.T) {
		st := state.NewProduct(state.KindAdaptiveSMA)
		sig := s.OnBook("P", top(t, market.NewDepth().Ask(10, -5).Bid(8, 5)), 0, &st)
		assert.Empty(t, sig.Orders)
		assert.Equal(t, []float64{10, 8}, st.History.Values())
		assert.Equal(t, 9.0, sig.Fair)
	})

	t.Run("choppy history keeps a wide window", func(t *testing.T) {
		var prices []float64
		for i := 0; i < 20; i++ {
			prices = append(prices, 10+2*float64(i%2))
		}
		st := history(state.KindAdaptiveSMA, prices...)
		s.OnBook("P", top(t, market.NewDepth().Ask(11, -1)), 0, &st)
		// volatility (19*2+1)/20 = 1.95 -> round(5*2.95) = 15
		assert.Equal(t, 15, st.History.Len())
	})

	t.Run("calm history narrows the window", func(t *testing.T) {
		st := history(state.KindAdaptiveSMA, 10, 10, 10, 10, 10, 10, 10, 10)
		s.OnBook("P", top(t, market.NewDepth().Ask(10, -1)), 0, &st)
		assert.Equal(t, 5, st.History.Len())
	})

	t.Run("buys below the adaptive average", func(t *testing.T) {
		st := history(state.KindAdaptiveSMA, 10, 10, 10, 10)
		sig := s.OnBook("P", top(t, market.NewDepth().Ask(8, -2)), 0, &st)
		require.Len(t, sig.Orders, 1)
		assert.Equal(t, market.Order{Symbol: "P", Price: 8, Quantity: 2}, sig.Orders[0])
		assert.InDelta(t, 9.6, sig.Fair, 1e-9)
	})
}

func TestEMAStrategyTwoCalls(t *testing.T) {
	s := NewEMAStrategy(5, 2)
	st := state.NewProduct(state.KindEMA)

	sig := s.OnBook("P", top(t, market.NewDepth().Ask(100, -7)), 0, &st)
	assert.Empty(t, sig.Orders)
	assert.Equal(t, 100.0, st.EMA.Value)
	assert.True(t, st.EMA.Initialized)

	sig = s.OnBook("P", top(t, market.NewDepth().Ask(90, -7)), 0, &st)
	// 90*(1/3) + 100*(2/3)
	assert.InDelta(t, 96.6667, st.EMA.Value, 1e-4)
	assert.Equal(t, []market.Order{{Symbol: "P", Price: 90, Quantity: 7}}, sig.Orders)
}

func TestEMAStrategyAskThenBid(t *testing.T) {
	s := NewEMAStrategy(5, 2)

	st := state.NewProduct(state.KindEMA)
	sig := s.OnBook("P", top(t, market.NewDepth().Ask(102, -1).Bid(98, 1)), 0, &st)
	assert.Empty(t, sig.Orders)
	assert.InDelta(t, 98.0/3+102*2.0/3, st.EMA.Value, 1e-9)

	st = state.Product{Kind: state.KindEMA, EMA: indicators.EMA{Value: 100, Initialized: true}}
	sig = s.OnBook("P", top(t, market.NewDepth().Bid(110, 3)), 0, &st)
	assert.Equal(t, []market.Order{{Symbol: "P", Price: 110, Quantity: -3}}, sig.Orders)
}

func TestClassifyTrend(t *testing.T) {
	assert.Equal(t, TrendSideways, ClassifyTrend(nil, 2, 5))
	assert.Equal(t, TrendSideways, ClassifyTrend([]float64{10}, 2, 5))
	assert.Equal(t, TrendUp, ClassifyTrend([]float64{10, 10, 10, 10, 11}, 2, 5))
	assert.Equal(t, TrendDown, ClassifyTrend([]float64{10, 10, 10, 10, 8}, 2, 5))
	assert.Equal(t, TrendSideways, ClassifyTrend([]float64{10, 10, 10}, 2, 5))
}

func TestMACrossStrategy(t *testing.T) {
	limits := risk.NewLimits(20, nil)
	s := NewMACrossStrategy(2, 5, 100, limits)

	upBook := market.NewDepth().Ask(12, -5).Bid(10, 5)  // mid 11
	downBook := market.NewDepth().Ask(9, -6).Bid(7, 6)  // mid 8
	flatBook := market.NewDepth().Ask(11, -6).Bid(9, 6) // mid 10

	tests := []struct {
		name     string
		book     *market.OrderDepth
		position int
		want     []market.Order
		trend    Trend
	}{
		{name: "upward buys the ask", book: upBook, want: []market.Order{{Symbol: "P", Price: 12, Quantity: 5}}, trend: TrendUp},
		{name: "upward capped by headroom", book: upBook, position: 18, want: []market.Order{{Symbol: "P", Price: 12, Quantity: 2}}, trend: TrendUp},
		{name: "upward at limit", book: upBook, position: 20, trend: TrendUp},
		{name: "downward sells the bid", book: downBook, want: []market.Order{{Symbol: "P", Price: 7, Quantity: -6}}, trend: TrendDown},
		{name: "downward capped by headroom", book: downBook, position: -17, want: []market.Order{{Symbol: "P", Price: 7, Quantity: -3}}, trend: TrendDown},
		{name: "downward at limit", book: downBook, position: -20, trend: TrendDown},
		{name: "sideways holds", book: flatBook, trend: TrendSideways},
		{name: "empty ask level", book: market.NewDepth().Ask(12, 0).Bid(10, 5), trend: TrendUp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := history(state.KindCrossover, 10, 10, 10, 10)
			sig := s.OnBook("P", top(t, tt.book), tt.position, &st)
			assert.Equal(t, tt.trend, sig.Trend)
			assert.Equal(t, tt.want, sig.Orders)
			assert.Equal(t, 5, st.History.Len())
			require.NotNil(t, st.Support)
			require.NotNil(t, st.Resistance)
		})
	}
}

func TestMACrossNeedsBothSides(t *testing.T) {
	s := NewMACrossStrategy(2, 5, 100, risk.NewLimits(20, nil))
	for _, book := range []*market.OrderDepth{
		market.NewDepth().Ask(12, -5),
		market.NewDepth().Bid(10, 5),
		market.NewDepth(),
	} {
		st := history(state.KindCrossover, 10, 10, 10, 10)
		sig := s.OnBook("P", top(t, book), 0, &st)
		assert.Empty(t, sig.Orders)
		assert.Equal(t, []float64{10, 10, 10, 10}, st.History.Values())
		assert.Nil(t, st.Support)
	}
}

func TestMACrossSupportResistanceAndRetention(t *testing.T) {
	s := NewMACrossStrategy(2, 3, 4, risk.NewLimits(20, nil))
	st := history(state.KindCrossover, 1, 5, 2, 3)
	s.OnBook("P", top(t, market.NewDepth().Ask(5, -1).Bid(3, 1)), 0, &st)

	assert.Equal(t, []float64{5, 2, 3, 4}, st.History.Values())
	assert.Equal(t, 2.0, *st.Support)
	assert.Equal(t, 4.0, *st.Resistance)
}

func TestNewSelectsByKind(t *testing.T) {
	for kind, name := range map[state.Kind]string{
		state.KindSMA:         "SMA_5",
		state.KindAdaptiveSMA: "AdaptiveSMA_5",
		state.KindEMA:         "EMA_5_2",
		state.KindCrossover:   "MA_Cross_2_5",
	} {
		s, err := New(DefaultConfig(kind))
		require.NoError(t, err)
		assert.Equal(t, kind, s.Kind())
		assert.Equal(t, name, s.Name())
	}

	_, err := New(DefaultConfig("rsi"))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
