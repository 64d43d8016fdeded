package sim

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal-core/internal/engine"
	"signal-core/internal/events"
	"signal-core/internal/market"
	"signal-core/internal/state"
	"signal-core/internal/strategy"
)

var products = []string{"AMETHYSTS", "STARFRUIT"}

func run(t *testing.T, kind state.Kind, seed int64, steps int, opts ...Option) Report {
	t.Helper()
	cfg := strategy.DefaultConfig(kind)
	eng, err := engine.New(cfg)
	require.NoError(t, err)

	rep, err := New(eng, market.NewMockFeed(seed, products), cfg.Limits, opts...).Run(context.Background(), steps)
	require.NoError(t, err)
	return rep
}

func TestCrossoverNeverBreachesLimits(t *testing.T) {
	rep := run(t, state.KindCrossover, 7, 500)

	assert.Equal(t, 500, rep.Steps)
	assert.Zero(t, rep.Rejected)
	assert.Positive(t, rep.Fills)
	for _, p := range products {
		assert.LessOrEqual(t, rep.MaxAbsPosition[p], 20, p)
	}
	// Only the trailing history_limit mids are retained.
	assert.Less(t, rep.FinalBlobBytes, 2*100*len(products)*12)
}

func TestRunIsDeterministic(t *testing.T) {
	for _, kind := range []state.Kind{state.KindSMA, state.KindAdaptiveSMA, state.KindEMA, state.KindCrossover} {
		t.Run(string(kind), func(t *testing.T) {
			a := run(t, kind, 42, 200)
			b := run(t, kind, 42, 200)
			assert.Equal(t, a.Positions, b.Positions)
			assert.True(t, a.Cash.Equal(b.Cash))
			assert.Equal(t, a.Orders, b.Orders)
		})
	}
}

func TestStepsArePublished(t *testing.T) {
	bus := events.NewBus()
	ch, unsub := bus.Subscribe(events.EventSimulationStep, 10)
	defer unsub()

	run(t, state.KindEMA, 1, 3, WithBus(bus))
	require.Len(t, ch, 3)
	first := (<-ch).(Step)
	assert.Equal(t, 0, first.Index)
	assert.Len(t, first.Orders, len(products))
}

func TestMatch(t *testing.T) {
	book := *market.NewDepth().Ask(10, -2).Ask(11, -5).Ask(13, -9).Bid(9, 4)

	fills, err := match(book, market.Order{Symbol: "P", Price: 11, Quantity: 4})
	require.NoError(t, err)
	assert.Equal(t, []Fill{{"P", 10, 2}, {"P", 11, 2}}, fills)

	fills, err = match(book, market.Order{Symbol: "P", Price: 9, Quantity: -10})
	require.NoError(t, err)
	assert.Equal(t, []Fill{{"P", 9, -4}}, fills)

	fills, err = match(book, market.Order{Symbol: "P", Price: 9.5, Quantity: 1})
	require.NoError(t, err)
	assert.Empty(t, fills)
}

func TestBreaches(t *testing.T) {
	s := &Simulator{limits: strategy.DefaultConfig(state.KindSMA).Limits}
	assert.False(t, s.breaches("P", 15, []market.Order{{Quantity: 5}}))
	assert.True(t, s.breaches("P", 15, []market.Order{{Quantity: 6}}))
	assert.True(t, s.breaches("P", -15, []market.Order{{Quantity: -6}}))
	assert.False(t, s.breaches("P", 0, []market.Order{{Quantity: 20}, {Quantity: -20}}))
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := strategy.DefaultConfig(state.KindSMA)
	eng, err := engine.New(cfg)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rep, err := New(eng, market.NewMockFeed(1, products), cfg.Limits).Run(ctx, 10)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, rep.Steps)
}
