package market

import (
	"math"
	"math/rand"
)

// MockFeed generates synthetic two-level order books for local simulation.
// Mid prices follow a seeded random walk, so a given seed replays exactly.
type MockFeed struct {
	Symbols    []string
	StartPrice float64
	Step       float64 // max absolute move of the mid per tick
	Spread     float64 // distance between best bid and best ask, >= 1
	MaxSize    int     // max resting size per level

	rng  *rand.Rand
	mids map[string]float64
}

// NewMockFeed builds a feed with defaults filled in.
func NewMockFeed(seed int64, symbols []string) *MockFeed {
	if len(symbols) == 0 {
		symbols = []string{"AMETHYSTS"}
	}
	return &MockFeed{
		Symbols:    symbols,
		StartPrice: 10000,
		Step:       3,
		Spread:     4,
		MaxSize:    30,
		rng:        rand.New(rand.NewSource(seed)),
		mids:       make(map[string]float64, len(symbols)),
	}
}

// Next advances every symbol one tick and returns the resulting books.
func (m *MockFeed) Next() map[string]OrderDepth {
	spread := math.Max(1, math.Round(m.Spread))
	size := m.MaxSize
	if size < 1 {
		size = 1
	}

	books := make(map[string]OrderDepth, len(m.Symbols))
	for _, sym := range m.Symbols {
		mid, ok := m.mids[sym]
		if !ok {
			mid = m.StartPrice
		}
		// simple random walk
		mid += (m.rng.Float64()*2 - 1) * m.Step
		m.mids[sym] = mid

		bid := math.Round(mid - spread/2)
		ask := bid + spread

		d := NewDepth().
			Bid(bid, 1+m.rng.Intn(size)).
			Bid(bid-1, 1+m.rng.Intn(size)).
			Ask(ask, -(1 + m.rng.Intn(size))).
			Ask(ask+1, -(1 + m.rng.Intn(size)))
		books[sym] = *d
	}
	return books
}
