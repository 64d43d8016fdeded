// Package sim replays synthetic order books through the engine the way the
// external simulator does: the returned trader data is handed back verbatim,
// emitted orders are matched against the book and positions are updated.
package sim

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"signal-core/internal/engine"
	"signal-core/internal/events"
	"signal-core/internal/market"
	"signal-core/internal/risk"
)

// TimestampStep is the simulated time between two calls.
const TimestampStep = 100

// Fill is an executed part of an order.
type Fill struct {
	Symbol   string  `json:"symbol"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// Step is one simulated call, published on the bus when one is attached.
type Step struct {
	Index     int                       `json:"index"`
	Timestamp int64                     `json:"timestamp"`
	Orders    map[string][]market.Order `json:"orders"`
	Fills     []Fill                    `json:"fills"`
	Rejected  []string                  `json:"rejected,omitempty"`
	Positions map[string]int            `json:"positions"`
}

// Report summarizes a run.
type Report struct {
	Strategy       string          `json:"strategy"`
	Steps          int             `json:"steps"`
	Orders         int             `json:"orders"`
	Fills          int             `json:"fills"`
	FilledQuantity int             `json:"filled_quantity"`
	Rejected       int             `json:"rejected"`
	Positions      map[string]int  `json:"positions"`
	MaxAbsPosition map[string]int  `json:"max_abs_position"`
	Cash           decimal.Decimal `json:"cash"`
	MarkToMarket   decimal.Decimal `json:"mark_to_market"`
	FinalBlobBytes int             `json:"final_blob_bytes"`
}

// Simulator drives an Engine with a MockFeed.
type Simulator struct {
	engine *engine.Engine
	feed   *market.MockFeed
	limits risk.Limits
	bus    *events.Bus
	logger *zap.Logger
}

// Option customizes a Simulator.
type Option func(*Simulator)

// WithBus publishes every step as events.EventSimulationStep.
func WithBus(b *events.Bus) Option { return func(s *Simulator) { s.bus = b } }

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Simulator) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a simulator. limits are enforced the way the exchange does:
// if a product's orders could take the position past its limit, all of that
// product's orders for the step are rejected.
func New(eng *engine.Engine, feed *market.MockFeed, limits risk.Limits, opts ...Option) *Simulator {
	s := &Simulator{engine: eng, feed: feed, limits: limits, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("component", "simulator"))
	return s
}

// Run performs steps calls. It stops early with ctx.
func (s *Simulator) Run(ctx context.Context, steps int) (Report, error) {
	rep := Report{
		Strategy:       s.engine.StrategyName(),
		Positions:      make(map[string]int),
		MaxAbsPosition: make(map[string]int),
		Cash:           decimal.Zero,
		MarkToMarket:   decimal.Zero,
	}
	var (
		blob  string
		books map[string]market.OrderDepth
	)

	for i := 0; i < steps; i++ {
		if err := ctx.Err(); err != nil {
			return rep, fmt.Errorf("simulation interrupted after %d steps: %w", i, err)
		}

		books = s.feed.Next()
		ts := market.TradingState{
			Timestamp:   int64(i) * TimestampStep,
			TraderData:  blob,
			OrderDepths: books,
			Position:    copyPositions(rep.Positions),
		}
		res := s.engine.Run(ctx, ts)
		blob = res.TraderData

		step := Step{Index: i, Timestamp: ts.Timestamp, Orders: res.Orders}
		for _, product := range sortedKeys(res.Orders) {
			orders := res.Orders[product]
			rep.Orders += len(orders)
			if len(orders) == 0 {
				continue
			}
			if s.breaches(product, rep.Positions[product], orders) {
				rep.Rejected += len(orders)
				step.Rejected = append(step.Rejected, product)
				s.logger.Debug("orders rejected by position limit",
					zap.String("product", product), zap.Int("position", rep.Positions[product]))
				continue
			}

			book := books[product]
			for _, o := range orders {
				fills, err := match(book, o)
				if err != nil {
					return rep, err
				}
				for _, f := range fills {
					rep.Fills++
					rep.FilledQuantity += abs(f.Quantity)
					rep.Positions[product] += f.Quantity
					rep.Cash = rep.Cash.Sub(decimal.NewFromFloat(f.Price).Mul(decimal.NewFromInt(int64(f.Quantity))))
					step.Fills = append(step.Fills, f)
				}
			}
			if p := abs(rep.Positions[product]); p > rep.MaxAbsPosition[product] {
				rep.MaxAbsPosition[product] = p
			}
		}

		step.Positions = copyPositions(rep.Positions)
		if s.bus != nil {
			s.bus.Publish(events.EventSimulationStep, step)
		}
		rep.Steps++
	}

	rep.FinalBlobBytes = len(blob)
	rep.MarkToMarket = rep.Cash
	for product, pos := range rep.Positions {
		top, err := books[product].Top()
		if err != nil || !top.HasAsk || !top.HasBid {
			continue
		}
		mid := top.Ask.Price.Add(top.Bid.Price).Div(decimal.NewFromInt(2))
		rep.MarkToMarket = rep.MarkToMarket.Add(mid.Mul(decimal.NewFromInt(int64(pos))))
	}
	return rep, nil
}

// breaches reports whether executing every order in full could leave the
// position outside [-limit, limit].
func (s *Simulator) breaches(product string, position int, orders []market.Order) bool {
	var buys, sells int
	for _, o := range orders {
		if o.Quantity > 0 {
			buys += o.Quantity
		} else {
			sells -= o.Quantity
		}
	}
	limit := s.limits.Limit(product)
	return position+buys > limit || position-sells < -limit
}

type level struct {
	price decimal.Decimal
	qty   int
}

// match fills o against the opposite side of book, best price first, up to
// the resting size of every level the order's price reaches.
func match(book market.OrderDepth, o market.Order) ([]Fill, error) {
	side := book.SellOrders
	if o.Quantity < 0 {
		side = book.BuyOrders
	}

	levels := make([]level, 0, len(side))
	for key, qty := range side {
		p, err := decimal.NewFromString(key)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", market.ErrBadLevel, key)
		}
		levels = append(levels, level{price: p, qty: abs(qty)})
	}

	limit := decimal.NewFromFloat(o.Price)
	if o.Quantity > 0 {
		sort.Slice(levels, func(i, j int) bool { return levels[i].price.LessThan(levels[j].price) })
	} else {
		sort.Slice(levels, func(i, j int) bool { return levels[i].price.GreaterThan(levels[j].price) })
	}

	remaining := abs(o.Quantity)
	var fills []Fill
	for _, l := range levels {
		if remaining == 0 {
			break
		}
		if o.Quantity > 0 && l.price.GreaterThan(limit) || o.Quantity < 0 && l.price.LessThan(limit) {
			break
		}
		q := min(remaining, l.qty)
		if q == 0 {
			continue
		}
		remaining -= q
		if o.Quantity < 0 {
			q = -q
		}
		price, _ := l.price.Float64()
		fills = append(fills, Fill{Symbol: o.Symbol, Price: price, Quantity: q})
	}
	return fills, nil
}

func copyPositions(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
