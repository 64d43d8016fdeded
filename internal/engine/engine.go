// Package engine runs one simulator timestep: decode the trader data, let the
// configured strategy act on every product's book, and re-encode the state.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"signal-core/internal/market"
	"signal-core/internal/state"
	"signal-core/internal/strategy"
)

// ErrProductPanic wraps a panic recovered while processing one product.
var ErrProductPanic = errors.New("product processing panicked")

// Engine is safe for concurrent use; it keeps no state between calls.
type Engine struct {
	cfg       strategy.Config
	strategy  strategy.Strategy
	codec     *state.Codec
	logger    *zap.Logger
	observers []Observer
}

// Option customizes an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithObserver registers observers called after every Run.
func WithObserver(obs ...Observer) Option {
	return func(e *Engine) { e.observers = append(e.observers, obs...) }
}

// WithStrategy overrides the strategy built from the config. Its Kind must
// match cfg.Kind.
func WithStrategy(s strategy.Strategy) Option {
	return func(e *Engine) { e.strategy = s }
}

// New builds an engine for cfg.
func New(cfg strategy.Config, opts ...Option) (*Engine, error) {
	e := &Engine{cfg: cfg, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}

	if e.strategy == nil {
		s, err := strategy.New(cfg)
		if err != nil {
			return nil, err
		}
		e.strategy = s
	} else if e.strategy.Kind() != cfg.Kind {
		return nil, fmt.Errorf("%w: strategy kind %s does not match config kind %s",
			strategy.ErrInvalidConfig, e.strategy.Kind(), cfg.Kind)
	}

	e.logger = e.logger.With(zap.String("component", "engine"), zap.String("strategy", e.strategy.Name()))
	e.codec = state.NewCodec(cfg.Kind, e.logger)
	return e, nil
}

// Config returns the configuration the engine was built with.
func (e *Engine) Config() strategy.Config { return e.cfg }

// StrategyName returns the active strategy name.
func (e *Engine) StrategyName() string { return e.strategy.Name() }

// Run decides one timestep.
func (e *Engine) Run(ctx context.Context, ts market.TradingState) Result {
	return e.Decide(ctx, ts).Result
}

// Decide is Run with per-product detail. Products are processed in name
// order; a cancelled context stops processing and the remaining products
// keep their prior state and get no orders.
func (e *Engine) Decide(ctx context.Context, ts market.TradingState) Decision {
	start := time.Now()
	prior := e.codec.Decode(ts.TraderData)
	next := prior.Clone()

	products := make([]string, 0, len(ts.OrderDepths))
	for p := range ts.OrderDepths {
		products = append(products, p)
	}
	sort.Strings(products)

	d := Decision{
		ID:        uuid.NewString(),
		Timestamp: ts.Timestamp,
		Strategy:  e.strategy.Name(),
		Kind:      e.cfg.Kind,
		Products:  make([]ProductResult, 0, len(products)),
		Result: Result{
			Orders:      make(map[string][]market.Order, len(products)),
			Conversions: e.cfg.ConversionsValue(),
		},
	}

	for _, product := range products {
		var pr ProductResult
		if err := ctx.Err(); err != nil {
			pr = ProductResult{Product: product, Position: ts.PositionOf(product), Orders: []market.Order{}, Err: err}
		} else {
			st, ok := prior[product]
			if !ok {
				st = e.codec.New()
			}
			pr = e.runProduct(product, ts.OrderDepths[product], ts.PositionOf(product), st)
		}

		if pr.Err != nil {
			e.logger.Warn("product skipped", zap.String("product", product), zap.Error(pr.Err))
		} else {
			next[product] = pr.State
			e.logger.Debug("product decided",
				zap.String("product", product),
				zap.Float64("fair", pr.Signal.Fair),
				zap.String("trend", string(pr.Signal.Trend)),
				zap.Int("orders", len(pr.Orders)))
		}
		d.Result.Orders[product] = pr.Orders
		d.Products = append(d.Products, pr)
	}

	blob, err := e.codec.Encode(next)
	if err != nil {
		e.logger.Error("trader data not serializable, resetting", zap.String("decision", d.ID), zap.Error(err))
		blob = state.EmptyBlob
		d.EncodeErr = err
	}
	d.Result.TraderData = blob
	d.Latency = time.Since(start)

	for _, obs := range e.observers {
		obs.ObserveDecision(d)
	}
	return d
}

// runProduct works on a private copy of st so a failure leaves nothing half
// applied.
func (e *Engine) runProduct(product string, depth market.OrderDepth, position int, st state.Product) (pr ProductResult) {
	pr = ProductResult{Product: product, Position: position, Orders: []market.Order{}}
	defer func() {
		if r := recover(); r != nil {
			pr = ProductResult{
				Product:  product,
				Position: position,
				Orders:   []market.Order{},
				Err:      fmt.Errorf("%w: %s: %v", ErrProductPanic, product, r),
			}
		}
	}()

	top, err := depth.Top()
	if err != nil {
		pr.Err = fmt.Errorf("%s: %w", product, err)
		return pr
	}

	work := st.Clone()
	sig := e.strategy.OnBook(product, top, position, &work)
	pr.Signal = sig
	pr.State = work
	if len(sig.Orders) > 0 {
		pr.Orders = sig.Orders
	}
	return pr
}
