package strategy

import (
	"fmt"

	"signal-core/internal/state"
)

// New builds the strategy selected by cfg.Kind.
func New(cfg Config) (Strategy, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Kind {
	case state.KindSMA:
		return NewSMAStrategy(cfg.Window), nil
	case state.KindAdaptiveSMA:
		return NewAdaptiveSMAStrategy(cfg.Window), nil
	case state.KindEMA:
		return NewEMAStrategy(cfg.Window, cfg.Smoothing), nil
	case state.KindCrossover:
		return NewMACrossStrategy(cfg.ShortWindow, cfg.Window, cfg.HistoryLimit, cfg.Limits), nil
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidConfig, cfg.Kind)
	}
}
