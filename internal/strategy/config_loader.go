package strategy

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"signal-core/internal/risk"
	"signal-core/internal/state"
)

// ErrInvalidConfig is returned by Validate and LoadConfig.
var ErrInvalidConfig = errors.New("invalid strategy config")

// Config is the immutable parameter set an Engine is built with.
//
// YAML example:
//
//	kind: ma_crossover
//	window: 5
//	short_window: 2
//	history_limit: 100
//	default_position_limit: 20
//	position_limits:
//	  AMETHYSTS: 20
//	  STARFRUIT: 20
type Config struct {
	Kind         state.Kind `yaml:"kind" json:"kind"`
	Window       int        `yaml:"window" json:"window"`               // SMA/EMA period, crossover long window
	Smoothing    float64    `yaml:"smoothing" json:"smoothing"`         // EMA smoothing factor
	ShortWindow  int        `yaml:"short_window" json:"short_window"`   // crossover short window
	HistoryLimit int        `yaml:"history_limit" json:"history_limit"` // crossover retention
	Conversions  *int       `yaml:"conversions" json:"conversions"`

	risk.Limits `yaml:",inline"`
}

// DefaultConfig returns the stock parameters for kind.
func DefaultConfig(kind state.Kind) Config {
	return Config{
		Kind:         kind,
		Window:       5,
		Smoothing:    2,
		ShortWindow:  2,
		HistoryLimit: 100,
		Limits: risk.NewLimits(risk.DefaultPositionLimit, map[string]int{
			"AMETHYSTS": 20,
			"STARFRUIT": 20,
		}),
	}
}

// Validate checks the parameters the strategies rely on.
func (c Config) Validate() error {
	if !c.Kind.Valid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidConfig, c.Kind)
	}
	if c.Window < 1 {
		return fmt.Errorf("%w: window must be >= 1, got %d", ErrInvalidConfig, c.Window)
	}
	if c.Kind == state.KindEMA && c.Smoothing <= 0 {
		return fmt.Errorf("%w: smoothing must be > 0, got %v", ErrInvalidConfig, c.Smoothing)
	}
	if c.Kind == state.KindCrossover {
		if c.ShortWindow < 1 {
			return fmt.Errorf("%w: short_window must be >= 1, got %d", ErrInvalidConfig, c.ShortWindow)
		}
		if c.HistoryLimit < c.Window {
			return fmt.Errorf("%w: history_limit %d is below window %d", ErrInvalidConfig, c.HistoryLimit, c.Window)
		}
	}
	if c.Default < 0 {
		return fmt.Errorf("%w: negative default position limit", ErrInvalidConfig)
	}
	for product, limit := range c.Products {
		if limit < 0 {
			return fmt.Errorf("%w: negative position limit for %s", ErrInvalidConfig, product)
		}
	}
	return nil
}

// ConversionsValue is the pass-through conversions value returned each call:
// the configured override, else 1, except the crossover kind which returns none.
func (c Config) ConversionsValue() *int {
	if c.Conversions != nil {
		v := *c.Conversions
		return &v
	}
	if c.Kind == state.KindCrossover {
		return nil
	}
	one := 1
	return &one
}

// LoadConfig reads a strategy file. Missing keys keep the defaults of the
// file's kind (or of kind when the file does not name one).
func LoadConfig(path string, kind state.Kind) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return ParseConfig(data, kind)
}

// ParseConfig is LoadConfig for in-memory YAML.
func ParseConfig(data []byte, kind state.Kind) (Config, error) {
	var probe struct {
		Kind state.Kind `yaml:"kind"`
	}
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if probe.Kind != "" {
		kind = probe.Kind
	}

	cfg := DefaultConfig(kind)
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
