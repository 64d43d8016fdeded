package state

import (
	"encoding/json"
	"fmt"

	"signal-core/internal/indicators"
)

// Kind selects the per-product state shape and the strategy that drives it.
type Kind string

const (
	KindSMA         Kind = "sma"
	KindAdaptiveSMA Kind = "adaptive_sma"
	KindEMA         Kind = "ema"
	KindCrossover   Kind = "ma_crossover"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindSMA, KindAdaptiveSMA, KindEMA, KindCrossover:
		return true
	}
	return false
}

// Product is the persisted state of one product. Which fields are live depends
// on Kind: History for the SMA kinds, EMA for KindEMA, History plus
// Support/Resistance for KindCrossover.
type Product struct {
	Kind       Kind
	History    *indicators.Window
	EMA        indicators.EMA
	Support    *float64
	Resistance *float64
}

// NewProduct returns the empty state for kind.
func NewProduct(kind Kind) Product {
	p := Product{Kind: kind}
	if kind != KindEMA {
		p.History = indicators.NewWindow(nil)
	}
	return p
}

// Clone deep-copies p so it can be mutated without touching the original.
func (p Product) Clone() Product {
	out := p
	if p.History != nil {
		out.History = indicators.NewWindow(p.History.Values())
	}
	if p.Support != nil {
		v := *p.Support
		out.Support = &v
	}
	if p.Resistance != nil {
		v := *p.Resistance
		out.Resistance = &v
	}
	return out
}

type crossoverJSON struct {
	PriceHistory []float64 `json:"price_history"`
	Support      *float64  `json:"support"`
	Resistance   *float64  `json:"resistance"`
}

func (p Product) history() []float64 {
	if p.History == nil {
		return []float64{}
	}
	return p.History.Values()
}

// MarshalJSON writes the schema of p.Kind.
func (p Product) MarshalJSON() ([]byte, error) {
	switch p.Kind {
	case KindSMA, KindAdaptiveSMA:
		return json.Marshal(p.history())
	case KindEMA:
		return json.Marshal(p.EMA)
	case KindCrossover:
		return json.Marshal(crossoverJSON{
			PriceHistory: p.history(),
			Support:      p.Support,
			Resistance:   p.Resistance,
		})
	default:
		return nil, fmt.Errorf("unknown state kind %q", p.Kind)
	}
}

func decodeProduct(kind Kind, raw json.RawMessage) (Product, error) {
	p := Product{Kind: kind}
	switch kind {
	case KindSMA, KindAdaptiveSMA:
		var prices []float64
		if err := json.Unmarshal(raw, &prices); err != nil {
			return Product{}, err
		}
		p.History = indicators.NewWindow(prices)
	case KindEMA:
		var e indicators.EMA
		if err := json.Unmarshal(raw, &e); err != nil {
			return Product{}, err
		}
		p.EMA = e
	case KindCrossover:
		var c crossoverJSON
		if err := json.Unmarshal(raw, &c); err != nil {
			return Product{}, err
		}
		p.History = indicators.NewWindow(c.PriceHistory)
		p.Support = c.Support
		p.Resistance = c.Resistance
	default:
		return Product{}, fmt.Errorf("unknown state kind %q", kind)
	}
	return p, nil
}
