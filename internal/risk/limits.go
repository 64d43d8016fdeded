package risk

// DefaultPositionLimit applies to products without an explicit limit.
const DefaultPositionLimit = 20

// Limits holds the symmetric per-product position bounds [-limit, +limit].
type Limits struct {
	Default  int            `yaml:"default_position_limit" json:"default_position_limit"`
	Products map[string]int `yaml:"position_limits" json:"position_limits"`
}

// NewLimits copies products so later changes by the caller do not leak in.
func NewLimits(def int, products map[string]int) Limits {
	l := Limits{Default: def, Products: make(map[string]int, len(products))}
	for k, v := range products {
		l.Products[k] = v
	}
	return l
}

// Limit returns the position limit for product.
func (l Limits) Limit(product string) int {
	if v, ok := l.Products[product]; ok {
		return v
	}
	return l.Default
}

// MaxBuy is the largest buy that keeps position <= limit.
func (l Limits) MaxBuy(product string, position int) int {
	return max(l.Limit(product)-position, 0)
}

// MaxSell is the largest sell that keeps position >= -limit.
func (l Limits) MaxSell(product string, position int) int {
	return max(position+l.Limit(product), 0)
}

// CanBuy reports whether position is strictly below the limit.
func (l Limits) CanBuy(product string, position int) bool {
	return position < l.Limit(product)
}

// CanSell reports whether position is strictly above the negative limit.
func (l Limits) CanSell(product string, position int) bool {
	return position > -l.Limit(product)
}
