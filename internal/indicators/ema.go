package indicators

// EMA is a seeded exponential moving average. Value is meaningless until
// Initialized is true; the first observation seeds it without blending.
type EMA struct {
	Value       float64 `json:"ema"`
	Initialized bool    `json:"initialized"`
}

// Alpha returns smoothing/(1+period).
func Alpha(smoothing float64, period int) float64 {
	return smoothing / float64(1+period)
}

// Update folds price into the average and returns the new value.
func (e *EMA) Update(price, alpha float64) float64 {
	if !e.Initialized {
		e.Value = price
		e.Initialized = true
		return e.Value
	}
	e.Value = price*alpha + e.Value*(1-alpha)
	return e.Value
}
