package indicators

import "math"

// Mean returns the arithmetic mean of values, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// SMA calculates the simple moving average over at most the last period values.
// Shorter inputs average whatever is available; empty input or period <= 0 yields 0.
func SMA(values []float64, period int) float64 {
	if period <= 0 || len(values) == 0 {
		return 0
	}
	if period > len(values) {
		period = len(values)
	}
	return Mean(values[len(values)-period:])
}

// AdaptiveWindow widens the base window as volatility rises:
// max(round(base*(1+volatility)), 1).
func AdaptiveWindow(base int, volatility float64) int {
	if volatility < 0 || math.IsNaN(volatility) {
		volatility = 0
	}
	f := math.Round(float64(base) * (1 + volatility))
	if math.IsInf(f, 1) || f >= math.MaxInt {
		return math.MaxInt
	}
	if f < 1 {
		return 1
	}
	return int(f)
}
