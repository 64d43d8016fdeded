package indicators

import "math"

// Volatility is the mean absolute first difference of prices; 0 below two points.
func Volatility(prices []float64) float64 {
	if len(prices) < 2 {
		return 0
	}
	total := 0.0
	for i := 1; i < len(prices); i++ {
		total += math.Abs(prices[i] - prices[i-1])
	}
	return total / float64(len(prices)-1)
}
