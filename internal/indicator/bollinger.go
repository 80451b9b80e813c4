package indicator

import "math"

// Bollinger computes Bollinger Bands: an SMA middle band with upper and
// lower bands k standard deviations away. Early positions use the available
// prefix as their window.
func Bollinger(values []float64, period int, k float64) (upper, middle, lower []float64) {
	middle = SMA(values, period)
	upper = make([]float64, len(values))
	lower = make([]float64, len(values))

	for i := range values {
		start := i - period + 1
		if start < 0 {
			start = 0
		}
		window := values[start : i+1]

		variance := 0.0
		for _, v := range window {
			d := v - middle[i]
			variance += d * d
		}
		sd := math.Sqrt(variance / float64(len(window)))

		upper[i] = middle[i] + k*sd
		lower[i] = middle[i] - k*sd
	}
	return upper, middle, lower
}
