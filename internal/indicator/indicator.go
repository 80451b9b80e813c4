// Package indicator implements the technical indicators the analysis engine
// feeds on. All functions are pure: they take a bar or value series and
// return computed series (or final values), oldest first, with no shared
// state. Series outputs are aligned with their inputs; positions that cannot
// be computed yet hold the best partial estimate rather than NaN so callers
// never have to special-case warmup gaps.
package indicator

import "trading-agent/internal/model"

// Last returns the final element of a series (0 for an empty series).
func Last(series []float64) float64 {
	if len(series) == 0 {
		return 0
	}
	return series[len(series)-1]
}

// Mean returns the arithmetic mean of values (0 for an empty slice).
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

// Closes extracts the close series from bars.
func Closes(bars []model.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// Volumes extracts the volume series from bars.
func Volumes(bars []model.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = float64(b.Volume)
	}
	return out
}
