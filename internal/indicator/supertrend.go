package indicator

import "trading-agent/internal/model"

// Supertrend computes the Supertrend line and its direction per bar. The
// line rides mult ATRs away from the hl2 midpoint and flips direction when
// price closes through it.
func Supertrend(bars []model.Bar, period int, mult float64) (line []float64, dir []model.SupertrendDirection) {
	n := len(bars)
	line = make([]float64, n)
	dir = make([]model.SupertrendDirection, n)
	if n == 0 {
		return line, dir
	}

	atr := ATR(bars, period)
	upper := make([]float64, n)
	lower := make([]float64, n)

	for i, b := range bars {
		hl2 := (b.High + b.Low) / 2
		basicUpper := hl2 + mult*atr[i]
		basicLower := hl2 - mult*atr[i]

		if i == 0 {
			upper[i] = basicUpper
			lower[i] = basicLower
			dir[i] = model.TrendBullish
			line[i] = basicLower
			continue
		}

		// Bands only tighten while price stays on one side.
		if basicUpper < upper[i-1] || bars[i-1].Close > upper[i-1] {
			upper[i] = basicUpper
		} else {
			upper[i] = upper[i-1]
		}
		if basicLower > lower[i-1] || bars[i-1].Close < lower[i-1] {
			lower[i] = basicLower
		} else {
			lower[i] = lower[i-1]
		}

		dir[i] = dir[i-1]
		if dir[i-1] == model.TrendBullish && b.Close < lower[i] {
			dir[i] = model.TrendBearish
		} else if dir[i-1] == model.TrendBearish && b.Close > upper[i] {
			dir[i] = model.TrendBullish
		}

		if dir[i] == model.TrendBullish {
			line[i] = lower[i]
		} else {
			line[i] = upper[i]
		}
	}
	return line, dir
}
