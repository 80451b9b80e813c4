package indicator

import "trading-agent/internal/model"

// TrueRange returns the true range series: max of high-low, |high-prevClose|
// and |low-prevClose|. The first bar uses its own high-low range.
func TrueRange(bars []model.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		tr := b.High - b.Low
		if i > 0 {
			prevClose := bars[i-1].Close
			if hc := abs(b.High - prevClose); hc > tr {
				tr = hc
			}
			if lc := abs(b.Low - prevClose); lc > tr {
				tr = lc
			}
		}
		out[i] = tr
	}
	return out
}

// ATR computes the Average True Range series with Wilder smoothing.
func ATR(bars []model.Bar, period int) []float64 {
	tr := TrueRange(bars)
	out := make([]float64, len(bars))
	if len(bars) == 0 || period <= 0 {
		return out
	}

	sum := 0.0
	for i := range tr {
		if i < period {
			sum += tr[i]
			out[i] = sum / float64(i+1)
			continue
		}
		out[i] = (out[i-1]*float64(period-1) + tr[i]) / float64(period)
	}
	return out
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
