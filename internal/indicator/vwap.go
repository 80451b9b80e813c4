package indicator

import "trading-agent/internal/model"

// VWAP returns the volume-weighted average price over bars, using the
// typical price (H+L+C)/3 per bar. Falls back to the last close when total
// volume is zero (index series report no volume).
func VWAP(bars []model.Bar) float64 {
	var pv, vol float64
	for _, b := range bars {
		typical := (b.High + b.Low + b.Close) / 3
		pv += typical * float64(b.Volume)
		vol += float64(b.Volume)
	}
	if vol == 0 {
		if len(bars) == 0 {
			return 0
		}
		return bars[len(bars)-1].Close
	}
	return pv / vol
}
