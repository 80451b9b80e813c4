package indicator

// RSI computes the Relative Strength Index series using Wilder's smoothing.
// The first period positions carry the accumulating estimate; a flat series
// reads as 100 (no losses).
func RSI(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	if len(values) < 2 || period <= 0 {
		for i := range out {
			out[i] = 50
		}
		return out
	}

	var avgGain, avgLoss float64
	out[0] = 50
	for i := 1; i < len(values); i++ {
		delta := values[i] - values[i-1]
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}

		if i <= period {
			// Accumulation phase: build the initial SMA seed.
			avgGain += gain
			avgLoss += loss
			if i == period {
				avgGain /= float64(period)
				avgLoss /= float64(period)
			}
			out[i] = rsiValue(avgGain, avgLoss)
			continue
		}

		// Wilder smoothing.
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}
