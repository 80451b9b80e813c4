package indicator

import (
	"sort"

	"trading-agent/internal/model"
)

// SupportResistance finds support and resistance levels from local pivot
// lows and highs over bars. Pivots within tolerance (as a fraction of price)
// of each other are merged into one level; the strongest levels are returned
// sorted ascending, at most maxLevels each.
func SupportResistance(bars []model.Bar, tolerance float64, maxLevels int) (supports, resistances []float64) {
	if len(bars) < 5 {
		return nil, nil
	}

	var pivotLows, pivotHighs []float64
	for i := 2; i < len(bars)-2; i++ {
		if bars[i].Low < bars[i-1].Low && bars[i].Low < bars[i-2].Low &&
			bars[i].Low < bars[i+1].Low && bars[i].Low < bars[i+2].Low {
			pivotLows = append(pivotLows, bars[i].Low)
		}
		if bars[i].High > bars[i-1].High && bars[i].High > bars[i-2].High &&
			bars[i].High > bars[i+1].High && bars[i].High > bars[i+2].High {
			pivotHighs = append(pivotHighs, bars[i].High)
		}
	}

	supports = clusterLevels(pivotLows, tolerance, maxLevels)
	resistances = clusterLevels(pivotHighs, tolerance, maxLevels)
	return supports, resistances
}

// clusterLevels merges nearby pivots into averaged levels and keeps the ones
// touched most often.
func clusterLevels(pivots []float64, tolerance float64, maxLevels int) []float64 {
	if len(pivots) == 0 {
		return nil
	}
	sorted := make([]float64, len(pivots))
	copy(sorted, pivots)
	sort.Float64s(sorted)

	type cluster struct {
		sum   float64
		count int
	}
	var clusters []cluster
	cur := cluster{sum: sorted[0], count: 1}
	for _, p := range sorted[1:] {
		mean := cur.sum / float64(cur.count)
		if mean > 0 && (p-mean)/mean <= tolerance {
			cur.sum += p
			cur.count++
			continue
		}
		clusters = append(clusters, cur)
		cur = cluster{sum: p, count: 1}
	}
	clusters = append(clusters, cur)

	sort.Slice(clusters, func(i, j int) bool { return clusters[i].count > clusters[j].count })
	if maxLevels > 0 && len(clusters) > maxLevels {
		clusters = clusters[:maxLevels]
	}

	levels := make([]float64, len(clusters))
	for i, c := range clusters {
		levels[i] = c.sum / float64(c.count)
	}
	sort.Float64s(levels)
	return levels
}

// CPR computes the Central Pivot Range and classic floor pivot levels from
// the previous session's high, low and close. Width under 0.3% of the pivot
// classifies as NARROW (trending day likely), over 1% as WIDE.
func CPR(prevHigh, prevLow, prevClose float64) *model.CPR {
	pivot := (prevHigh + prevLow + prevClose) / 3
	bc := (prevHigh + prevLow) / 2
	tc := pivot + (pivot - bc)
	if tc < bc {
		tc, bc = bc, tc
	}

	c := &model.CPR{
		TC:    tc,
		Pivot: pivot,
		BC:    bc,
		R1:    2*pivot - prevLow,
		R2:    pivot + (prevHigh - prevLow),
		R3:    prevHigh + 2*(pivot-prevLow),
		S1:    2*pivot - prevHigh,
		S2:    pivot - (prevHigh - prevLow),
		S3:    prevLow - 2*(prevHigh-pivot),
	}

	c.Type = model.CPRNormal
	if pivot > 0 {
		switch width := (tc - bc) / pivot; {
		case width < 0.003:
			c.Type = model.CPRNarrow
		case width > 0.01:
			c.Type = model.CPRWide
		}
	}
	return c
}

// Fibonacci computes retracement levels over the given range, measured down
// from the high.
func Fibonacci(high, low float64) *model.Fibonacci {
	span := high - low
	return &model.Fibonacci{
		High:   high,
		Low:    low,
		Fib236: high - 0.236*span,
		Fib382: high - 0.382*span,
		Fib500: high - 0.500*span,
		Fib618: high - 0.618*span,
		Fib786: high - 0.786*span,
	}
}
