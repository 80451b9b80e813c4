package analysis

import (
	"context"
	"hash/fnv"
	"math"
	"time"

	"trading-agent/internal/model"
)

// DemoBars is a synthetic bar provider for offline analysis and paper
// trading without a broker session. Bars are a pure function of symbol and
// timestamp, so repeated calls over the same window return identical data.
type DemoBars struct {
	// BasePrice anchors the series; 0 means derive one from the symbol.
	BasePrice float64
}

func (d *DemoBars) HistoricalBars(ctx context.Context, symbol, interval string, from, to time.Time) ([]model.Bar, error) {
	step := intervalDuration(interval)
	base := d.BasePrice
	if base == 0 {
		// Spread symbols across a plausible price range.
		base = 500 + float64(symbolSeed(symbol)%200)*100
	}

	var bars []model.Bar
	for ts := from.Truncate(step); !ts.After(to); ts = ts.Add(step) {
		bars = append(bars, demoBar(symbol, ts, base))
	}
	return bars, nil
}

// Quote returns the close of the demo bar covering the current time.
func (d *DemoBars) Quote(ctx context.Context, symbol string) (float64, error) {
	base := d.BasePrice
	if base == 0 {
		base = 500 + float64(symbolSeed(symbol)%200)*100
	}
	return demoBar(symbol, time.Now().Truncate(5*time.Minute), base).Close, nil
}

// demoBar synthesizes one bar from overlapping sine waves plus a slow drift.
// Deterministic in (symbol, ts).
func demoBar(symbol string, ts time.Time, base float64) model.Bar {
	seed := float64(symbolSeed(symbol) % 1000)
	t := float64(ts.Unix()) / 300.0

	drift := math.Sin((t+seed)/288) * base * 0.02
	wave := math.Sin((t+seed)/12)*base*0.004 + math.Sin((t+seed)/47)*base*0.008
	px := base + drift + wave

	open := base + drift + math.Sin((t-1+seed)/12)*base*0.004 + math.Sin((t-1+seed)/47)*base*0.008
	spread := base * 0.0015 * (1.2 + math.Sin((t+seed)/7))
	high := math.Max(open, px) + spread
	low := math.Min(open, px) - spread

	vol := int64(80000 + 40000*math.Sin((t+seed)/9))

	return model.Bar{TS: ts, Open: open, High: high, Low: low, Close: px, Volume: vol}
}

func symbolSeed(symbol string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(symbol))
	return h.Sum32()
}

func intervalDuration(interval string) time.Duration {
	switch interval {
	case "minute":
		return time.Minute
	case "15minute":
		return 15 * time.Minute
	case "60minute":
		return time.Hour
	case "day":
		return 24 * time.Hour
	default:
		return 5 * time.Minute
	}
}
