// Package analysis turns raw bar history into indicator snapshots and scores
// them into trade signals. Both stages are deterministic: the same bar
// sequence always produces the same Snapshot, and the same Snapshot always
// produces the same Signal.
package analysis

import (
	"context"
	"time"

	"trading-agent/internal/indicator"
	"trading-agent/internal/model"
)

// MinBars is the shortest bar window the indicator set can digest: the MACD
// slow EMA (26) plus its signal period (9).
const MinBars = 35

// Indicator periods. Kept as named constants rather than configuration; the
// scoring weights are the tunable surface, not the indicator math.
const (
	rsiPeriod        = 14
	macdFast         = 12
	macdSlow         = 26
	macdSignal       = 9
	emaFastPeriod    = 9
	emaSlowPeriod    = 21
	atrPeriod        = 14
	supertrendPeriod = 10
	supertrendMult   = 3.0
	bollingerPeriod  = 20
	bollingerK       = 2.0
	avgVolumePeriod  = 20
	levelTolerance   = 0.005
	maxLevels        = 3
)

// Builder fetches bar history for a symbol and computes snapshots from it.
type Builder struct {
	bars         model.BarProvider
	interval     string
	lookbackDays int
}

// NewBuilder returns a snapshot builder reading interval bars over a
// lookback window of calendar days.
func NewBuilder(bars model.BarProvider, interval string, lookbackDays int) *Builder {
	if lookbackDays <= 0 {
		lookbackDays = 5
	}
	return &Builder{bars: bars, interval: interval, lookbackDays: lookbackDays}
}

// Build fetches the bar window ending at asOf and computes a Snapshot.
// Returns *InsufficientDataError when the provider yields fewer than MinBars.
func (b *Builder) Build(ctx context.Context, symbol string, asOf time.Time) (*model.Snapshot, error) {
	from := asOf.AddDate(0, 0, -b.lookbackDays)
	bars, err := b.bars.HistoricalBars(ctx, symbol, b.interval, from, asOf)
	if err != nil {
		return nil, err
	}
	return FromBars(symbol, asOf, bars)
}

// FromBars computes a Snapshot from an already-fetched bar sequence. Pure;
// exposed so offline tools and tests can bypass the provider.
func FromBars(symbol string, asOf time.Time, bars []model.Bar) (*model.Snapshot, error) {
	if len(bars) < MinBars {
		return nil, &InsufficientDataError{Symbol: symbol, Have: len(bars), Need: MinBars}
	}

	closes := indicator.Closes(bars)
	last := bars[len(bars)-1]

	macdLine, macdSig, macdHist := indicator.MACD(closes, macdFast, macdSlow, macdSignal)
	stLine, stDir := indicator.Supertrend(bars, supertrendPeriod, supertrendMult)
	bbUpper, bbMiddle, bbLower := indicator.Bollinger(closes, bollingerPeriod, bollingerK)
	supports, resistances := indicator.SupportResistance(bars, levelTolerance, maxLevels)

	volumes := indicator.Volumes(bars)
	avgStart := len(volumes) - avgVolumePeriod
	if avgStart < 0 {
		avgStart = 0
	}

	snap := &model.Snapshot{
		Symbol: symbol,
		AsOf:   asOf,
		Price:  last.Close,

		RSI:        indicator.Last(indicator.RSI(closes, rsiPeriod)),
		MACD:       indicator.Last(macdLine),
		MACDSignal: indicator.Last(macdSig),
		MACDHist:   indicator.Last(macdHist),
		EMA9:       indicator.Last(indicator.EMA(closes, emaFastPeriod)),
		EMA21:      indicator.Last(indicator.EMA(closes, emaSlowPeriod)),
		ATR:        indicator.Last(indicator.ATR(bars, atrPeriod)),

		Supertrend:    indicator.Last(stLine),
		SupertrendDir: stDir[len(stDir)-1],

		BollingerUpper:  indicator.Last(bbUpper),
		BollingerMiddle: indicator.Last(bbMiddle),
		BollingerLower:  indicator.Last(bbLower),

		Volume:    last.Volume,
		AvgVolume: indicator.Mean(volumes[avgStart:]),

		SupportLevels:    supports,
		ResistanceLevels: resistances,

		Patterns: indicator.Patterns(bars),
	}

	// Session-scoped derivations: VWAP over the current session, CPR from
	// the previous one, Fibonacci over the current session's range.
	sessions := splitSessions(bars)
	today := sessions[len(sessions)-1]
	snap.VWAP = indicator.VWAP(today)

	var hi, lo float64 = today[0].High, today[0].Low
	for _, bar := range today {
		if bar.High > hi {
			hi = bar.High
		}
		if bar.Low < lo {
			lo = bar.Low
		}
	}
	snap.Fibonacci = indicator.Fibonacci(hi, lo)

	if len(sessions) >= 2 {
		prev := sessions[len(sessions)-2]
		ph, pl := prev[0].High, prev[0].Low
		for _, bar := range prev {
			if bar.High > ph {
				ph = bar.High
			}
			if bar.Low < pl {
				pl = bar.Low
			}
		}
		snap.CPR = indicator.CPR(ph, pl, prev[len(prev)-1].Close)
	}

	return snap, nil
}

// splitSessions groups bars by calendar date (bar-local time). Always
// returns at least one group for a non-empty input.
func splitSessions(bars []model.Bar) [][]model.Bar {
	var out [][]model.Bar
	var cur []model.Bar
	for i, b := range bars {
		if i > 0 {
			py, pm, pd := bars[i-1].TS.Date()
			y, m, d := b.TS.Date()
			if y != py || m != pm || d != pd {
				out = append(out, cur)
				cur = nil
			}
		}
		cur = append(cur, b)
	}
	return append(out, cur)
}
