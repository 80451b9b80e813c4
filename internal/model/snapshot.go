package model

import (
	"encoding/json"
	"time"
)

// SupertrendDirection is the trend side reported by the SuperTrend indicator.
type SupertrendDirection string

const (
	TrendBullish SupertrendDirection = "BULLISH"
	TrendBearish SupertrendDirection = "BEARISH"
)

// CPRType classifies the width of the Central Pivot Range relative to the pivot.
type CPRType string

const (
	CPRNarrow CPRType = "NARROW"
	CPRNormal CPRType = "NORMAL"
	CPRWide   CPRType = "WIDE"
)

// CPR holds Central Pivot Range and standard pivot levels computed from the
// previous session's OHLC.
type CPR struct {
	TC    float64 `json:"tc"`
	Pivot float64 `json:"pivot"`
	BC    float64 `json:"bc"`
	Type  CPRType `json:"type"`
	R1    float64 `json:"r1"`
	R2    float64 `json:"r2"`
	R3    float64 `json:"r3"`
	S1    float64 `json:"s1"`
	S2    float64 `json:"s2"`
	S3    float64 `json:"s3"`
}

// Fibonacci holds retracement levels over the current session's range.
type Fibonacci struct {
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Fib236 float64 `json:"fib_236"`
	Fib382 float64 `json:"fib_382"`
	Fib500 float64 `json:"fib_500"`
	Fib618 float64 `json:"fib_618"`
	Fib786 float64 `json:"fib_786"`
}

// PatternTag identifies a detected candlestick pattern.
type PatternTag string

const (
	PatternDoji             PatternTag = "DOJI"
	PatternHammer           PatternTag = "HAMMER"
	PatternShootingStar     PatternTag = "SHOOTING_STAR"
	PatternBullishEngulfing PatternTag = "BULLISH_ENGULFING"
	PatternBearishEngulfing PatternTag = "BEARISH_ENGULFING"
	PatternMorningStar      PatternTag = "MORNING_STAR"
	PatternEveningStar      PatternTag = "EVENING_STAR"
)

// Bullish reports whether the pattern is a bullish reversal signal.
func (p PatternTag) Bullish() bool {
	switch p {
	case PatternHammer, PatternBullishEngulfing, PatternMorningStar:
		return true
	}
	return false
}

// Bearish reports whether the pattern is a bearish reversal signal.
func (p PatternTag) Bearish() bool {
	switch p {
	case PatternShootingStar, PatternBearishEngulfing, PatternEveningStar:
		return true
	}
	return false
}

// Snapshot is one point-in-time bundle of computed indicators for a symbol.
// Every field is derived from the same bar sequence at the same AsOf time.
// Snapshots are created fresh for each evaluation and never mutated.
type Snapshot struct {
	Symbol string    `json:"symbol"`
	AsOf   time.Time `json:"as_of"`
	Price  float64   `json:"price"`

	RSI        float64 `json:"rsi"`
	MACD       float64 `json:"macd"`
	MACDSignal float64 `json:"macd_signal"`
	MACDHist   float64 `json:"macd_histogram"`
	EMA9       float64 `json:"ema9"`
	EMA21      float64 `json:"ema21"`
	ATR        float64 `json:"atr"`

	Supertrend    float64             `json:"supertrend"`
	SupertrendDir SupertrendDirection `json:"supertrend_direction"`
	VWAP          float64             `json:"vwap"`

	BollingerUpper  float64 `json:"bollinger_upper"`
	BollingerMiddle float64 `json:"bollinger_middle"`
	BollingerLower  float64 `json:"bollinger_lower"`

	Volume    int64   `json:"volume"`
	AvgVolume float64 `json:"avg_volume"`

	SupportLevels    []float64 `json:"support_levels"`    // ascending
	ResistanceLevels []float64 `json:"resistance_levels"` // ascending

	CPR       *CPR         `json:"cpr,omitempty"`
	Fibonacci *Fibonacci   `json:"fibonacci,omitempty"`
	Patterns  []PatternTag `json:"patterns,omitempty"`
}

// JSON returns the JSON-encoded snapshot.
func (s *Snapshot) JSON() []byte {
	out, _ := json.Marshal(s)
	return out
}
