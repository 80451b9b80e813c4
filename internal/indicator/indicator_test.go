package indicator

import (
	"math"
	"testing"
	"time"

	"trading-agent/internal/model"
)

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func mkBars(rows [][5]float64) []model.Bar {
	bars := make([]model.Bar, len(rows))
	ts := time.Date(2026, 3, 2, 9, 15, 0, 0, time.UTC)
	for i, r := range rows {
		bars[i] = model.Bar{
			TS:     ts.Add(time.Duration(i) * 5 * time.Minute),
			Open:   r[0],
			High:   r[1],
			Low:    r[2],
			Close:  r[3],
			Volume: int64(r[4]),
		}
	}
	return bars
}

func TestEMAConstantSeries(t *testing.T) {
	values := []float64{100, 100, 100, 100, 100}
	for i, v := range EMA(values, 3) {
		if !almostEqual(v, 100) {
			t.Fatalf("ema[%d] = %v, want 100", i, v)
		}
	}
}

func TestEMATracksTrend(t *testing.T) {
	values := []float64{100, 101, 102, 103, 104, 105}
	ema := EMA(values, 3)
	for i := 1; i < len(ema); i++ {
		if ema[i] <= ema[i-1] {
			t.Fatalf("ema not rising at %d: %v -> %v", i, ema[i-1], ema[i])
		}
	}
	if ema[len(ema)-1] >= values[len(values)-1] {
		t.Fatalf("ema %v should lag price %v in an uptrend", ema[len(ema)-1], values[len(values)-1])
	}
}

func TestSMAFullWindow(t *testing.T) {
	sma := SMA([]float64{1, 2, 3, 4, 5}, 3)
	if !almostEqual(sma[4], 4) {
		t.Fatalf("sma[4] = %v, want 4", sma[4])
	}
	// prefix positions use the available mean
	if !almostEqual(sma[0], 1) || !almostEqual(sma[1], 1.5) {
		t.Fatalf("prefix = %v, %v; want 1, 1.5", sma[0], sma[1])
	}
}

func TestRSIExtremes(t *testing.T) {
	up := []float64{100, 101, 102, 103, 104, 105, 106, 107, 108, 109, 110, 111, 112, 113, 114, 115}
	if got := Last(RSI(up, 14)); got != 100 {
		t.Fatalf("all-gains RSI = %v, want 100", got)
	}
	down := make([]float64, len(up))
	for i := range up {
		down[i] = 200 - up[i]
	}
	if got := Last(RSI(down, 14)); got != 0 {
		t.Fatalf("all-losses RSI = %v, want 0", got)
	}
}

func TestRSIBounded(t *testing.T) {
	values := []float64{100, 102, 101, 104, 103, 107, 105, 108, 106, 110, 109, 112, 111, 113, 112, 115}
	for i, v := range RSI(values, 14) {
		if v < 0 || v > 100 {
			t.Fatalf("rsi[%d] = %v out of [0,100]", i, v)
		}
	}
}

func TestMACDCrossSign(t *testing.T) {
	// Long flat stretch then a sharp rally: MACD line and histogram must
	// turn positive.
	values := make([]float64, 40)
	for i := range values {
		values[i] = 100
	}
	for i := 30; i < 40; i++ {
		values[i] = 100 + float64(i-29)*2
	}
	line, signal, hist := MACD(values, 12, 26, 9)
	last := len(values) - 1
	if line[last] <= 0 {
		t.Fatalf("macd line = %v, want > 0 after rally", line[last])
	}
	if hist[last] <= 0 {
		t.Fatalf("histogram = %v, want > 0 after rally", hist[last])
	}
	if !almostEqual(hist[last], line[last]-signal[last]) {
		t.Fatalf("histogram %v != line-signal %v", hist[last], line[last]-signal[last])
	}
}

func TestBollingerDegenerate(t *testing.T) {
	values := []float64{50, 50, 50, 50, 50}
	upper, middle, lower := Bollinger(values, 3, 2)
	last := len(values) - 1
	if !almostEqual(upper[last], 50) || !almostEqual(middle[last], 50) || !almostEqual(lower[last], 50) {
		t.Fatalf("flat series bands = %v/%v/%v, want all 50", upper[last], middle[last], lower[last])
	}
}

func TestBollingerSymmetry(t *testing.T) {
	values := []float64{98, 102, 99, 103, 100, 104, 101}
	upper, middle, lower := Bollinger(values, 5, 2)
	for i := range values {
		if !almostEqual(upper[i]-middle[i], middle[i]-lower[i]) {
			t.Fatalf("bands not symmetric at %d", i)
		}
		if upper[i] < lower[i] {
			t.Fatalf("upper < lower at %d", i)
		}
	}
}

func TestATRConstantRange(t *testing.T) {
	rows := make([][5]float64, 20)
	for i := range rows {
		rows[i] = [5]float64{100, 101, 99, 100, 1000}
	}
	atr := ATR(mkBars(rows), 14)
	if got := Last(atr); !almostEqual(got, 2) {
		t.Fatalf("ATR = %v, want 2", got)
	}
}

func TestSupertrendDirection(t *testing.T) {
	rising := make([][5]float64, 30)
	for i := range rising {
		p := 100 + float64(i)*2
		rising[i] = [5]float64{p, p + 1, p - 1, p + 0.8, 1000}
	}
	_, dir := Supertrend(mkBars(rising), 10, 3)
	if dir[len(dir)-1] != model.TrendBullish {
		t.Fatalf("rising market direction = %v, want BULLISH", dir[len(dir)-1])
	}

	falling := make([][5]float64, 30)
	for i := range falling {
		p := 200 - float64(i)*2
		falling[i] = [5]float64{p, p + 1, p - 1, p - 0.8, 1000}
	}
	_, dir = Supertrend(mkBars(falling), 10, 3)
	if dir[len(dir)-1] != model.TrendBearish {
		t.Fatalf("falling market direction = %v, want BEARISH", dir[len(dir)-1])
	}
}

func TestVWAP(t *testing.T) {
	bars := mkBars([][5]float64{
		{100, 102, 98, 100, 100},  // typical 100
		{100, 104, 100, 102, 300}, // typical 102
	})
	want := (100*100 + 102*300) / 400.0
	if got := VWAP(bars); !almostEqual(got, want) {
		t.Fatalf("VWAP = %v, want %v", got, want)
	}
}

func TestVWAPZeroVolumeFallsBackToClose(t *testing.T) {
	bars := mkBars([][5]float64{{100, 101, 99, 100.5, 0}})
	if got := VWAP(bars); !almostEqual(got, 100.5) {
		t.Fatalf("VWAP = %v, want last close 100.5", got)
	}
}

func TestSupportResistanceFindsPivots(t *testing.T) {
	// V shape then inverted V: one clear pivot low (95) and one pivot
	// high (105).
	rows := [][5]float64{
		{100, 101, 99, 100, 1000},
		{99, 100, 97, 98, 1000},
		{97, 98, 95, 96, 1000}, // pivot low at 95
		{98, 99, 97, 98, 1000},
		{100, 101, 99, 100, 1000},
		{102, 103, 101, 102, 1000},
		{104, 105, 103, 104, 1000}, // pivot high at 105
		{102, 103, 101, 102, 1000},
		{100, 101, 99, 100, 1000},
	}
	supports, resistances := SupportResistance(mkBars(rows), 0.005, 3)
	if len(supports) != 1 || !almostEqual(supports[0], 95) {
		t.Fatalf("supports = %v, want [95]", supports)
	}
	if len(resistances) != 1 || !almostEqual(resistances[0], 105) {
		t.Fatalf("resistances = %v, want [105]", resistances)
	}
}

func TestCPRLevelsAndWidth(t *testing.T) {
	c := CPR(105, 95, 104)
	pivot := (105.0 + 95.0 + 104.0) / 3
	if !almostEqual(c.Pivot, pivot) {
		t.Fatalf("pivot = %v, want %v", c.Pivot, pivot)
	}
	if !almostEqual(c.R1, 2*pivot-95) || !almostEqual(c.S1, 2*pivot-105) {
		t.Fatalf("R1/S1 = %v/%v", c.R1, c.S1)
	}
	if c.TC < c.BC {
		t.Fatal("TC below BC")
	}
	if c.Type != model.CPRWide {
		t.Fatalf("type = %v, want WIDE", c.Type)
	}

	narrow := CPR(100.4, 100, 100.25)
	if narrow.Type != model.CPRNarrow {
		t.Fatalf("type = %v, want NARROW", narrow.Type)
	}
}

func TestFibonacciLevels(t *testing.T) {
	f := Fibonacci(200, 100)
	if !almostEqual(f.Fib500, 150) {
		t.Fatalf("fib 0.5 = %v, want 150", f.Fib500)
	}
	if !almostEqual(f.Fib236, 200-23.6) {
		t.Fatalf("fib 0.236 = %v", f.Fib236)
	}
	if f.Fib236 < f.Fib382 || f.Fib382 < f.Fib618 {
		t.Fatal("levels out of order")
	}
}

func TestPatternDetection(t *testing.T) {
	doji := mkBars([][5]float64{{100, 101, 99, 100.1, 1000}})
	if tags := Patterns(doji); len(tags) != 1 || tags[0] != model.PatternDoji {
		t.Fatalf("tags = %v, want [DOJI]", tags)
	}

	hammer := mkBars([][5]float64{{100, 101, 97, 100.9, 1000}})
	if tags := Patterns(hammer); len(tags) != 1 || tags[0] != model.PatternHammer {
		t.Fatalf("tags = %v, want [HAMMER]", tags)
	}

	engulfing := mkBars([][5]float64{
		{101, 101.5, 99.5, 100, 1000}, // red
		{99.5, 102, 99, 101.5, 1000},  // green body engulfs previous
	})
	tags := Patterns(engulfing)
	found := false
	for _, tag := range tags {
		if tag == model.PatternBullishEngulfing {
			found = true
		}
	}
	if !found {
		t.Fatalf("tags = %v, want BULLISH_ENGULFING", tags)
	}
}
