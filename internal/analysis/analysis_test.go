package analysis

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"trading-agent/internal/model"
)

func demoWindow(t *testing.T, symbol string, n int) []model.Bar {
	t.Helper()
	src := &DemoBars{}
	to := time.Date(2026, 3, 6, 15, 30, 0, 0, time.UTC)
	from := to.Add(-time.Duration(n) * 5 * time.Minute)
	bars, err := src.HistoricalBars(context.Background(), symbol, "5minute", from, to)
	if err != nil {
		t.Fatalf("demo bars: %v", err)
	}
	return bars
}

func TestFromBarsRejectsShortWindow(t *testing.T) {
	bars := demoWindow(t, "NIFTY 50", 20)
	if len(bars) >= MinBars {
		t.Fatalf("test setup: window too long (%d)", len(bars))
	}

	_, err := FromBars("NIFTY 50", bars[len(bars)-1].TS, bars)
	var ide *InsufficientDataError
	if !errors.As(err, &ide) {
		t.Fatalf("error = %v, want *InsufficientDataError", err)
	}
	if ide.Need != MinBars || ide.Have != len(bars) {
		t.Fatalf("error detail = have %d need %d", ide.Have, ide.Need)
	}
}

func TestFromBarsInternallyConsistent(t *testing.T) {
	bars := demoWindow(t, "NIFTY 50", 200)
	asOf := bars[len(bars)-1].TS

	snap, err := FromBars("NIFTY 50", asOf, bars)
	if err != nil {
		t.Fatalf("FromBars: %v", err)
	}

	if snap.Symbol != "NIFTY 50" || !snap.AsOf.Equal(asOf) {
		t.Fatalf("identity fields wrong: %s %v", snap.Symbol, snap.AsOf)
	}
	if snap.Price != bars[len(bars)-1].Close {
		t.Fatalf("price %v != last close %v", snap.Price, bars[len(bars)-1].Close)
	}
	if snap.RSI < 0 || snap.RSI > 100 {
		t.Fatalf("RSI out of range: %v", snap.RSI)
	}
	if snap.ATR <= 0 {
		t.Fatalf("ATR = %v, want > 0", snap.ATR)
	}
	if snap.BollingerUpper < snap.BollingerMiddle || snap.BollingerMiddle < snap.BollingerLower {
		t.Fatal("Bollinger bands out of order")
	}
	if got := math.Abs(snap.MACDHist - (snap.MACD - snap.MACDSignal)); got > 1e-9 {
		t.Fatalf("MACD histogram inconsistent by %v", got)
	}
	for i := 1; i < len(snap.SupportLevels); i++ {
		if snap.SupportLevels[i] < snap.SupportLevels[i-1] {
			t.Fatal("support levels not ascending")
		}
	}
	if snap.CPR == nil {
		t.Fatal("CPR missing with multi-session window")
	}
	if snap.Fibonacci == nil {
		t.Fatal("Fibonacci missing")
	}
}

func TestFromBarsDeterministic(t *testing.T) {
	bars := demoWindow(t, "RELIANCE", 150)
	asOf := bars[len(bars)-1].TS

	a, err := FromBars("RELIANCE", asOf, bars)
	if err != nil {
		t.Fatal(err)
	}
	b, err := FromBars("RELIANCE", asOf, bars)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatal("identical bars produced different snapshots")
	}
}

func baseSnapshot() *model.Snapshot {
	return &model.Snapshot{
		Symbol:          "NIFTY 50",
		AsOf:            time.Date(2026, 3, 6, 10, 0, 0, 0, time.UTC),
		Price:           22000,
		RSI:             50,
		MACD:            0,
		MACDSignal:      0,
		EMA9:            22000,
		EMA21:           22000,
		ATR:             80,
		BollingerUpper:  22200,
		BollingerMiddle: 22000,
		BollingerLower:  21800,
		Volume:          100000,
		AvgVolume:       100000,
	}
}

func TestScoreNeutralSnapshotHolds(t *testing.T) {
	sig := NewScorer(DefaultScoreConfig()).Score(baseSnapshot())
	if sig.Score != 0 || sig.Direction != model.Hold {
		t.Fatalf("neutral snapshot scored %d %s", sig.Score, sig.Direction)
	}
	if len(sig.Contributing) != 0 {
		t.Fatalf("neutral snapshot has reasons: %v", sig.Contributing)
	}
}

func TestScoreStrongBuyScenario(t *testing.T) {
	// Oversold RSI, bullish MACD, price above both EMAs, volume surge.
	snap := baseSnapshot()
	snap.RSI = 25
	snap.MACD = 12
	snap.MACDSignal = 5
	snap.Price = 22100
	snap.EMA9 = 22050
	snap.EMA21 = 22000
	snap.Volume = 150000

	sig := NewScorer(DefaultScoreConfig()).Score(snap)
	if sig.Score < 70 {
		t.Fatalf("score = %d, want >= 70", sig.Score)
	}
	if sig.Direction != model.StrongBuy {
		t.Fatalf("direction = %s, want STRONG_BUY", sig.Direction)
	}
	if sig.Strength > 100 {
		t.Fatalf("strength = %d, exceeds cap", sig.Strength)
	}
	if len(sig.Contributing) != 4 {
		t.Fatalf("contributing = %v, want 4 factors", sig.Contributing)
	}
}

func TestScoreStrongSellScenario(t *testing.T) {
	snap := baseSnapshot()
	snap.RSI = 80
	snap.MACD = -10
	snap.MACDSignal = -2
	snap.Price = 21900
	snap.EMA9 = 21950
	snap.EMA21 = 22000

	sig := NewScorer(DefaultScoreConfig()).Score(snap)
	if sig.Direction != model.StrongSell {
		t.Fatalf("direction = %s (score %d), want STRONG_SELL", sig.Direction, sig.Score)
	}
	if sig.StopLoss <= snap.Price || sig.Target >= snap.Price {
		t.Fatalf("short levels inverted: stop %v target %v price %v", sig.StopLoss, sig.Target, snap.Price)
	}
}

func TestScoreDeterministic(t *testing.T) {
	snap := baseSnapshot()
	snap.RSI = 25
	snap.MACD = 3

	sc := NewScorer(DefaultScoreConfig())
	a := sc.Score(snap)
	b := sc.Score(snap)
	if !reflect.DeepEqual(a, b) {
		t.Fatal("same snapshot produced different signals")
	}
}

func TestBucketTotalOverScoreRange(t *testing.T) {
	sc := NewScorer(DefaultScoreConfig())
	counts := map[model.Direction]int{}
	for score := -120; score <= 120; score++ {
		d := sc.bucket(score)
		switch {
		case score >= 40 && d != model.StrongBuy,
			score >= 20 && score < 40 && d != model.Buy,
			score > -20 && score < 20 && d != model.Hold,
			score > -40 && score <= -20 && d != model.Sell,
			score <= -40 && d != model.StrongSell:
			t.Fatalf("score %d mapped to %s", score, d)
		}
		counts[d]++
	}
	if len(counts) != 5 {
		t.Fatalf("only %d directions reachable", len(counts))
	}
}

func TestBucketThresholdsConfigurable(t *testing.T) {
	cfg := DefaultScoreConfig()
	cfg.StrongBuyScore = 60
	cfg.BuyScore = 30
	cfg.SellScore = -30
	cfg.StrongSellScore = -60
	sc := NewScorer(cfg)

	cases := map[int]model.Direction{
		60:  model.StrongBuy,
		59:  model.Buy,
		30:  model.Buy,
		29:  model.Hold,
		-29: model.Hold,
		-30: model.Sell,
		-59: model.Sell,
		-60: model.StrongSell,
	}
	for score, want := range cases {
		if got := sc.bucket(score); got != want {
			t.Fatalf("score %d mapped to %s, want %s", score, got, want)
		}
	}
}

func TestScoreRiskRewardLevels(t *testing.T) {
	snap := baseSnapshot()
	snap.RSI = 25
	snap.MACD = 5
	snap.Price = 22100
	snap.EMA9 = 22050
	snap.EMA21 = 22000

	cfg := DefaultScoreConfig()
	sig := NewScorer(cfg).Score(snap)

	wantStop := snap.Price - cfg.StopATRMult*snap.ATR
	wantTarget := snap.Price + cfg.TargetATRMult*snap.ATR
	if math.Abs(sig.StopLoss-wantStop) > 1e-9 || math.Abs(sig.Target-wantTarget) > 1e-9 {
		t.Fatalf("levels = %v/%v, want %v/%v", sig.StopLoss, sig.Target, wantStop, wantTarget)
	}
	wantRatio := cfg.TargetATRMult / cfg.StopATRMult
	if math.Abs(sig.RiskRewardRatio-wantRatio) > 1e-9 {
		t.Fatalf("ratio = %v, want %v", sig.RiskRewardRatio, wantRatio)
	}
	if sig.LowRiskReward {
		t.Fatal("ratio above floor flagged as low")
	}
}

func TestScoreFlagsLowRiskReward(t *testing.T) {
	snap := baseSnapshot()
	snap.RSI = 25

	cfg := DefaultScoreConfig()
	cfg.TargetATRMult = 1.0 // reward below the 1.5 floor
	sig := NewScorer(cfg).Score(snap)
	if !sig.LowRiskReward {
		t.Fatalf("ratio %v below floor not flagged", sig.RiskRewardRatio)
	}
	if sig.Direction != model.Buy {
		t.Fatalf("flagged signal direction = %s, want BUY (still returned)", sig.Direction)
	}
}

func TestDemoBarsDeterministic(t *testing.T) {
	a := demoWindow(t, "NIFTY 50", 100)
	b := demoWindow(t, "NIFTY 50", 100)
	if !reflect.DeepEqual(a, b) {
		t.Fatal("demo provider not deterministic")
	}
	for i := 1; i < len(a); i++ {
		if !a[i].TS.After(a[i-1].TS) {
			t.Fatalf("timestamps not strictly increasing at %d", i)
		}
		if a[i].High < a[i].Low || a[i].High < a[i].Close || a[i].Low > a[i].Close {
			t.Fatalf("bar %d OHLC inconsistent: %+v", i, a[i])
		}
	}
}
