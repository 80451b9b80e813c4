package analysis

import (
	"fmt"

	"trading-agent/internal/model"
)

// ScoreConfig holds the tunable weights and thresholds of the scoring
// engine. The defaults mirror the parameters the strategy was tuned with;
// they are configuration, not constants, and nothing here assumes they are
// optimal.
type ScoreConfig struct {
	RSIOversold   float64 // RSI below this scores bullish
	RSIOverbought float64 // RSI above this scores bearish

	WeightRSI       int
	WeightMACD      int
	WeightBollinger int
	WeightTrend     int
	WeightVolume    int

	VolumeSurgeRatio float64 // volume / rolling average to count as a surge

	StopATRMult   float64 // stop-loss distance in ATRs
	TargetATRMult float64 // target distance in ATRs
	MinRiskReward float64 // signals below this ratio are flagged

	// Direction bucket thresholds. Scores at or beyond the strong
	// thresholds escalate BUY/SELL to their STRONG variants.
	StrongBuyScore  int
	BuyScore        int
	SellScore       int
	StrongSellScore int
}

// DefaultScoreConfig returns the standard weight table.
func DefaultScoreConfig() ScoreConfig {
	return ScoreConfig{
		RSIOversold:      30,
		RSIOverbought:    70,
		WeightRSI:        30,
		WeightMACD:       25,
		WeightBollinger:  20,
		WeightTrend:      15,
		WeightVolume:     10,
		VolumeSurgeRatio: 1.2,
		StopATRMult:      1.5,
		TargetATRMult:    2.5,
		MinRiskReward:    1.5,
		StrongBuyScore:   40,
		BuyScore:         20,
		SellScore:        -20,
		StrongSellScore:  -40,
	}
}

// Band position fractions treated as "near" a Bollinger band.
const (
	nearLowerBand = 0.15
	nearUpperBand = 0.85
)

// Scorer converts snapshots into signals. Score is a pure function of the
// snapshot and the fixed config.
type Scorer struct {
	cfg ScoreConfig
}

func NewScorer(cfg ScoreConfig) *Scorer { return &Scorer{cfg: cfg} }

// Score evaluates one snapshot. Every contributing factor appends a
// human-readable reason so the caller can show why the score landed where
// it did.
func (s *Scorer) Score(snap *model.Snapshot) *model.Signal {
	score := 0
	var reasons []string

	switch {
	case snap.RSI < s.cfg.RSIOversold:
		score += s.cfg.WeightRSI
		reasons = append(reasons, fmt.Sprintf("RSI oversold (%.1f)", snap.RSI))
	case snap.RSI > s.cfg.RSIOverbought:
		score -= s.cfg.WeightRSI
		reasons = append(reasons, fmt.Sprintf("RSI overbought (%.1f)", snap.RSI))
	}

	if snap.MACD > snap.MACDSignal {
		score += s.cfg.WeightMACD
		reasons = append(reasons, "MACD above signal line")
	} else if snap.MACD < snap.MACDSignal {
		score -= s.cfg.WeightMACD
		reasons = append(reasons, "MACD below signal line")
	}

	if width := snap.BollingerUpper - snap.BollingerLower; width > 0 {
		pos := (snap.Price - snap.BollingerLower) / width
		if pos <= nearLowerBand {
			score += s.cfg.WeightBollinger
			reasons = append(reasons, "price near lower Bollinger band")
		} else if pos >= nearUpperBand {
			score -= s.cfg.WeightBollinger
			reasons = append(reasons, "price near upper Bollinger band")
		}
	}

	if snap.Price > snap.EMA9 && snap.Price > snap.EMA21 {
		score += s.cfg.WeightTrend
		reasons = append(reasons, "price above EMA9 and EMA21")
	} else if snap.Price < snap.EMA9 && snap.Price < snap.EMA21 {
		score -= s.cfg.WeightTrend
		reasons = append(reasons, "price below EMA9 and EMA21")
	}

	if snap.AvgVolume > 0 && float64(snap.Volume) > s.cfg.VolumeSurgeRatio*snap.AvgVolume {
		score += s.cfg.WeightVolume
		reasons = append(reasons,
			fmt.Sprintf("volume %.1fx above average", float64(snap.Volume)/snap.AvgVolume))
	}

	sig := &model.Signal{
		Symbol:       snap.Symbol,
		Direction:    s.bucket(score),
		Score:        score,
		Price:        snap.Price,
		Contributing: reasons,
	}
	sig.Strength = abs(score)
	if sig.Strength > 100 {
		sig.Strength = 100
	}

	s.applyRiskLevels(sig, snap)
	return sig
}

// bucket maps a score to its direction. The five ranges partition the
// integers: every score lands in exactly one bucket.
func (s *Scorer) bucket(score int) model.Direction {
	switch {
	case score >= s.cfg.StrongBuyScore:
		return model.StrongBuy
	case score >= s.cfg.BuyScore:
		return model.Buy
	case score <= s.cfg.StrongSellScore:
		return model.StrongSell
	case score <= s.cfg.SellScore:
		return model.Sell
	default:
		return model.Hold
	}
}

// applyRiskLevels derives stop-loss and target from ATR. HOLD signals lean
// on the score's sign for orientation so the levels are still displayable.
func (s *Scorer) applyRiskLevels(sig *model.Signal, snap *model.Snapshot) {
	if snap.ATR <= 0 {
		return
	}
	long := sig.Direction.Long() || (sig.Direction == model.Hold && sig.Score >= 0)
	if long {
		sig.StopLoss = snap.Price - s.cfg.StopATRMult*snap.ATR
		sig.Target = snap.Price + s.cfg.TargetATRMult*snap.ATR
	} else {
		sig.StopLoss = snap.Price + s.cfg.StopATRMult*snap.ATR
		sig.Target = snap.Price - s.cfg.TargetATRMult*snap.ATR
	}

	risk := abs64(snap.Price - sig.StopLoss)
	reward := abs64(sig.Target - snap.Price)
	if risk > 0 {
		sig.RiskRewardRatio = reward / risk
	}
	sig.LowRiskReward = sig.RiskRewardRatio < s.cfg.MinRiskReward
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func abs64(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
