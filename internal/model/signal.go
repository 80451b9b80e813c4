package model

import "encoding/json"

// Direction is the discrete trade recommendation derived from a Snapshot.
type Direction string

const (
	StrongBuy  Direction = "STRONG_BUY"
	Buy        Direction = "BUY"
	Hold       Direction = "HOLD"
	Sell       Direction = "SELL"
	StrongSell Direction = "STRONG_SELL"
)

// Actionable reports whether the direction can open a trade.
// HOLD never opens a trade.
func (d Direction) Actionable() bool {
	return d != Hold
}

// Long reports whether the direction implies a long entry.
func (d Direction) Long() bool {
	return d == Buy || d == StrongBuy
}

// Signal is the directional trade recommendation derived deterministically
// from a single Snapshot. Immutable once produced.
type Signal struct {
	Symbol    string    `json:"symbol"`
	Direction Direction `json:"signal"`
	Strength  int       `json:"strength"` // 0–100, min(100, |Score|)
	Score     int       `json:"score"`    // signed contribution sum
	Price     float64   `json:"price"`

	StopLoss        float64 `json:"stop_loss"`
	Target          float64 `json:"target"`
	RiskRewardRatio float64 `json:"risk_reward_ratio"`

	// LowRiskReward flags a signal whose reward/risk fell below the
	// configured floor. The signal is still returned; the caller decides.
	LowRiskReward bool `json:"low_risk_reward,omitempty"`

	// Contributing lists the factors that moved the score, in evaluation order.
	Contributing []string `json:"signals"`
}

// JSON returns the JSON-encoded signal.
func (s *Signal) JSON() []byte {
	out, _ := json.Marshal(s)
	return out
}
