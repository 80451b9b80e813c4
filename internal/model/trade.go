package model

import (
	"encoding/json"
	"time"
)

// Mode selects between simulated and real order execution.
type Mode string

const (
	ModePaper Mode = "PAPER"
	ModeLive  Mode = "LIVE"
)

// Side is the trade direction.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// TradeStatus is the lifecycle state of a trade.
// Trades are append-only: once CLOSED_* they never change again.
type TradeStatus string

const (
	TradeOpen         TradeStatus = "OPEN"
	TradeClosedProfit TradeStatus = "CLOSED_PROFIT"
	TradeClosedLoss   TradeStatus = "CLOSED_LOSS"
	TradeClosedManual TradeStatus = "CLOSED_MANUAL"
)

// Closed reports whether the status is terminal.
func (s TradeStatus) Closed() bool {
	return s != TradeOpen
}

// Trade is one entry in the trade ledger. Created on a qualifying Signal,
// owned exclusively by the trade ledger, and mutated only through its
// transition functions.
type Trade struct {
	ID         string      `json:"id"`
	Symbol     string      `json:"symbol"`
	Side       Side        `json:"side"`
	EntryPrice float64     `json:"entry_price"`
	Quantity   int64       `json:"quantity"`
	StopLoss   float64     `json:"stop_loss"`
	Target     float64     `json:"target"`
	OpenedAt   time.Time   `json:"opened_at"`
	Status     TradeStatus `json:"status"`

	ClosedAt  time.Time `json:"closed_at,omitempty"`
	ExitPrice float64   `json:"exit_price,omitempty"`
	PnL       float64   `json:"pnl,omitempty"`

	// OrderID is the broker order id for live trades, or a synthetic
	// "PAPER-N" id when Simulated is set.
	OrderID   string `json:"order_id"`
	Simulated bool   `json:"simulated"`

	// SignalStrength records the strength of the signal that opened the trade.
	SignalStrength int `json:"signal_strength,omitempty"`
}

// RealizedPnL computes the profit for a close at exitPrice.
// Positive values are profit for either side.
func (t *Trade) RealizedPnL(exitPrice float64) float64 {
	if t.Side == SideBuy {
		return (exitPrice - t.EntryPrice) * float64(t.Quantity)
	}
	return (t.EntryPrice - exitPrice) * float64(t.Quantity)
}

// JSON returns the JSON-encoded trade.
func (t *Trade) JSON() []byte {
	out, _ := json.Marshal(t)
	return out
}
