package model

import (
	"encoding/json"
	"time"
)

// Bar represents one OHLCV candle for a fixed time period.
// Bars arrive as an ordered sequence with strictly increasing timestamps
// and are never mutated once produced.
type Bar struct {
	TS     time.Time `json:"ts"` // bucket start time
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// JSON returns the JSON-encoded bar.
func (b *Bar) JSON() []byte {
	out, _ := json.Marshal(b)
	return out
}
