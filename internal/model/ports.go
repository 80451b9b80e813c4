package model

import (
	"context"
	"time"
)

// Broker is the capability surface the bot needs from a brokerage session.
// Implementations wrap a real broker API or a simulation; callers must not
// assume any particular backend.
type Broker interface {
	// Connect establishes (or re-establishes) an authenticated session.
	Connect(ctx context.Context) error

	// PlaceOrder submits a market order and returns the broker order id.
	PlaceOrder(ctx context.Context, ord OrderSpec) (string, error)

	// Quote returns the last traded price for a symbol.
	Quote(ctx context.Context, symbol string) (float64, error)

	// HistoricalBars returns OHLCV bars for [from, to], oldest first.
	HistoricalBars(ctx context.Context, symbol string, interval string, from, to time.Time) ([]Bar, error)

	// Positions returns current net positions.
	Positions(ctx context.Context) ([]BrokerPosition, error)

	// AvailableMargin returns free cash in the equity segment.
	AvailableMargin(ctx context.Context) (float64, error)
}

// OrderSpec describes a market order to be placed with the broker.
type OrderSpec struct {
	Symbol   string
	Side     Side
	Quantity int64
}

// BrokerPosition is a net position as reported by the broker.
type BrokerPosition struct {
	Symbol       string  `json:"symbol"`
	Quantity     int64   `json:"quantity"`
	AveragePrice float64 `json:"average_price"`
	LastPrice    float64 `json:"last_price"`
	PnL          float64 `json:"pnl"`
}

// BarProvider is the read-only slice of Broker the snapshot builder needs.
type BarProvider interface {
	HistoricalBars(ctx context.Context, symbol string, interval string, from, to time.Time) ([]Bar, error)
}
