package kiteconnect

import (
	"errors"
	"fmt"
	"time"
)

// OrderParams describes a regular order. Product, OrderType and Validity
// default to MIS / MARKET / DAY when left empty.
type OrderParams struct {
	Exchange        string
	TradingSymbol   string
	TransactionType string // "BUY" or "SELL"
	Quantity        int64
	Product         string
	OrderType       string
	Price           float64 // LIMIT orders only
	Validity        string
}

// Order is one row of the order book.
type Order struct {
	OrderID         string  `json:"order_id"`
	Status          string  `json:"status"`
	Exchange        string  `json:"exchange"`
	TradingSymbol   string  `json:"tradingsymbol"`
	TransactionType string  `json:"transaction_type"`
	Quantity        int64   `json:"quantity"`
	FilledQuantity  int64   `json:"filled_quantity"`
	AveragePrice    float64 `json:"average_price"`
	StatusMessage   string  `json:"status_message"`
}

// Position is one net position row.
type Position struct {
	TradingSymbol string  `json:"tradingsymbol"`
	Exchange      string  `json:"exchange"`
	Product       string  `json:"product"`
	Quantity      int64   `json:"quantity"`
	AveragePrice  float64 `json:"average_price"`
	LastPrice     float64 `json:"last_price"`
	PnL           float64 `json:"pnl"`
}

// Margins is the equity segment margin summary.
type Margins struct {
	Enabled   bool    `json:"enabled"`
	Net       float64 `json:"net"`
	Available struct {
		Cash          float64 `json:"cash"`
		LiveBalance   float64 `json:"live_balance"`
		Collateral    float64 `json:"collateral"`
		IntradayPayin float64 `json:"intraday_payin"`
	} `json:"available"`
}

// Profile is the logged-in user profile.
type Profile struct {
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
	Email    string `json:"email"`
	Broker   string `json:"broker"`
}

// HistoricalCandle is one OHLCV row from the historical data API.
type HistoricalCandle struct {
	TS     time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// APIError is a non-success response from the Kite API. ErrorType follows
// Kite's taxonomy (TokenException, InputException, OrderException, ...).
type APIError struct {
	Code      int
	ErrorType string
	Message   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("kite api error (HTTP %d, %s): %s", e.Code, e.ErrorType, e.Message)
}

// IsTokenError reports whether the error, anywhere in its chain, is an
// expired or invalid session, meaning a fresh login is required.
func IsTokenError(err error) bool {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.ErrorType == "TokenException" || ae.Code == 403
	}
	return false
}
