// Package broker adapts brokerage clients to the model.Broker port.
package broker

import (
	"context"
	"fmt"
	"log"
	"time"

	"trading-agent/internal/model"
	"trading-agent/pkg/kiteconnect"
)

// Common NSE instrument tokens for the historical data API.
var defaultTokens = map[string]int{
	"NIFTY 50":   256265,
	"NIFTY BANK": 260105,
}

// Kite implements model.Broker over a Zerodha Kite Connect session.
type Kite struct {
	client   *kiteconnect.Client
	exchange string
	tokens   map[string]int

	// OnCall observes every broker API call for instrumentation.
	OnCall func(op string, dur time.Duration)
	// OnLogin fires on each full login attempt.
	OnLogin func()
}

func (k *Kite) observe(op string, start time.Time) {
	if k.OnCall != nil {
		k.OnCall(op, time.Since(start))
	}
}

// NewKite wraps a kiteconnect client. tokens maps trading symbols to
// instrument tokens for historical data; the NSE index tokens are built in.
func NewKite(client *kiteconnect.Client, tokens map[string]int) *Kite {
	merged := make(map[string]int, len(defaultTokens)+len(tokens))
	for sym, tok := range defaultTokens {
		merged[sym] = tok
	}
	for sym, tok := range tokens {
		merged[sym] = tok
	}
	return &Kite{client: client, exchange: "NSE", tokens: merged}
}

// Connect validates an existing session if one is loaded, otherwise runs the
// full TOTP login flow.
func (k *Kite) Connect(ctx context.Context) error {
	if k.client.AccessToken() != "" {
		if _, err := k.client.Profile(); err == nil {
			log.Printf("[broker] existing session still valid")
			return nil
		} else if !kiteconnect.IsTokenError(err) {
			return err
		}
		log.Printf("[broker] saved session expired, logging in again")
		k.client.SetAccessToken("")
	}
	if k.OnLogin != nil {
		k.OnLogin()
	}
	sess, err := k.client.GenerateSession()
	if err != nil {
		return err
	}
	log.Printf("[broker] logged in as %s", sess.UserID)
	return nil
}

func (k *Kite) PlaceOrder(ctx context.Context, ord model.OrderSpec) (string, error) {
	defer k.observe("place_order", time.Now())
	txn := "BUY"
	if ord.Side == model.SideSell {
		txn = "SELL"
	}
	return k.client.PlaceOrder(kiteconnect.OrderParams{
		Exchange:        k.exchange,
		TradingSymbol:   ord.Symbol,
		TransactionType: txn,
		Quantity:        ord.Quantity,
	})
}

func (k *Kite) Quote(ctx context.Context, symbol string) (float64, error) {
	defer k.observe("ltp", time.Now())
	return k.client.LTP(k.exchange + ":" + symbol)
}

func (k *Kite) HistoricalBars(ctx context.Context, symbol, interval string, from, to time.Time) ([]model.Bar, error) {
	defer k.observe("historical", time.Now())
	token, ok := k.tokens[symbol]
	if !ok {
		return nil, fmt.Errorf("no instrument token configured for %q", symbol)
	}
	candles, err := k.client.HistoricalCandles(token, interval, from, to)
	if err != nil {
		return nil, err
	}
	bars := make([]model.Bar, len(candles))
	for i, hc := range candles {
		bars[i] = model.Bar{
			TS:     hc.TS,
			Open:   hc.Open,
			High:   hc.High,
			Low:    hc.Low,
			Close:  hc.Close,
			Volume: hc.Volume,
		}
	}
	return bars, nil
}

func (k *Kite) Positions(ctx context.Context) ([]model.BrokerPosition, error) {
	defer k.observe("positions", time.Now())
	raw, err := k.client.Positions()
	if err != nil {
		return nil, err
	}
	out := make([]model.BrokerPosition, len(raw))
	for i, p := range raw {
		out[i] = model.BrokerPosition{
			Symbol:       p.TradingSymbol,
			Quantity:     p.Quantity,
			AveragePrice: p.AveragePrice,
			LastPrice:    p.LastPrice,
			PnL:          p.PnL,
		}
	}
	return out, nil
}

func (k *Kite) AvailableMargin(ctx context.Context) (float64, error) {
	defer k.observe("margins", time.Now())
	m, err := k.client.Margins()
	if err != nil {
		return 0, err
	}
	return m.Available.LiveBalance, nil
}
