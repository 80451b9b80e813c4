package trade

import "fmt"

// LimitExceededError rejects an open when a daily or concurrency cap is
// already reached, or when the signal direction cannot open a trade.
// It is an expected outcome, not a fault.
type LimitExceededError struct {
	Reason string
}

func (e *LimitExceededError) Error() string {
	return "trade rejected: " + e.Reason
}

// OrderError wraps a broker rejection. The trade is never created; the
// caller logs and moves on, no automatic retry (the broker is authoritative
// and a blind retry risks a duplicate order).
type OrderError struct {
	Symbol string
	Op     string // "open" or "close"
	Err    error
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("broker order failed (%s %s): %v", e.Op, e.Symbol, e.Err)
}

func (e *OrderError) Unwrap() error { return e.Err }
