// Package trade owns the trade ledger: the state machine that opens trades
// from signals, monitors them against stop-loss and target, and keeps the
// paper P&L aggregates. Trades are append-only; a closed trade never
// changes again.
package trade

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"trading-agent/internal/model"
)

// OrderPlacer is the slice of the broker the ledger needs in live mode.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, ord model.OrderSpec) (string, error)
}

// Quoter supplies current prices for manual closes.
type Quoter interface {
	Quote(ctx context.Context, symbol string) (float64, error)
}

// Notifier receives trade open/close announcements. Implementations never
// block the caller and never return errors here.
type Notifier interface {
	Notify(ctx context.Context, text string)
}

// Journaler persists ledger transitions. Optional; failures are logged,
// never propagated (the in-memory ledger is the source of truth intraday).
type Journaler interface {
	RecordOpen(t *model.Trade) error
	RecordClose(t *model.Trade) error
}

// PaperStats aggregates realized P&L for simulated trades.
type PaperStats struct {
	TotalProfit float64 `json:"total_profit"`
	TotalLoss   float64 `json:"total_loss"`
	TotalPnL    float64 `json:"total_pnl"`

	Wins       int `json:"wins"`
	Losses     int `json:"losses"`
	TargetsHit int `json:"targets_hit"`
	StoppedOut int `json:"stopped_out"`

	// ReturnPct is TotalPnL relative to the configured paper capital.
	// Zero when no capital is configured.
	ReturnPct float64 `json:"return_pct"`
}

// Config carries the ledger's operating limits and collaborators.
type Config struct {
	Mode                model.Mode
	MaxTradesPerDay     int
	MaxConcurrentTrades int

	// Orders is required in LIVE mode, ignored in PAPER mode.
	Orders OrderPlacer
	// Quotes is used by CloseManually to price the exit.
	Quotes Quoter

	Journal  Journaler
	Notifier Notifier

	// Capital is the notional paper-trading capital used for ReturnPct.
	Capital float64

	// Location sets the local date used for the daily counter reset.
	Location *time.Location
}

// Ledger is the trade state machine. All transitions run under one mutex;
// broker calls never happen while it is held (validate, release, call,
// re-acquire, commit).
type Ledger struct {
	cfg Config
	loc *time.Location
	now func() time.Time

	mu          sync.Mutex
	trades      []*model.Trade
	open        map[string]*model.Trade
	seq         int64
	tradesToday int
	counterDate string
	pendingOpen int             // slots reserved by in-flight live opens
	closing     map[string]bool // trades with a close order in flight
	stats       PaperStats
}

func NewLedger(cfg Config) *Ledger {
	if cfg.MaxTradesPerDay <= 0 {
		cfg.MaxTradesPerDay = 3
	}
	if cfg.MaxConcurrentTrades <= 0 {
		cfg.MaxConcurrentTrades = 2
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	return &Ledger{
		cfg:     cfg,
		loc:     loc,
		now:     time.Now,
		open:    make(map[string]*model.Trade),
		closing: make(map[string]bool),
	}
}

// OpenTrade opens a trade from an actionable signal. Returns
// *LimitExceededError when a cap blocks it and *OrderError when the broker
// rejects the live order; in both cases the ledger is unchanged.
func (l *Ledger) OpenTrade(ctx context.Context, sig *model.Signal, quantity int64) (*model.Trade, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("invalid quantity %d", quantity)
	}

	side := model.SideSell
	if sig.Direction.Long() {
		side = model.SideBuy
	}

	l.mu.Lock()
	l.rolloverLocked()
	if err := l.admitLocked(sig); err != nil {
		l.mu.Unlock()
		return nil, err
	}
	// Reserve the slot before the broker call so concurrent opens cannot
	// oversubscribe the caps while the lock is released.
	l.pendingOpen++
	l.seq++
	seq := l.seq
	l.mu.Unlock()

	orderID := fmt.Sprintf("PAPER-%d", seq)
	simulated := l.cfg.Mode != model.ModeLive
	if !simulated {
		id, err := l.cfg.Orders.PlaceOrder(ctx, model.OrderSpec{
			Symbol:   sig.Symbol,
			Side:     side,
			Quantity: quantity,
		})
		if err != nil {
			l.mu.Lock()
			l.pendingOpen--
			l.mu.Unlock()
			return nil, &OrderError{Symbol: sig.Symbol, Op: "open", Err: err}
		}
		orderID = id
	}

	t := &model.Trade{
		ID:             fmt.Sprintf("T-%s-%d", l.now().In(l.loc).Format("20060102"), seq),
		Symbol:         sig.Symbol,
		Side:           side,
		EntryPrice:     sig.Price,
		Quantity:       quantity,
		StopLoss:       sig.StopLoss,
		Target:         sig.Target,
		OpenedAt:       l.now(),
		Status:         model.TradeOpen,
		OrderID:        orderID,
		Simulated:      simulated,
		SignalStrength: sig.Strength,
	}

	l.mu.Lock()
	l.pendingOpen--
	l.trades = append(l.trades, t)
	l.open[t.ID] = t
	l.tradesToday++
	l.mu.Unlock()

	log.Printf("[ledger] opened %s %s %s qty=%d entry=%.2f stop=%.2f target=%.2f order=%s",
		t.ID, t.Side, t.Symbol, t.Quantity, t.EntryPrice, t.StopLoss, t.Target, t.OrderID)
	l.journalOpen(t)
	l.notify(ctx, fmt.Sprintf("Opened %s %s x%d @ %.2f (stop %.2f, target %.2f)",
		t.Side, t.Symbol, t.Quantity, t.EntryPrice, t.StopLoss, t.Target))
	return t, nil
}

// admitLocked checks the caps and the signal direction. Caller holds l.mu.
func (l *Ledger) admitLocked(sig *model.Signal) error {
	if !sig.Direction.Actionable() {
		return &LimitExceededError{Reason: "HOLD signal never opens a trade"}
	}
	if l.tradesToday+l.pendingOpen >= l.cfg.MaxTradesPerDay {
		return &LimitExceededError{Reason: fmt.Sprintf("daily cap reached (%d)", l.cfg.MaxTradesPerDay)}
	}
	if len(l.open)+l.pendingOpen >= l.cfg.MaxConcurrentTrades {
		return &LimitExceededError{Reason: fmt.Sprintf("concurrent cap reached (%d)", l.cfg.MaxConcurrentTrades)}
	}
	return nil
}

// MonitorOpenTrades checks every open trade against current prices and
// closes those that crossed their stop or target. Already-closed trades are
// never touched. Returns the trades closed by this pass.
func (l *Ledger) MonitorOpenTrades(ctx context.Context, prices map[string]float64) []*model.Trade {
	type exit struct {
		t      *model.Trade
		price  float64
		status model.TradeStatus
	}

	l.mu.Lock()
	var exits []exit
	for _, t := range l.open {
		price, ok := prices[t.Symbol]
		if !ok {
			continue
		}
		if status, hit := exitStatus(t, price); hit {
			exits = append(exits, exit{t: t, price: price, status: status})
		}
	}
	l.mu.Unlock()

	var closed []*model.Trade
	for _, e := range exits {
		done, err := l.closeTrade(ctx, e.t, e.price, e.status)
		if err != nil {
			log.Printf("[ledger] close %s failed: %v", e.t.ID, err)
			continue
		}
		if done {
			closed = append(closed, e.t)
		}
	}
	return closed
}

// exitStatus decides whether price crossed the trade's stop or target.
func exitStatus(t *model.Trade, price float64) (model.TradeStatus, bool) {
	if t.Side == model.SideBuy {
		if price <= t.StopLoss {
			return model.TradeClosedLoss, true
		}
		if price >= t.Target {
			return model.TradeClosedProfit, true
		}
		return "", false
	}
	if price >= t.StopLoss {
		return model.TradeClosedLoss, true
	}
	if price <= t.Target {
		return model.TradeClosedProfit, true
	}
	return "", false
}

// CloseManually closes an open trade at the current quote, regardless of
// stop or target.
func (l *Ledger) CloseManually(ctx context.Context, tradeID string) (*model.Trade, error) {
	l.mu.Lock()
	t, ok := l.open[tradeID]
	l.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("trade %s is not open", tradeID)
	}

	price := t.EntryPrice
	if l.cfg.Quotes != nil {
		p, err := l.cfg.Quotes.Quote(ctx, t.Symbol)
		if err != nil {
			return nil, fmt.Errorf("quote %s: %w", t.Symbol, err)
		}
		price = p
	}

	done, err := l.closeTrade(ctx, t, price, model.TradeClosedManual)
	if err != nil {
		return nil, err
	}
	if !done {
		return nil, fmt.Errorf("trade %s already closing", tradeID)
	}
	return t, nil
}

// closeTrade performs one OPEN -> CLOSED_* transition. In live mode the
// closing order goes to the broker first; on failure the trade stays OPEN
// untouched. Reports whether this call performed the transition; a trade
// already closed, or claimed by a concurrent close, returns false so the
// caller does not announce a close it did not make.
func (l *Ledger) closeTrade(ctx context.Context, t *model.Trade, price float64, status model.TradeStatus) (bool, error) {
	// Claim the trade so concurrent close paths (monitor tick vs manual
	// close) cannot both send a closing order.
	l.mu.Lock()
	if t.Status.Closed() || l.closing[t.ID] {
		l.mu.Unlock()
		return false, nil
	}
	l.closing[t.ID] = true
	l.mu.Unlock()

	if !t.Simulated {
		closeSide := model.SideSell
		if t.Side == model.SideSell {
			closeSide = model.SideBuy
		}
		if _, err := l.cfg.Orders.PlaceOrder(ctx, model.OrderSpec{
			Symbol:   t.Symbol,
			Side:     closeSide,
			Quantity: t.Quantity,
		}); err != nil {
			l.mu.Lock()
			delete(l.closing, t.ID)
			l.mu.Unlock()
			return false, &OrderError{Symbol: t.Symbol, Op: "close", Err: err}
		}
	}

	l.mu.Lock()
	delete(l.closing, t.ID)
	pnl := t.RealizedPnL(price)
	t.Status = status
	t.ClosedAt = l.now()
	t.ExitPrice = price
	t.PnL = pnl
	delete(l.open, t.ID)

	if t.Simulated {
		if pnl >= 0 {
			l.stats.TotalProfit += pnl
			l.stats.Wins++
		} else {
			l.stats.TotalLoss += -pnl
			l.stats.Losses++
		}
		switch status {
		case model.TradeClosedProfit:
			l.stats.TargetsHit++
		case model.TradeClosedLoss:
			l.stats.StoppedOut++
		}
		l.stats.TotalPnL = l.stats.TotalProfit - l.stats.TotalLoss
		if l.cfg.Capital > 0 {
			l.stats.ReturnPct = l.stats.TotalPnL / l.cfg.Capital * 100
		}
	}
	l.mu.Unlock()

	log.Printf("[ledger] closed %s %s exit=%.2f pnl=%.2f status=%s",
		t.ID, t.Symbol, price, pnl, status)
	l.journalClose(t)
	l.notify(ctx, fmt.Sprintf("Closed %s %s @ %.2f, P&L %.2f (%s)",
		t.Side, t.Symbol, price, pnl, status))
	return true, nil
}

// rolloverLocked resets the daily counter on the first transition after a
// local-date change. Caller holds l.mu.
func (l *Ledger) rolloverLocked() {
	today := l.now().In(l.loc).Format("2006-01-02")
	if today != l.counterDate {
		if l.counterDate != "" {
			log.Printf("[ledger] date rollover %s -> %s, daily counter reset", l.counterDate, today)
		}
		l.counterDate = today
		l.tradesToday = 0
	}
}

// ---- Read accessors ----

// Stats returns a copy of the paper P&L aggregates.
func (l *Ledger) Stats() PaperStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}

// TradesToday returns the count of trades opened since the last rollover.
func (l *Ledger) TradesToday() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rolloverLocked()
	return l.tradesToday
}

// OpenTrades returns copies of the currently open trades, oldest first.
func (l *Ledger) OpenTrades() []model.Trade {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]model.Trade, 0, len(l.open))
	for _, t := range l.trades {
		if !t.Status.Closed() {
			out = append(out, *t)
		}
	}
	return out
}

// Trades returns copies of the most recent trades, newest first, up to limit.
func (l *Ledger) Trades(limit int) []model.Trade {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := len(l.trades)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]model.Trade, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, *l.trades[i])
	}
	return out
}

// OpenSymbols returns the distinct symbols with open trades.
func (l *Ledger) OpenSymbols() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	seen := make(map[string]bool, len(l.open))
	var out []string
	for _, t := range l.trades {
		if !t.Status.Closed() && !seen[t.Symbol] {
			seen[t.Symbol] = true
			out = append(out, t.Symbol)
		}
	}
	return out
}

func (l *Ledger) journalOpen(t *model.Trade) {
	if l.cfg.Journal == nil {
		return
	}
	if err := l.cfg.Journal.RecordOpen(t); err != nil {
		log.Printf("[ledger] journal open %s: %v", t.ID, err)
	}
}

func (l *Ledger) journalClose(t *model.Trade) {
	if l.cfg.Journal == nil {
		return
	}
	if err := l.cfg.Journal.RecordClose(t); err != nil {
		log.Printf("[ledger] journal close %s: %v", t.ID, err)
	}
}

func (l *Ledger) notify(ctx context.Context, text string) {
	if l.cfg.Notifier != nil {
		l.cfg.Notifier.Notify(ctx, text)
	}
}
