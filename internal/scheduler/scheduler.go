// Package scheduler drives the bot's two periodic loops: the decision tick
// (analyze and maybe open a trade) and the monitoring tick (close open
// trades that hit their stop or target). Ticks of the same kind never
// overlap; the two kinds run concurrently. Any tick error is logged and
// swallowed so a transient broker failure never stops the loop.
package scheduler

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"trading-agent/internal/analysis"
	"trading-agent/internal/connect"
	"trading-agent/internal/markethours"
	"trading-agent/internal/metrics"
	"trading-agent/internal/model"
	"trading-agent/internal/status"
	"trading-agent/internal/trade"
	"trading-agent/pkg/kiteconnect"
)

// Publisher receives analysis results and trade events (e.g. the Redis
// publisher). Optional; errors are logged, never propagated.
type Publisher interface {
	PublishAnalysis(ctx context.Context, symbol string, snap *model.Snapshot, sig *model.Signal) error
	PublishTrade(ctx context.Context, t model.Trade) error
}

// Config wires the scheduler to its collaborators.
type Config struct {
	Symbol   string
	Quantity int64

	DecisionInterval time.Duration
	MonitorInterval  time.Duration

	// SkipClosedMarket gates decision ticks on NSE market hours. Off for
	// demo/backtest runs.
	SkipClosedMarket bool

	// SkipLowRiskReward refuses to open trades whose signal is flagged
	// below the risk-reward floor.
	SkipLowRiskReward bool

	Builder *analysis.Builder
	Scorer  *analysis.Scorer
	Ledger  *trade.Ledger
	Quotes  trade.Quoter
	Status  *status.Store

	// Guard is nil in paper mode without a broker session.
	Guard *connect.Guard

	Publisher Publisher
	Metrics   *metrics.Metrics
	Health    *metrics.HealthStatus
}

// Scheduler runs the control loop.
type Scheduler struct {
	cfg Config
	now func() time.Time

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

func New(cfg Config) *Scheduler {
	if cfg.DecisionInterval <= 0 {
		cfg.DecisionInterval = 5 * time.Minute
	}
	if cfg.MonitorInterval <= 0 {
		cfg.MonitorInterval = 30 * time.Second
	}
	return &Scheduler{cfg: cfg, now: time.Now}
}

// Start launches the two tick loops. Idempotent while running.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.started = true

	s.cfg.Status.SetRunning(true)
	s.cfg.Status.Logf(model.LogInfo, "auto trading started (%s, decision %s, monitor %s)",
		s.cfg.Symbol, s.cfg.DecisionInterval, s.cfg.MonitorInterval)
	log.Printf("[scheduler] started for %s", s.cfg.Symbol)

	s.wg.Add(2)
	go s.decisionLoop(loopCtx)
	go s.monitorLoop(loopCtx)
}

// Stop halts future ticks and waits for any in-flight tick to finish.
// A tick is never killed mid-transition.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.cancel()
	s.started = false
	s.mu.Unlock()

	s.wg.Wait()
	s.cfg.Status.SetRunning(false)
	s.cfg.Status.Logf(model.LogInfo, "auto trading stopped")
	log.Printf("[scheduler] stopped")
}

// Running reports whether the loops are active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

func (s *Scheduler) decisionLoop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.DecisionInterval)
	defer ticker.Stop()

	// First evaluation immediately rather than one full interval late.
	s.DecisionTick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.DecisionTick(ctx)
		}
	}
}

func (s *Scheduler) monitorLoop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.MonitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.MonitorTick(ctx)
		}
	}
}

// DecisionTick runs one full evaluation: market-hours gate, connection,
// snapshot, score, and possibly a trade. Runs synchronously; the loop only
// fires the next tick after this one returns.
func (s *Scheduler) DecisionTick(ctx context.Context) {
	now := s.now()

	if s.cfg.Metrics != nil {
		open := 0.0
		if markethours.IsMarketOpen(now) {
			open = 1
		}
		s.cfg.Metrics.MarketOpen.Set(open)
	}

	if s.cfg.SkipClosedMarket && !markethours.IsMarketOpen(now) {
		s.cfg.Status.Logf(model.LogInfo, "decision tick skipped: market closed (next open %s)",
			markethours.NextOpen(now).Format("Mon 15:04"))
		s.skip("closed")
		return
	}

	if s.cfg.Guard != nil {
		err := s.cfg.Guard.EnsureConnected(ctx)
		s.cfg.Status.SetConnected(s.cfg.Guard.IsConnected())
		s.setBrokerGauge()
		if err != nil {
			s.cfg.Status.Logf(model.LogError, "connection failed: %v", err)
			s.tickError()
			return
		}
	}

	buildStart := time.Now()
	snap, err := s.cfg.Builder.Build(ctx, s.cfg.Symbol, now)
	if err != nil {
		var ide *analysis.InsufficientDataError
		if errors.As(err, &ide) {
			s.cfg.Status.Logf(model.LogWarn, "skipping tick: %v", ide)
			s.skip("no_data")
			return
		}
		s.cfg.Status.Logf(model.LogError, "snapshot failed: %v", err)
		s.noteBrokerError(err)
		s.tickError()
		return
	}

	sig := s.cfg.Scorer.Score(snap)
	s.cfg.Status.SetLastAnalysis(status.Analysis{
		Symbol:   s.cfg.Symbol,
		AsOf:     snap.AsOf,
		Snapshot: snap,
		Signal:   sig,
	})
	s.cfg.Status.Logf(model.LogInfo, "analysis %s: score %d -> %s (price %.2f, RSI %.1f)",
		s.cfg.Symbol, sig.Score, sig.Direction, snap.Price, snap.RSI)
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.SignalScore.Set(float64(sig.Score))
		s.cfg.Metrics.DecisionTicks.Inc()
		s.cfg.Metrics.AnalysisDur.Observe(time.Since(buildStart).Seconds())
	}
	if s.cfg.Health != nil {
		s.cfg.Health.SetLastDecisionAt(now)
	}
	s.publishAnalysis(ctx, snap, sig)

	s.maybeTrade(ctx, sig)
}

func (s *Scheduler) maybeTrade(ctx context.Context, sig *model.Signal) {
	if !sig.Direction.Actionable() {
		return
	}
	if s.cfg.SkipLowRiskReward && sig.LowRiskReward {
		s.cfg.Status.Logf(model.LogWarn, "signal %s skipped: risk-reward %.2f below floor",
			sig.Direction, sig.RiskRewardRatio)
		return
	}

	t, err := s.cfg.Ledger.OpenTrade(ctx, sig, s.cfg.Quantity)
	if err != nil {
		var lerr *trade.LimitExceededError
		var oerr *trade.OrderError
		switch {
		case errors.As(err, &lerr):
			s.cfg.Status.Logf(model.LogWarn, "%v", lerr)
		case errors.As(err, &oerr):
			s.cfg.Status.Logf(model.LogError, "%v", oerr)
			s.noteBrokerError(err)
			if s.cfg.Metrics != nil {
				s.cfg.Metrics.OrderFailures.Inc()
			}
		default:
			s.cfg.Status.Logf(model.LogError, "open trade: %v", err)
		}
		return
	}

	s.cfg.Status.SetLastTrade(*t)
	s.cfg.Status.Logf(model.LogTrade, "opened %s %s x%d @ %.2f", t.Side, t.Symbol, t.Quantity, t.EntryPrice)
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.TradesOpened.WithLabelValues(string(t.Side)).Inc()
		s.cfg.Metrics.OpenTrades.Set(float64(len(s.cfg.Ledger.OpenTrades())))
	}
	s.publishTrade(ctx, *t)
}

// MonitorTick prices every open trade and commits any stop/target exits.
// Not gated on market hours: an open trade must be closable right up to the
// session end.
func (s *Scheduler) MonitorTick(ctx context.Context) {
	symbols := s.cfg.Ledger.OpenSymbols()
	if len(symbols) == 0 {
		return
	}

	prices := make(map[string]float64, len(symbols))
	for _, sym := range symbols {
		px, err := s.cfg.Quotes.Quote(ctx, sym)
		if err != nil {
			s.cfg.Status.Logf(model.LogWarn, "quote %s failed: %v", sym, err)
			s.noteBrokerError(err)
			continue
		}
		prices[sym] = px
	}
	if len(prices) == 0 {
		s.tickError()
		return
	}

	closed := s.cfg.Ledger.MonitorOpenTrades(ctx, prices)
	for _, t := range closed {
		s.cfg.Status.SetLastTrade(*t)
		s.cfg.Status.Logf(model.LogTrade, "closed %s %s @ %.2f pnl %.2f (%s)",
			t.Side, t.Symbol, t.ExitPrice, t.PnL, t.Status)
		if s.cfg.Metrics != nil {
			s.cfg.Metrics.TradesClosed.WithLabelValues(string(t.Status)).Inc()
		}
		s.publishTrade(ctx, *t)
	}

	if s.cfg.Metrics != nil {
		s.cfg.Metrics.MonitorTicks.Inc()
		s.cfg.Metrics.OpenTrades.Set(float64(len(s.cfg.Ledger.OpenTrades())))
		s.cfg.Metrics.PaperPnL.Set(s.cfg.Ledger.Stats().TotalPnL)
	}
}

func (s *Scheduler) publishAnalysis(ctx context.Context, snap *model.Snapshot, sig *model.Signal) {
	if s.cfg.Publisher == nil {
		return
	}
	if err := s.cfg.Publisher.PublishAnalysis(ctx, s.cfg.Symbol, snap, sig); err != nil {
		log.Printf("[scheduler] publish analysis: %v", err)
	}
}

func (s *Scheduler) publishTrade(ctx context.Context, t model.Trade) {
	if s.cfg.Publisher == nil {
		return
	}
	if err := s.cfg.Publisher.PublishTrade(ctx, t); err != nil {
		log.Printf("[scheduler] publish trade: %v", err)
	}
}

func (s *Scheduler) skip(reason string) {
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.DecisionSkips.WithLabelValues(reason).Inc()
	}
}

func (s *Scheduler) tickError() {
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.TickErrors.Inc()
	}
}

// noteBrokerError demotes the connection guard when a broker call failed on
// an expired session, so the next decision tick runs a fresh login instead
// of trusting a dead token forever.
func (s *Scheduler) noteBrokerError(err error) {
	if s.cfg.Guard == nil || !kiteconnect.IsTokenError(err) {
		return
	}
	log.Printf("[scheduler] broker session expired: %v", err)
	s.cfg.Guard.MarkDisconnected()
	s.cfg.Status.SetConnected(false)
	s.setBrokerGauge()
}

func (s *Scheduler) setBrokerGauge() {
	if s.cfg.Metrics == nil {
		return
	}
	if s.cfg.Guard != nil && s.cfg.Guard.IsConnected() {
		s.cfg.Metrics.BrokerConnected.Set(1)
	} else {
		s.cfg.Metrics.BrokerConnected.Set(0)
	}
}
