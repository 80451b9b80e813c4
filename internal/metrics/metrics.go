// Package metrics exposes Prometheus metrics and a JSON health endpoint for
// the trading agent.
package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the trading agent.
type Metrics struct {
	DecisionTicks   prometheus.Counter
	DecisionSkips   *prometheus.CounterVec // labels: reason=closed|no_data|error
	MonitorTicks    prometheus.Counter
	TickErrors      prometheus.Counter
	TradesOpened    *prometheus.CounterVec // labels: side
	TradesClosed    *prometheus.CounterVec // labels: status
	SignalScore     prometheus.Gauge
	OpenTrades      prometheus.Gauge
	PaperPnL        prometheus.Gauge
	BrokerConnected prometheus.Gauge
	BrokerCallDur   *prometheus.HistogramVec // labels: op
	LoginAttempts   prometheus.Counter
	OrderFailures   prometheus.Counter
	AnalysisDur     prometheus.Histogram
	MarketOpen      prometheus.Gauge
}

// NewMetrics registers and returns all Prometheus metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		DecisionTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tradebot_decision_ticks_total",
			Help: "Decision ticks that ran to completion",
		}),
		DecisionSkips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tradebot_decision_skips_total",
			Help: "Decision ticks skipped (by reason)",
		}, []string{"reason"}),
		MonitorTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tradebot_monitor_ticks_total",
			Help: "Monitoring ticks that ran to completion",
		}),
		TickErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tradebot_tick_errors_total",
			Help: "Ticks aborted by an error",
		}),
		TradesOpened: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tradebot_trades_opened_total",
			Help: "Trades opened (by side)",
		}, []string{"side"}),
		TradesClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tradebot_trades_closed_total",
			Help: "Trades closed (by terminal status)",
		}, []string{"status"}),
		SignalScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tradebot_last_signal_score",
			Help: "Score of the most recent signal",
		}),
		OpenTrades: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tradebot_open_trades",
			Help: "Currently open trades",
		}),
		PaperPnL: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tradebot_paper_pnl",
			Help: "Realized paper trading P&L",
		}),
		BrokerConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tradebot_broker_connected",
			Help: "Broker session state (0=disconnected, 1=connected)",
		}),
		BrokerCallDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tradebot_broker_call_duration_seconds",
			Help:    "Broker API call latency (by operation)",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		LoginAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tradebot_login_attempts_total",
			Help: "Broker login attempts",
		}),
		OrderFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tradebot_order_failures_total",
			Help: "Orders rejected by the broker",
		}),
		AnalysisDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tradebot_analysis_duration_seconds",
			Help:    "Snapshot build plus scoring latency per decision tick",
			Buckets: prometheus.DefBuckets,
		}),
		MarketOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tradebot_market_open",
			Help: "NSE market state (0=closed, 1=open)",
		}),
	}

	prometheus.MustRegister(
		m.DecisionTicks, m.DecisionSkips, m.MonitorTicks, m.TickErrors,
		m.TradesOpened, m.TradesClosed, m.SignalScore, m.OpenTrades,
		m.PaperPnL, m.BrokerConnected, m.BrokerCallDur,
		m.LoginAttempts, m.OrderFailures, m.AnalysisDur, m.MarketOpen,
	)
	return m
}

// HealthStatus aggregates liveness information for /healthz.
type HealthStatus struct {
	mu sync.RWMutex

	BrokerConnected bool
	LastDecisionAt  time.Time
	SQLiteOK        bool
	RedisConnected  bool

	RedisLatencyMs  float64
	SQLiteLatencyMs float64
	LastCheckAt     time.Time
	StartedAt       time.Time
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{StartedAt: time.Now(), SQLiteOK: true}
}

func (h *HealthStatus) SetBrokerConnected(v bool) {
	h.mu.Lock()
	h.BrokerConnected = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetLastDecisionAt(t time.Time) {
	h.mu.Lock()
	h.LastDecisionAt = t
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckSQLite runs a trivial query and records latency + health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks until ctx ends.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, sqlDB *sql.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				checkCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				if rdb != nil {
					h.CheckRedis(checkCtx, rdb)
				}
				if sqlDB != nil {
					h.CheckSQLite(checkCtx, sqlDB)
				}
				cancel()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overallStatus := "healthy"
	httpCode := http.StatusOK
	if !h.BrokerConnected || !h.SQLiteOK {
		overallStatus = "degraded"
		httpCode = http.StatusServiceUnavailable
	}

	decisionAge := ""
	if !h.LastDecisionAt.IsZero() {
		decisionAge = time.Since(h.LastDecisionAt).Round(time.Millisecond).String()
	}

	status := struct {
		Status          string  `json:"status"`
		Uptime          string  `json:"uptime"`
		BrokerConnected bool    `json:"broker_connected"`
		LastDecisionAt  string  `json:"last_decision_at"`
		DecisionAge     string  `json:"decision_age"`
		SQLiteOK        bool    `json:"sqlite_ok"`
		SQLiteLatencyMs float64 `json:"sqlite_latency_ms"`
		RedisConnected  bool    `json:"redis_connected"`
		RedisLatencyMs  float64 `json:"redis_latency_ms"`
		LastCheckAt     string  `json:"last_check_at"`
	}{
		Status:          overallStatus,
		Uptime:          time.Since(h.StartedAt).Round(time.Second).String(),
		BrokerConnected: h.BrokerConnected,
		LastDecisionAt:  h.LastDecisionAt.Format(time.RFC3339),
		DecisionAge:     decisionAge,
		SQLiteOK:        h.SQLiteOK,
		SQLiteLatencyMs: h.SQLiteLatencyMs,
		RedisConnected:  h.RedisConnected,
		RedisLatencyMs:  h.RedisLatencyMs,
		LastCheckAt:     h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	addr string
	srv  *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		addr: addr,
		srv:  &http.Server{Addr: addr, Handler: mux},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
