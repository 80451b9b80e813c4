package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"trading-agent/internal/model"
	"trading-agent/internal/status"
	"trading-agent/internal/trade"
)

type stubController struct{ running bool }

func (c *stubController) Start(ctx context.Context) { c.running = true }
func (c *stubController) Stop()                     { c.running = false }
func (c *stubController) Running() bool             { return c.running }

func newTestServer(t *testing.T) (*Server, *status.Store, *trade.Ledger, *stubController) {
	t.Helper()
	st := status.NewStore(model.ModePaper, 50)
	ledger := trade.NewLedger(trade.Config{
		Mode:                model.ModePaper,
		MaxTradesPerDay:     5,
		MaxConcurrentTrades: 5,
	})
	ctrl := &stubController{}
	return NewServer("127.0.0.1:0", st, ledger, ctrl, NewHub()), st, ledger, ctrl
}

func doJSON(t *testing.T, s *Server, method, path string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(rec, req)

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("%s %s: bad JSON %q: %v", method, path, rec.Body.String(), err)
	}
	return rec.Code, body
}

func TestStatusEndpointShape(t *testing.T) {
	s, st, _, _ := newTestServer(t)

	code, body := doJSON(t, s, http.MethodGet, "/api/status")
	if code != http.StatusOK {
		t.Fatalf("code = %d", code)
	}
	for _, key := range []string{"is_running", "is_connected", "last_trade", "last_analysis"} {
		if _, ok := body[key]; !ok {
			t.Fatalf("missing key %q in %v", key, body)
		}
	}
	if body["last_analysis"] != nil {
		t.Fatal("fresh store should report null last_analysis")
	}

	st.SetLastAnalysis(status.Analysis{
		Symbol: "NIFTY 50",
		AsOf:   time.Now(),
		Snapshot: &model.Snapshot{
			Symbol: "NIFTY 50",
			Price:  22150.5,
			RSI:    28.4,
			MACD:   12.1,
		},
		Signal: &model.Signal{
			Direction:    model.StrongBuy,
			Score:        70,
			Contributing: []string{"RSI oversold (28.4)"},
		},
	})

	_, body = doJSON(t, s, http.MethodGet, "/api/status")
	la, ok := body["last_analysis"].(map[string]any)
	if !ok {
		t.Fatalf("last_analysis = %v", body["last_analysis"])
	}
	if la["symbol"] != "NIFTY 50" || la["current_price"] != 22150.5 {
		t.Fatalf("analysis payload = %v", la)
	}
	if la["recommendation"] != "STRONG_BUY" || la["score"] != float64(70) {
		t.Fatalf("analysis payload = %v", la)
	}
	if _, ok := la["signals"].([]any); !ok {
		t.Fatalf("signals not a list: %v", la["signals"])
	}
}

func TestAutoTradeStatusShape(t *testing.T) {
	s, _, ledger, ctrl := newTestServer(t)
	ctrl.running = true

	sig := &model.Signal{
		Symbol: "NIFTY 50", Direction: model.Buy,
		Price: 22000, StopLoss: 21880, Target: 22200,
	}
	tr, err := ledger.OpenTrade(context.Background(), sig, 10)
	if err != nil {
		t.Fatal(err)
	}
	ledger.MonitorOpenTrades(context.Background(), map[string]float64{"NIFTY 50": 22250})

	// A second, still-open trade.
	if _, err := ledger.OpenTrade(context.Background(), sig, 5); err != nil {
		t.Fatal(err)
	}

	code, body := doJSON(t, s, http.MethodGet, "/api/autotrade/status")
	if code != http.StatusOK {
		t.Fatalf("code = %d", code)
	}
	if body["is_running"] != true {
		t.Fatal("is_running false")
	}
	if body["trades_today"] != float64(2) {
		t.Fatalf("trades_today = %v", body["trades_today"])
	}
	open, ok := body["open_trades"].([]any)
	if !ok || len(open) != 1 {
		t.Fatalf("open_trades = %v", body["open_trades"])
	}

	stats, ok := body["paper_stats"].(map[string]any)
	if !ok {
		t.Fatalf("paper_stats = %v", body["paper_stats"])
	}
	wantProfit := tr.RealizedPnL(22250)
	if stats["total_profit"] != wantProfit || stats["total_pnl"] != wantProfit {
		t.Fatalf("stats = %v, want profit %v", stats, wantProfit)
	}
	if stats["total_loss"] != float64(0) {
		t.Fatalf("total_loss = %v", stats["total_loss"])
	}
}

func TestStartStopEndpoints(t *testing.T) {
	s, _, _, ctrl := newTestServer(t)

	code, body := doJSON(t, s, http.MethodPost, "/api/autotrade/start")
	if code != http.StatusOK || body["is_running"] != true || !ctrl.running {
		t.Fatalf("start: code=%d body=%v running=%v", code, body, ctrl.running)
	}

	// Idempotent start.
	_, body = doJSON(t, s, http.MethodPost, "/api/autotrade/start")
	if body["message"] != "already running" {
		t.Fatalf("second start body = %v", body)
	}

	code, body = doJSON(t, s, http.MethodPost, "/api/autotrade/stop")
	if code != http.StatusOK || body["is_running"] != false || ctrl.running {
		t.Fatalf("stop: code=%d body=%v", code, body)
	}
}

func TestManualCloseEndpoint(t *testing.T) {
	s, _, ledger, _ := newTestServer(t)

	_, body := doJSON(t, s, http.MethodPost, "/api/trades/T-nope/close")
	if body["error"] == nil {
		t.Fatalf("expected error body, got %v", body)
	}

	sig := &model.Signal{
		Symbol: "NIFTY 50", Direction: model.Buy,
		Price: 22000, StopLoss: 21880, Target: 22200,
	}
	tr, err := ledger.OpenTrade(context.Background(), sig, 10)
	if err != nil {
		t.Fatal(err)
	}

	code, body := doJSON(t, s, http.MethodPost, "/api/trades/"+tr.ID+"/close")
	if code != http.StatusOK {
		t.Fatalf("code = %d, body = %v", code, body)
	}
	if body["status"] != string(model.TradeClosedManual) {
		t.Fatalf("status = %v", body["status"])
	}
	if len(ledger.OpenTrades()) != 0 {
		t.Fatal("trade still open after manual close")
	}
}

func TestLogsEndpoint(t *testing.T) {
	s, st, _, _ := newTestServer(t)
	st.Logf(model.LogInfo, "first")
	st.Logf(model.LogTrade, "second")

	code, body := doJSON(t, s, http.MethodGet, "/api/logs")
	if code != http.StatusOK {
		t.Fatalf("code = %d", code)
	}
	logs, ok := body["logs"].([]any)
	if !ok || len(logs) != 2 {
		t.Fatalf("logs = %v", body["logs"])
	}
	first := logs[0].(map[string]any)
	if first["message"] != "first" || first["level"] != "INFO" {
		t.Fatalf("first = %v", first)
	}
}
