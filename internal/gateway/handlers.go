package gateway

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"trading-agent/internal/markethours"
	"trading-agent/internal/model"
	"trading-agent/internal/status"
	"trading-agent/internal/trade"
)

// Controller is the slice of the scheduler the API can drive.
type Controller interface {
	Start(ctx context.Context)
	Stop()
	Running() bool
}

// Server serves the REST API and the WebSocket feed.
type Server struct {
	status     *status.Store
	ledger     *trade.Ledger
	controller Controller
	hub        *Hub

	srv      *http.Server
	upgrader websocket.Upgrader
}

func NewServer(addr string, st *status.Store, ledger *trade.Ledger, controller Controller, hub *Hub) *Server {
	s := &Server{
		status:     st,
		ledger:     ledger,
		controller: controller,
		hub:        hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Dashboard is served from a different origin in development.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/analysis", s.handleAnalysis)
	mux.HandleFunc("GET /api/trades", s.handleTrades)
	mux.HandleFunc("POST /api/trades/{id}/close", s.handleCloseTrade)
	mux.HandleFunc("GET /api/logs", s.handleLogs)
	mux.HandleFunc("GET /api/market", s.handleMarket)
	mux.HandleFunc("GET /api/autotrade/status", s.handleAutoTradeStatus)
	mux.HandleFunc("POST /api/autotrade/start", s.handleStart)
	mux.HandleFunc("POST /api/autotrade/stop", s.handleStop)
	mux.HandleFunc("GET /ws", s.handleWS)

	s.srv = &http.Server{Addr: addr, Handler: mux}
	return s
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[gateway] listening on %s", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[gateway] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}

// analysisPayload is the wire shape of the last analysis. Field names are a
// contract with the dashboard.
type analysisPayload struct {
	Symbol         string    `json:"symbol"`
	CurrentPrice   float64   `json:"current_price"`
	RSI            float64   `json:"rsi"`
	MACD           float64   `json:"macd"`
	Score          int       `json:"score"`
	Signals        []string  `json:"signals"`
	Recommendation string    `json:"recommendation"`
	AsOf           time.Time `json:"as_of"`
}

func analysisToPayload(a status.Analysis) *analysisPayload {
	p := &analysisPayload{
		Symbol: a.Symbol,
		AsOf:   a.AsOf,
	}
	if a.Snapshot != nil {
		p.CurrentPrice = a.Snapshot.Price
		p.RSI = a.Snapshot.RSI
		p.MACD = a.Snapshot.MACD
	}
	if a.Signal != nil {
		p.Score = a.Signal.Score
		p.Signals = a.Signal.Contributing
		p.Recommendation = string(a.Signal.Direction)
	}
	if p.Signals == nil {
		p.Signals = []string{}
	}
	return p
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"is_running":    s.status.IsRunning(),
		"is_connected":  s.status.IsConnected(),
		"mode":          s.status.Mode(),
		"last_trade":    nil,
		"last_analysis": nil,
	}
	if t, ok := s.status.LastTrade(); ok {
		resp["last_trade"] = t
	}
	if a, ok := s.status.LastAnalysis(); ok {
		resp["last_analysis"] = analysisToPayload(a)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	a, ok := s.status.LastAnalysis()
	if !ok {
		writeError(w, http.StatusNotFound, "no analysis yet")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"summary":  analysisToPayload(a),
		"snapshot": a.Snapshot,
		"signal":   a.Signal,
	})
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	trades := s.ledger.Trades(limit)
	if trades == nil {
		trades = []model.Trade{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"trades": trades})
}

func (s *Server) handleCloseTrade(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if strings.TrimSpace(id) == "" {
		writeError(w, http.StatusBadRequest, "missing trade id")
		return
	}

	t, err := s.ledger.CloseManually(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	s.status.SetLastTrade(*t)
	s.status.Logf(model.LogTrade, "manually closed %s @ %.2f pnl %.2f", t.Symbol, t.ExitPrice, t.PnL)
	s.hub.Broadcast("trade", t)
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	logs := s.status.Logs()
	if logs == nil {
		logs = []model.LogEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": logs})
}

func (s *Server) handleMarket(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	writeJSON(w, http.StatusOK, map[string]any{
		"is_open":     markethours.IsMarketOpen(now),
		"status":      markethours.StatusString(now),
		"next_open":   markethours.NextOpen(now),
		"until_close": markethours.TimeUntilClose(now).String(),
	})
}

func (s *Server) handleAutoTradeStatus(w http.ResponseWriter, r *http.Request) {
	open := s.ledger.OpenTrades()
	if open == nil {
		open = []model.Trade{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"is_running":   s.controller.Running(),
		"trades_today": s.ledger.TradesToday(),
		"open_trades":  open,
		"paper_stats":  s.ledger.Stats(),
	})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if s.controller.Running() {
		writeJSON(w, http.StatusOK, map[string]any{"is_running": true, "message": "already running"})
		return
	}
	// Detach from the request context: the loops outlive this request.
	s.controller.Start(context.Background())
	s.hub.Broadcast("status", map[string]bool{"is_running": true})
	writeJSON(w, http.StatusOK, map[string]any{"is_running": true})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if !s.controller.Running() {
		writeJSON(w, http.StatusOK, map[string]any{"is_running": false, "message": "not running"})
		return
	}
	s.controller.Stop()
	s.hub.Broadcast("status", map[string]bool{"is_running": false})
	writeJSON(w, http.StatusOK, map[string]any{"is_running": false})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[gateway] ws upgrade: %v", err)
		return
	}
	c := newClient(s.hub, conn)
	s.hub.AddClient(c)
	go c.writePump()
	go c.readPump()
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
