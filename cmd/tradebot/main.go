package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"trading-agent/config"
	"trading-agent/internal/analysis"
	"trading-agent/internal/broker"
	"trading-agent/internal/connect"
	"trading-agent/internal/gateway"
	"trading-agent/internal/markethours"
	"trading-agent/internal/metrics"
	"trading-agent/internal/model"
	"trading-agent/internal/notification"
	"trading-agent/internal/scheduler"
	"trading-agent/internal/status"
	redisstore "trading-agent/internal/store/redis"
	"trading-agent/internal/trade"
	"trading-agent/pkg/kiteconnect"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	log.Println("[tradebot] starting...")

	// ---- Load config from env ----
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[tradebot] %v", err)
	}
	log.Printf("[tradebot] mode=%s symbol=%q qty=%d decision=%s monitor=%s",
		cfg.Mode, cfg.Symbol, cfg.Quantity, cfg.DecisionInterval, cfg.MonitorInterval)

	// ---- Metrics & health ----
	prom := metrics.NewMetrics()
	health := metrics.NewHealthStatus()
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	metricsSrv.Start()

	// ---- Context for graceful shutdown ----
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// ---- Trade journal (SQLite, off hot path) ----
	os.MkdirAll(filepath.Dir(cfg.JournalPath), 0o755)
	journal, err := trade.NewJournal(cfg.JournalPath)
	if err != nil {
		log.Fatalf("[tradebot] journal init failed: %v", err)
	}
	defer journal.Close()

	// ---- Notifications ----
	var backends []notification.Notifier
	if cfg.TelegramBotToken != "" {
		backends = append(backends, notification.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID))
	}
	if cfg.WebhookURL != "" {
		backends = append(backends, notification.NewWebhookNotifier(cfg.WebhookURL))
	}
	notifier := notification.NewService(backends...)

	// ---- Broker / data source ----
	st := status.NewStore(cfg.Mode, status.DefaultLogCapacity)

	var (
		bars   model.BarProvider
		quotes trade.Quoter
		orders trade.OrderPlacer
		guard  *connect.Guard
	)
	if cfg.Mode == model.ModeLive {
		kc := kiteconnect.New(kiteconnect.Config{
			APIKey:     cfg.KiteAPIKey,
			APISecret:  cfg.KiteAPISecret,
			UserID:     cfg.KiteUserID,
			Password:   cfg.KitePassword,
			TOTPSecret: cfg.KiteTOTPSecret,
			TokenFile:  cfg.KiteTokenFile,
		})
		kite := broker.NewKite(kc, nil)
		kite.OnCall = func(op string, dur time.Duration) {
			prom.BrokerCallDur.WithLabelValues(op).Observe(dur.Seconds())
		}
		kite.OnLogin = func() { prom.LoginAttempts.Inc() }
		guard = connect.NewGuard(kite)
		bars, quotes, orders = kite, kite, kite
	} else {
		// Paper mode runs against the synthetic feed; no session needed.
		demo := &analysis.DemoBars{BasePrice: cfg.DemoBasePrice}
		bars, quotes = demo, demo
		st.SetConnected(true)
		health.SetBrokerConnected(true)
		prom.BrokerConnected.Set(1)
	}

	// ---- Ledger ----
	ledger := trade.NewLedger(trade.Config{
		Mode:                cfg.Mode,
		MaxTradesPerDay:     cfg.MaxTradesPerDay,
		MaxConcurrentTrades: cfg.MaxConcurrentTrades,
		Orders:              orders,
		Quotes:              quotes,
		Journal:             journal,
		Notifier:            notifier,
		Capital:             cfg.PaperCapital,
		Location:            markethours.IST,
	})

	// ---- Redis publisher (optional) ----
	var pub *redisstore.Publisher
	if cfg.RedisAddr != "" {
		pub, err = redisstore.NewPublisher(redisstore.PublisherConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			log.Printf("[tradebot] WARNING: redis init failed: %v (continuing without redis)", err)
			pub = nil
		} else {
			defer pub.Close()
		}
	}

	// ---- Periodic liveness checks ----
	if pub != nil {
		health.StartLivenessChecker(ctx, pub.Client(), journal.DB(), 10*time.Second)
	} else {
		health.StartLivenessChecker(ctx, nil, journal.DB(), 10*time.Second)
	}

	// ---- WebSocket hub & scheduler ----
	hub := gateway.NewHub()

	pubs := []scheduler.Publisher{hub}
	if pub != nil {
		pubs = append(pubs, pub)
	}

	sched := scheduler.New(scheduler.Config{
		Symbol:            cfg.Symbol,
		Quantity:          cfg.Quantity,
		DecisionInterval:  cfg.DecisionInterval,
		MonitorInterval:   cfg.MonitorInterval,
		SkipClosedMarket:  cfg.Mode == model.ModeLive,
		SkipLowRiskReward: cfg.SkipLowRiskReward,
		Builder:           analysis.NewBuilder(bars, cfg.Interval, cfg.LookbackDays),
		Scorer:            analysis.NewScorer(cfg.Score),
		Ledger:            ledger,
		Quotes:            quotes,
		Status:            st,
		Guard:             guard,
		Publisher:         fanPublisher(pubs),
		Metrics:           prom,
		Health:            health,
	})
	sched.Start(ctx)

	// ---- HTTP gateway ----
	api := gateway.NewServer(cfg.GatewayAddr, st, ledger, sched, hub)
	api.Start()

	// ---- Wait for shutdown ----
	sig := <-sigCh
	log.Printf("[tradebot] received %v, shutting down...", sig)

	sched.Stop()
	shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutCancel()
	api.Stop(shutCtx)
	metricsSrv.Stop(shutCtx)
	cancel()

	log.Println("[tradebot] shutdown complete")
}

// fanPublisher fans analysis and trade events out to every sink.
type fanPublisher []scheduler.Publisher

func (f fanPublisher) PublishAnalysis(ctx context.Context, symbol string, snap *model.Snapshot, sig *model.Signal) error {
	for _, p := range f {
		if err := p.PublishAnalysis(ctx, symbol, snap, sig); err != nil {
			log.Printf("[tradebot] publish analysis: %v", err)
		}
	}
	return nil
}

func (f fanPublisher) PublishTrade(ctx context.Context, t model.Trade) error {
	for _, p := range f {
		if err := p.PublishTrade(ctx, t); err != nil {
			log.Printf("[tradebot] publish trade: %v", err)
		}
	}
	return nil
}
