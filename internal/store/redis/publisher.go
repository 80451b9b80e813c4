// Package redis publishes analysis results and trade events to Redis so
// dashboards and sibling processes can consume them without polling the
// bot's HTTP API. All writes go through a circuit breaker: when Redis is
// down the bot keeps trading and the publisher drops events until the
// breaker half-opens.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"trading-agent/internal/model"
)

const (
	latestAnalysisKey   = "tradebot:analysis:latest:%s" // per symbol
	analysisChannel     = "tradebot:analysis"
	tradeChannel        = "tradebot:trades"
	defaultLatestTTL    = 30 * time.Minute
	breakerMaxFailures  = 5
	breakerResetTimeout = 10 * time.Second
)

// PublisherConfig configures the Redis publisher.
type PublisherConfig struct {
	Addr     string // e.g. "localhost:6379"
	Password string
	DB       int
}

// Publisher writes latest-analysis keys and fans events out over pub/sub.
type Publisher struct {
	client  *goredis.Client
	breaker *CircuitBreaker
}

// Client returns the underlying Redis client for health checks.
func (p *Publisher) Client() *goredis.Client { return p.client }

// NewPublisher connects to Redis and pings it once.
func NewPublisher(cfg PublisherConfig) (*Publisher, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	breaker := NewCircuitBreaker(breakerMaxFailures, breakerResetTimeout)
	breaker.OnStateChange = func(from, to State) {
		log.Printf("[redis] circuit breaker %s -> %s", from, to)
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return &Publisher{client: client, breaker: breaker}, nil
}

// analysisEvent is the published shape of one decision-tick outcome.
type analysisEvent struct {
	Symbol   string          `json:"symbol"`
	AsOf     time.Time       `json:"as_of"`
	Snapshot *model.Snapshot `json:"snapshot"`
	Signal   *model.Signal   `json:"signal"`
}

// PublishAnalysis stores the latest analysis for the symbol and announces it
// on the analysis channel. Failures trip the breaker and are returned for
// logging only; the caller never retries.
func (p *Publisher) PublishAnalysis(ctx context.Context, symbol string, snap *model.Snapshot, sig *model.Signal) error {
	payload, err := json.Marshal(analysisEvent{
		Symbol:   symbol,
		AsOf:     snap.AsOf,
		Snapshot: snap,
		Signal:   sig,
	})
	if err != nil {
		return err
	}

	return p.breaker.Execute(func() error {
		key := fmt.Sprintf(latestAnalysisKey, symbol)
		if err := p.client.Set(ctx, key, payload, defaultLatestTTL).Err(); err != nil {
			return err
		}
		return p.client.Publish(ctx, analysisChannel, payload).Err()
	})
}

// PublishTrade announces a trade transition (open or close) on the trade
// channel.
func (p *Publisher) PublishTrade(ctx context.Context, t model.Trade) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return p.breaker.Execute(func() error {
		return p.client.Publish(ctx, tradeChannel, payload).Err()
	})
}

// Close releases the Redis connection.
func (p *Publisher) Close() error { return p.client.Close() }
