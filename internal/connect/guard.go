// Package connect owns the broker session lifecycle: it serializes login
// attempts, retries with backoff, and exposes a consistent connected flag to
// the rest of the bot.
package connect

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"trading-agent/internal/model"
)

// State is the guard's connection state.
type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "CONNECTING"
	case Connected:
		return "CONNECTED"
	default:
		return "DISCONNECTED"
	}
}

// ConnectionError is returned when a session could not be established after
// the configured number of attempts.
type ConnectionError struct {
	Attempts int
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("broker connection failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

const (
	defaultMaxAttempts  = 3
	defaultInitialDelay = 2 * time.Second
)

// Guard wraps a broker with retrying, coalescing connection management.
// Concurrent EnsureConnected calls share one login attempt; only the first
// caller drives the broker, the rest wait for its outcome.
type Guard struct {
	broker model.Broker

	maxAttempts  int
	initialDelay time.Duration

	mu      sync.Mutex
	state   State
	waiters []chan error
}

// Option configures a Guard.
type Option func(*Guard)

// WithMaxAttempts overrides the attempt limit per EnsureConnected call.
func WithMaxAttempts(n int) Option {
	return func(g *Guard) {
		if n > 0 {
			g.maxAttempts = n
		}
	}
}

// WithInitialDelay overrides the first backoff delay (doubles per retry).
func WithInitialDelay(d time.Duration) Option {
	return func(g *Guard) {
		if d > 0 {
			g.initialDelay = d
		}
	}
}

func NewGuard(broker model.Broker, opts ...Option) *Guard {
	g := &Guard{
		broker:       broker,
		maxAttempts:  defaultMaxAttempts,
		initialDelay: defaultInitialDelay,
		state:        Disconnected,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// State returns the current connection state.
func (g *Guard) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// IsConnected reports whether a session is currently established.
func (g *Guard) IsConnected() bool { return g.State() == Connected }

// EnsureConnected returns nil immediately when already connected. Otherwise
// it runs the login with retries; if an attempt is already in flight the
// caller blocks until that attempt resolves instead of starting another.
func (g *Guard) EnsureConnected(ctx context.Context) error {
	g.mu.Lock()
	switch g.state {
	case Connected:
		g.mu.Unlock()
		return nil
	case Connecting:
		ch := make(chan error, 1)
		g.waiters = append(g.waiters, ch)
		g.mu.Unlock()
		select {
		case err := <-ch:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	g.state = Connecting
	g.mu.Unlock()

	err := g.connect(ctx)

	g.mu.Lock()
	if err == nil {
		g.state = Connected
	} else {
		g.state = Disconnected
	}
	waiters := g.waiters
	g.waiters = nil
	g.mu.Unlock()

	for _, ch := range waiters {
		ch <- err
	}
	return err
}

// MarkDisconnected records a lost session (e.g. a token error on an API
// call) so the next EnsureConnected performs a fresh login.
func (g *Guard) MarkDisconnected() {
	g.mu.Lock()
	if g.state == Connected {
		g.state = Disconnected
		log.Printf("[connect] session marked disconnected")
	}
	g.mu.Unlock()
}

func (g *Guard) connect(ctx context.Context) error {
	var lastErr error
	delay := g.initialDelay
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = g.broker.Connect(ctx)
		if lastErr == nil {
			log.Printf("[connect] broker session established (attempt %d)", attempt)
			return nil
		}
		log.Printf("[connect] attempt %d/%d failed: %v", attempt, g.maxAttempts, lastErr)
		if attempt < g.maxAttempts {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
			delay *= 2
		}
	}
	return &ConnectionError{Attempts: g.maxAttempts, Err: lastErr}
}
