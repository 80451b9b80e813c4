// Package status is the process-wide bot state store: running/connected
// flags, the last trade and analysis, and the bounded activity log. It holds
// accessors only; no business logic. Writers are the scheduler, ledger and
// connection guard; readers are the HTTP handlers polling it, so a
// reader-friendly lock guards everything.
package status

import (
	"fmt"
	"sync"
	"time"

	"trading-agent/internal/model"
	"trading-agent/internal/ringbuf"
)

// DefaultLogCapacity matches the dashboard's 50-line activity feed.
const DefaultLogCapacity = 50

// Analysis is the stored outcome of the most recent decision tick.
type Analysis struct {
	Symbol   string          `json:"symbol"`
	AsOf     time.Time       `json:"as_of"`
	Snapshot *model.Snapshot `json:"snapshot"`
	Signal   *model.Signal   `json:"signal"`
}

// Store is the single status instance shared by all workers.
type Store struct {
	mu           sync.RWMutex
	running      bool
	connected    bool
	mode         model.Mode
	lastTrade    *model.Trade
	lastAnalysis *Analysis
	logs         *ringbuf.Ring
}

func NewStore(mode model.Mode, logCapacity int) *Store {
	if logCapacity <= 0 {
		logCapacity = DefaultLogCapacity
	}
	return &Store{
		mode: mode,
		logs: ringbuf.New(logCapacity),
	}
}

func (s *Store) SetRunning(v bool) {
	s.mu.Lock()
	s.running = v
	s.mu.Unlock()
}

func (s *Store) SetConnected(v bool) {
	s.mu.Lock()
	s.connected = v
	s.mu.Unlock()
}

func (s *Store) SetLastTrade(t model.Trade) {
	s.mu.Lock()
	s.lastTrade = &t
	s.mu.Unlock()
}

func (s *Store) SetLastAnalysis(a Analysis) {
	s.mu.Lock()
	s.lastAnalysis = &a
	s.mu.Unlock()
}

func (s *Store) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func (s *Store) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

func (s *Store) Mode() model.Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// LastTrade returns a copy of the most recent trade, or false if none yet.
func (s *Store) LastTrade() (model.Trade, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastTrade == nil {
		return model.Trade{}, false
	}
	return *s.lastTrade, true
}

// LastAnalysis returns a copy of the most recent analysis, or false if no
// decision tick has completed yet.
func (s *Store) LastAnalysis() (Analysis, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastAnalysis == nil {
		return Analysis{}, false
	}
	return *s.lastAnalysis, true
}

// Logf appends one formatted entry to the activity log, evicting the oldest
// entry when full.
func (s *Store) Logf(level model.LogLevel, format string, args ...any) {
	e := model.LogEntry{
		TS:      time.Now(),
		Level:   level,
		Message: fmt.Sprintf(format, args...),
	}
	s.mu.Lock()
	s.logs.Push(e)
	s.mu.Unlock()
}

// Logs returns the retained activity log, oldest first.
func (s *Store) Logs() []model.LogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.logs.Snapshot()
}
