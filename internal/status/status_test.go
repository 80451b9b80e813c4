package status

import (
	"sync"
	"testing"
	"time"

	"trading-agent/internal/model"
)

func TestFlagsAndMode(t *testing.T) {
	s := NewStore(model.ModePaper, 10)
	if s.IsRunning() || s.IsConnected() {
		t.Fatal("fresh store reports running/connected")
	}
	if s.Mode() != model.ModePaper {
		t.Fatalf("mode = %s", s.Mode())
	}

	s.SetRunning(true)
	s.SetConnected(true)
	if !s.IsRunning() || !s.IsConnected() {
		t.Fatal("flags not set")
	}
}

func TestLastTradeAndAnalysisCopies(t *testing.T) {
	s := NewStore(model.ModePaper, 10)
	if _, ok := s.LastTrade(); ok {
		t.Fatal("fresh store has a last trade")
	}
	if _, ok := s.LastAnalysis(); ok {
		t.Fatal("fresh store has a last analysis")
	}

	tr := model.Trade{ID: "T-1", Symbol: "NIFTY 50", Status: model.TradeOpen}
	s.SetLastTrade(tr)
	got, ok := s.LastTrade()
	if !ok || got.ID != "T-1" {
		t.Fatalf("last trade = %+v", got)
	}
	got.Symbol = "mutated"
	if again, _ := s.LastTrade(); again.Symbol != "NIFTY 50" {
		t.Fatal("LastTrade returned aliased storage")
	}

	s.SetLastAnalysis(Analysis{
		Symbol: "NIFTY 50",
		AsOf:   time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC),
		Signal: &model.Signal{Direction: model.Buy, Score: 25},
	})
	a, ok := s.LastAnalysis()
	if !ok || a.Signal.Direction != model.Buy {
		t.Fatalf("last analysis = %+v", a)
	}
}

func TestLogCapAndOrder(t *testing.T) {
	s := NewStore(model.ModePaper, 4)
	for i := 0; i < 10; i++ {
		s.Logf(model.LogInfo, "line %d", i)
	}
	logs := s.Logs()
	if len(logs) != 4 {
		t.Fatalf("len = %d, want 4", len(logs))
	}
	if logs[0].Message != "line 6" || logs[3].Message != "line 9" {
		t.Fatalf("logs = %q .. %q", logs[0].Message, logs[3].Message)
	}
}

func TestConcurrentReadersAndWriters(t *testing.T) {
	s := NewStore(model.ModeLive, 64)
	var wg sync.WaitGroup

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				s.SetRunning(j%2 == 0)
				s.Logf(model.LogInfo, "writer %d line %d", i, j)
				s.SetLastTrade(model.Trade{ID: "T", Status: model.TradeOpen})
			}
		}(i)
	}
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				s.IsRunning()
				s.Logs()
				s.LastTrade()
			}
		}()
	}
	wg.Wait()

	if got := len(s.Logs()); got != 64 {
		t.Fatalf("log length = %d, want 64", got)
	}
}
