// cmd/analyze runs one analysis pass over the synthetic bar feed and prints
// the snapshot and signal as JSON. Useful for tuning scoring weights without
// a broker session or a running bot.
//
// Usage:
//
//	go run ./cmd/analyze --symbol="NIFTY 50" --interval=5minute --days=5
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"trading-agent/internal/analysis"
)

func main() {
	log.SetFlags(0)

	symbol := flag.String("symbol", "NIFTY 50", "Trading symbol to analyze")
	interval := flag.String("interval", "5minute", "Bar interval")
	days := flag.Int("days", 5, "Lookback window in days")
	base := flag.Float64("base", 22000, "Base price for the synthetic feed")
	flag.Parse()

	demo := &analysis.DemoBars{BasePrice: *base}
	b := analysis.NewBuilder(demo, *interval, *days)
	snap, err := b.Build(context.Background(), *symbol, time.Now())
	if err != nil {
		log.Fatalf("[analyze] %v", err)
	}

	scorer := analysis.NewScorer(analysis.DefaultScoreConfig())
	sig := scorer.Score(snap)

	out := map[string]any{
		"snapshot": snap,
		"signal":   sig,
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Fatalf("[analyze] encode: %v", err)
	}
}
