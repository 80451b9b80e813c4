package trade

import (
	"database/sql"
	"log"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"trading-agent/internal/model"
)

// Journal persists ledger transitions to SQLite for audit and restart
// review. One row per trade; the row is updated in place on close.
type Journal struct {
	db *sql.DB
}

// NewJournal opens (or creates) the SQLite trade journal.
func NewJournal(dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal=WAL&_sync=NORMAL")
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS trades (
		id               TEXT PRIMARY KEY,
		symbol           TEXT NOT NULL,
		side             TEXT NOT NULL,
		entry_price      REAL NOT NULL,
		quantity         INTEGER NOT NULL,
		stop_loss        REAL NOT NULL,
		target           REAL NOT NULL,
		opened_at        DATETIME NOT NULL,
		status           TEXT NOT NULL,
		closed_at        DATETIME,
		exit_price       REAL,
		pnl              REAL,
		order_id         TEXT NOT NULL,
		simulated        INTEGER NOT NULL,
		signal_strength  INTEGER DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(symbol);
	CREATE INDEX IF NOT EXISTS idx_trades_opened_at ON trades(opened_at);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	log.Printf("[journal] opened trade journal at %s", dbPath)
	return &Journal{db: db}, nil
}

// DB exposes the underlying handle for liveness checks.
func (j *Journal) DB() *sql.DB { return j.db }

// RecordOpen inserts a freshly opened trade.
func (j *Journal) RecordOpen(t *model.Trade) error {
	simulated := 0
	if t.Simulated {
		simulated = 1
	}
	_, err := j.db.Exec(
		`INSERT INTO trades (id, symbol, side, entry_price, quantity, stop_loss, target,
		                     opened_at, status, order_id, simulated, signal_strength)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Symbol, string(t.Side), t.EntryPrice, t.Quantity, t.StopLoss, t.Target,
		t.OpenedAt.Format(time.RFC3339), string(t.Status), t.OrderID, simulated, t.SignalStrength,
	)
	return err
}

// RecordClose updates the trade's terminal fields.
func (j *Journal) RecordClose(t *model.Trade) error {
	_, err := j.db.Exec(
		`UPDATE trades SET status = ?, closed_at = ?, exit_price = ?, pnl = ? WHERE id = ?`,
		string(t.Status), t.ClosedAt.Format(time.RFC3339), t.ExitPrice, t.PnL, t.ID,
	)
	return err
}

// Recent returns the last N journaled trades, newest first.
func (j *Journal) Recent(limit int) ([]model.Trade, error) {
	rows, err := j.db.Query(
		`SELECT id, symbol, side, entry_price, quantity, stop_loss, target,
		        opened_at, status, COALESCE(closed_at, ''), COALESCE(exit_price, 0),
		        COALESCE(pnl, 0), order_id, simulated, signal_strength
		 FROM trades ORDER BY opened_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []model.Trade
	for rows.Next() {
		var t model.Trade
		var side, status, openedAt, closedAt string
		var simulated int
		if err := rows.Scan(&t.ID, &t.Symbol, &side, &t.EntryPrice, &t.Quantity,
			&t.StopLoss, &t.Target, &openedAt, &status, &closedAt,
			&t.ExitPrice, &t.PnL, &t.OrderID, &simulated, &t.SignalStrength); err != nil {
			continue
		}
		t.Side = model.Side(side)
		t.Status = model.TradeStatus(status)
		t.Simulated = simulated == 1
		t.OpenedAt, _ = time.Parse(time.RFC3339, openedAt)
		if closedAt != "" {
			t.ClosedAt, _ = time.Parse(time.RFC3339, closedAt)
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// Close closes the journal database.
func (j *Journal) Close() error { return j.db.Close() }
