package journal

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rustyeddy/trader/portfolio"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordTrade(t portfolio.TradeRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO trades
		(trade_id, ticker, side, quantity, price, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.Ticker, string(t.Side), t.Quantity, t.Price, t.Timestamp.UTC(),
	)
	return err
}

func (j *SQLite) RecordEquity(e EquitySnapshot) error {
	_, err := j.db.Exec(`
		INSERT INTO equity
		(time, balance, equity, positions)
		VALUES (?, ?, ?, ?)`,
		e.Time.UTC(), e.Balance, e.Equity, e.Positions,
	)
	return err
}

// RecordBacktest stores a run summary, replacing any row with the same id.
func (j *SQLite) RecordBacktest(ctx context.Context, r BacktestRun) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO backtest_runs
		(run_id, created, tickers, start_date, end_date, risk_fraction, trades, round_trips,
		 wins, losses, start_balance, end_balance, net_pl, win_rate)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Created.UTC(), strings.Join(r.Tickers, ","), r.Start.UTC(), r.End.UTC(),
		r.RiskFraction, r.Trades, r.RoundTrips, r.Wins, r.Losses,
		r.StartBalance, r.EndBalance, r.NetPL, r.WinRate,
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
