package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rustyeddy/trader/portfolio"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

const tradeColumns = `trade_id, ticker, side, quantity, price, timestamp`

type scanner interface {
	Scan(dest ...any) error
}

func scanTrade(s scanner) (portfolio.TradeRecord, error) {
	var (
		rec  portfolio.TradeRecord
		side string
	)
	if err := s.Scan(&rec.ID, &rec.Ticker, &side, &rec.Quantity, &rec.Price, &rec.Timestamp); err != nil {
		return portfolio.TradeRecord{}, err
	}
	rec.Side = portfolio.Side(side)
	return rec, nil
}

// GetTrade returns a single trade record by ID.
func (j *SQLite) GetTrade(tradeID string) (portfolio.TradeRecord, error) {
	row := j.db.QueryRow(`SELECT `+tradeColumns+` FROM trades WHERE trade_id = ?`, tradeID)

	rec, err := scanTrade(row)
	if errors.Is(err, sql.ErrNoRows) {
		return portfolio.TradeRecord{}, fmt.Errorf("trade %q: %w", tradeID, ErrNotFound)
	}
	return rec, err
}

// ListTradesBetween returns trades with timestamp in [start, end), oldest first.
func (j *SQLite) ListTradesBetween(start, end time.Time) ([]portfolio.TradeRecord, error) {
	rows, err := j.db.Query(`
		SELECT `+tradeColumns+`
		FROM trades
		WHERE timestamp >= ? AND timestamp < ?
		ORDER BY timestamp ASC, trade_id ASC`, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []portfolio.TradeRecord
	for rows.Next() {
		rec, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListEquityBetween returns snapshots with time in [start, end), oldest first.
func (j *SQLite) ListEquityBetween(start, end time.Time) ([]EquitySnapshot, error) {
	rows, err := j.db.Query(`
		SELECT time, balance, equity, positions
		FROM equity
		WHERE time >= ? AND time < ?
		ORDER BY time ASC`, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EquitySnapshot
	for rows.Next() {
		var e EquitySnapshot
		if err := rows.Scan(&e.Time, &e.Balance, &e.Equity, &e.Positions); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetBacktestRun loads a run summary stored with RecordBacktest.
func (j *SQLite) GetBacktestRun(ctx context.Context, runID string) (BacktestRun, error) {
	var (
		r       BacktestRun
		tickers string
	)
	err := j.db.QueryRowContext(ctx, `
		SELECT run_id, created, tickers, start_date, end_date, risk_fraction, trades, round_trips,
		       wins, losses, start_balance, end_balance, net_pl, win_rate
		FROM backtest_runs WHERE run_id = ?`, runID).Scan(
		&r.RunID, &r.Created, &tickers, &r.Start, &r.End, &r.RiskFraction, &r.Trades, &r.RoundTrips,
		&r.Wins, &r.Losses, &r.StartBalance, &r.EndBalance, &r.NetPL, &r.WinRate,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return BacktestRun{}, fmt.Errorf("backtest run %q: %w", runID, ErrNotFound)
	}
	if err != nil {
		return BacktestRun{}, err
	}
	if tickers != "" {
		r.Tickers = strings.Split(tickers, ",")
	}
	return r, nil
}
