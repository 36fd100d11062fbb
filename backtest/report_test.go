package backtest

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/trader/portfolio"
)

func rec(ticker string, side portfolio.Side, qty int64, price float64, day int) portfolio.TradeRecord {
	return portfolio.TradeRecord{
		Ticker:    ticker,
		Side:      side,
		Quantity:  qty,
		Price:     decimal.NewFromFloat(price),
		Timestamp: day0.AddDate(0, 0, day),
	}
}

func TestMatchRoundTripsFIFO(t *testing.T) {
	t.Parallel()

	trades := []portfolio.TradeRecord{
		rec("PETR4", portfolio.Buy, 10, 100, 0),
		rec("VALE3", portfolio.Buy, 5, 60, 1),
		rec("PETR4", portfolio.Buy, 10, 110, 2),
		rec("PETR4", portfolio.Sell, 15, 120, 3),
		rec("VALE3", portfolio.Sell, 5, 50, 4),
		rec("ITUB4", portfolio.Sell, 3, 30, 5), // nothing to match
	}

	rts := MatchRoundTrips(trades)
	require.Len(t, rts, 2)

	petr := rts[0]
	assert.Equal(t, "PETR4", petr.Ticker)
	assert.Equal(t, int64(15), petr.Quantity)
	// 10*100 + 5*110 = 1550 cost against 1800 proceeds
	assert.Equal(t, "250", petr.PnL.String())
	assert.Equal(t, "103.33", petr.BuyPrice.StringFixed(2))
	assert.True(t, petr.Opened.Equal(day0))
	assert.True(t, petr.Closed.Equal(day0.AddDate(0, 0, 3)))

	vale := rts[1]
	assert.Equal(t, "-50", vale.PnL.String())
}

func TestSummariseCountsBreakEvenAsLoss(t *testing.T) {
	t.Parallel()

	r := Report{Trades: []portfolio.TradeRecord{
		rec("PETR4", portfolio.Buy, 1, 10, 0),
		rec("PETR4", portfolio.Sell, 1, 10, 1),
		rec("VALE3", portfolio.Buy, 1, 10, 2),
		rec("VALE3", portfolio.Sell, 1, 12, 3),
	}}
	r.summarise()

	assert.Equal(t, 1, r.Wins)
	assert.Equal(t, 1, r.Losses)
	assert.Equal(t, 50.0, r.WinRate)
	assert.Equal(t, "2", r.TotalPnL.String())
}

func TestPrintReport(t *testing.T) {
	t.Parallel()

	r := Report{
		RunID:        "run-1",
		Start:        day0,
		End:          day0.AddDate(0, 0, 1),
		StartBalance: decimal.NewFromInt(10000),
		FinalBalance: decimal.NewFromInt(9000),
		FinalEquity:  decimal.NewFromInt(9900),
		Trades:       []portfolio.TradeRecord{rec("PETR4", portfolio.Buy, 10, 100, 0)},
		Open:         []portfolio.Position{{Ticker: "PETR4", Quantity: 10, BuyPrice: decimal.NewFromInt(100), OpenedAt: day0}},
	}

	var buf bytes.Buffer
	PrintReport(&buf, r)
	out := buf.String()

	assert.Contains(t, out, "Run ID:        run-1")
	assert.Contains(t, out, "Start:         2024-01-02")
	assert.Contains(t, out, "End Equity:    9900.00")
	assert.Contains(t, out, "Open Positions")
	assert.Contains(t, out, "2024-01-02: BUY 10 PETR4 @ 100.00")
}

func TestReportBacktestRun(t *testing.T) {
	t.Parallel()

	r := Report{
		RunID:        "run-2",
		StartBalance: decimal.NewFromInt(10000),
		FinalBalance: decimal.NewFromInt(10100),
		Wins:         1,
		WinRate:      100,
	}
	row := r.BacktestRun([]string{"PETR4"}, 0.1)
	assert.Equal(t, "run-2", row.RunID)
	assert.Equal(t, "100", row.NetPL.String())
	assert.Equal(t, 0.1, row.RiskFraction)
	assert.WithinDuration(t, time.Now(), row.Created, time.Minute)
}
