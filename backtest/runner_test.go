package backtest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/trader/broker"
	"github.com/rustyeddy/trader/market"
	"github.com/rustyeddy/trader/provider"
	"github.com/rustyeddy/trader/synth"
)

var day0 = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

type memHistory map[string]market.Series

func (m memHistory) History(_ context.Context, ticker string, start, end time.Time) (market.Series, error) {
	s, ok := m[ticker]
	if !ok {
		return nil, fmt.Errorf("%s: %w", ticker, provider.ErrNotFound)
	}
	var out market.Series
	for _, b := range s {
		if !b.Date.Before(start) && !b.Date.After(end) {
			out = append(out, b)
		}
	}
	return out, nil
}

func closes(start time.Time, cs ...float64) market.Series {
	s := make(market.Series, len(cs))
	for i, c := range cs {
		s[i] = market.Bar{Date: start.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c}
	}
	return s
}

// buyThenSell buys the first candidate when flat and sells whatever is held.
type buyThenSell struct{ calls int }

func (b *buyThenSell) Decide(_ context.Context, req synth.Request) synth.Decision {
	b.calls++
	if req.Evaluation == synth.SellEvaluation {
		return synth.Decision{Kind: synth.Sell, Ticker: req.Position.Ticker}
	}
	return synth.Decision{Kind: synth.Buy, Ticker: req.Candidates[0].Ticker}
}

func TestRunBacktestTwoDayRoundTrip(t *testing.T) {
	t.Parallel()

	hist := memHistory{"PETR4": closes(day0, 100, 110)}
	rep, err := RunBacktest(context.Background(), Params{
		Tickers:        []string{"PETR4"},
		Start:          day0,
		End:            day0.AddDate(0, 0, 1),
		InitialBalance: decimal.NewFromInt(10000),
		RiskFraction:   0.1,
	}, Deps{History: hist, Decider: &buyThenSell{}})
	require.NoError(t, err)

	require.Len(t, rep.Trades, 2)
	assert.Equal(t, int64(10), rep.Trades[0].Quantity)
	require.Len(t, rep.RoundTrips, 1)
	assert.Equal(t, "100", rep.TotalPnL.String())
	assert.Equal(t, "10100", rep.FinalBalance.String())
	assert.Equal(t, 1, rep.Wins)
	assert.Equal(t, 0, rep.Losses)
	assert.Equal(t, 100.0, rep.WinRate)
	assert.Len(t, rep.Steps, 2)
	assert.Len(t, rep.Equity, 2)
	assert.NotEmpty(t, rep.RunID)
	assert.Empty(t, rep.Open)
}

func TestRunBacktestZeroBalance(t *testing.T) {
	t.Parallel()

	hist := memHistory{"PETR4": closes(day0, 100, 110)}
	rep, err := RunBacktest(context.Background(), Params{
		Tickers:      []string{"PETR4"},
		Start:        day0,
		End:          day0.AddDate(0, 0, 1),
		RiskFraction: 0.1,
	}, Deps{History: hist, Decider: &buyThenSell{}})
	require.NoError(t, err)

	assert.True(t, rep.StartBalance.IsZero())
	assert.True(t, rep.FinalBalance.IsZero())
	assert.Empty(t, rep.Trades)
	require.Len(t, rep.Steps, 2)
	assert.Contains(t, rep.Steps[0].Rationale, "buys no shares")
}

func TestRunBacktestBalanceFromLedger(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	l := broker.NewFileLedger(filepath.Join(t.TempDir(), "balance.json"))
	require.NoError(t, l.Store(ctx, decimal.NewFromInt(2500)))

	hist := memHistory{"PETR4": closes(day0, 100)}
	rep, err := RunBacktest(ctx, Params{
		Tickers:           []string{"PETR4"},
		Start:             day0,
		End:               day0,
		InitialBalance:    decimal.NewFromInt(10000),
		BalanceFromLedger: true,
		RiskFraction:      0.1,
	}, Deps{History: hist, Decider: &buyThenSell{}, Ledger: l})
	require.NoError(t, err)

	assert.Equal(t, "2500", rep.StartBalance.String())
}

func TestRunBacktestClampsCalendar(t *testing.T) {
	t.Parallel()

	// PETR4 has no history and is skipped.
	hist := memHistory{"VALE3": closes(day0.AddDate(0, 0, -5), 50, 51, 52, 53, 54, 55, 56, 57, 58, 59)}
	d := &buyThenSell{}
	rep, err := RunBacktest(context.Background(), Params{
		Tickers:        []string{"PETR4", "VALE3"},
		Start:          day0,
		End:            day0.AddDate(0, 0, 2),
		InitialBalance: decimal.NewFromInt(1000),
		RiskFraction:   0.5,
	}, Deps{History: hist, Decider: d})
	require.NoError(t, err)

	require.Len(t, rep.Steps, 3)
	assert.Equal(t, 3, d.calls)
	assert.True(t, rep.Steps[0].Date.Equal(day0))
	assert.True(t, rep.Steps[2].Date.Equal(day0.AddDate(0, 0, 2)))
	for i := 1; i < len(rep.Steps); i++ {
		assert.True(t, rep.Steps[i-1].Date.Before(rep.Steps[i].Date))
	}
}

func TestRunBacktestOpenPositionsAndCloseAtEnd(t *testing.T) {
	t.Parallel()

	hist := memHistory{"PETR4": closes(day0, 100, 90)}
	holdAfterBuy := synth.CompleterFunc(func(_ context.Context, prompt string) (string, error) {
		if strings.Contains(prompt, "Position review") {
			return `{"decision":"HOLD","rationale":"patience"}`, nil
		}
		return "```json\n{\"decision\":\"BUY\",\"ticker\":\"PETR4\",\"rationale\":\"cheap\"}\n```", nil
	})

	params := Params{
		Tickers:        []string{"PETR4"},
		Start:          day0,
		End:            day0.AddDate(0, 0, 1),
		InitialBalance: decimal.NewFromInt(10000),
		RiskFraction:   0.1,
	}

	rep, err := RunBacktest(context.Background(), params, Deps{History: hist, Completer: holdAfterBuy})
	require.NoError(t, err)
	assert.Len(t, rep.Trades, 1)
	assert.Empty(t, rep.RoundTrips)
	assert.Equal(t, 0.0, rep.WinRate)
	require.Len(t, rep.Open, 1)
	assert.Equal(t, "9000", rep.FinalBalance.String())
	assert.Equal(t, "9900", rep.FinalEquity.String())

	params.CloseAtEnd = true
	rep, err = RunBacktest(context.Background(), params, Deps{History: hist, Completer: holdAfterBuy})
	require.NoError(t, err)
	assert.Len(t, rep.Trades, 2)
	assert.Empty(t, rep.Open)
	assert.Equal(t, "-100", rep.TotalPnL.String())
	assert.Equal(t, 1, rep.Losses)
	assert.Equal(t, "9900", rep.FinalBalance.String())
}

func TestRunBacktestCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	d := &cancelling{cancel: cancel}

	hist := memHistory{"PETR4": closes(day0, 100, 101, 102, 103)}
	rep, err := RunBacktest(ctx, Params{
		Tickers:        []string{"PETR4"},
		Start:          day0,
		End:            day0.AddDate(0, 0, 3),
		InitialBalance: decimal.NewFromInt(10000),
		RiskFraction:   0.1,
	}, Deps{History: hist, Decider: d})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, rep.Steps, 1)
}

// cancelling holds and cancels the run on its first call.
type cancelling struct{ cancel func() }

func (c *cancelling) Decide(context.Context, synth.Request) synth.Decision {
	c.cancel()
	return synth.Decision{Kind: synth.Hold}
}

func TestRunBacktestValidation(t *testing.T) {
	t.Parallel()

	hist := memHistory{"PETR4": closes(day0, 100)}
	good := Params{Tickers: []string{"PETR4"}, Start: day0, End: day0, InitialBalance: decimal.NewFromInt(1), RiskFraction: 0.1}

	tests := []struct {
		name   string
		params func(Params) Params
		deps   Deps
	}{
		{"no tickers", func(p Params) Params { p.Tickers = nil; return p }, Deps{History: hist, Decider: &buyThenSell{}}},
		{"inverted period", func(p Params) Params { p.End = day0.AddDate(0, 0, -1); return p }, Deps{History: hist, Decider: &buyThenSell{}}},
		{"bad risk", func(p Params) Params { p.RiskFraction = 1.5; return p }, Deps{History: hist, Decider: &buyThenSell{}}},
		{"no history", func(p Params) Params { return p }, Deps{Decider: &buyThenSell{}}},
		{"no decider", func(p Params) Params { return p }, Deps{History: hist}},
		{"no data", func(p Params) Params { p.Tickers = []string{"XXXX3"}; return p }, Deps{History: hist, Decider: &buyThenSell{}}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := RunBacktest(context.Background(), tt.params(good), tt.deps)
			assert.Error(t, err)
		})
	}
}
