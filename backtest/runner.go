// Package backtest replays historical data through the simulator and
// reports the resulting trades and performance.
package backtest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/trader/broker"
	"github.com/rustyeddy/trader/journal"
	"github.com/rustyeddy/trader/market"
	"github.com/rustyeddy/trader/pkg/id"
	"github.com/rustyeddy/trader/portfolio"
	"github.com/rustyeddy/trader/provider"
	"github.com/rustyeddy/trader/replay"
	"github.com/rustyeddy/trader/risk"
	"github.com/rustyeddy/trader/sim"
	"github.com/rustyeddy/trader/synth"
)

// DefaultWarmupDays of history are loaded before Start so indicators are
// available from the first replayed date.
const DefaultWarmupDays = 90

// Params describes one run.
type Params struct {
	Tickers        []string
	Start          time.Time
	End            time.Time
	InitialBalance decimal.Decimal
	RiskFraction   float64
	HistoryWindow  int
	WarmupDays     int

	// Benchmark, when set, is loaded through the same history source and
	// used as market context.
	Benchmark string

	// BalanceFromLedger starts from the balance stored in Deps.Ledger
	// instead of InitialBalance.
	BalanceFromLedger bool

	// CloseAtEnd sells every open position at the last replayed close.
	CloseAtEnd bool
}

// Deps are the collaborators of a run. Decider wins over Completer when both
// are set. Ledger, Journal and Logger are optional.
type Deps struct {
	History   provider.HistorySource
	Decider   sim.Decider
	Completer synth.Completer
	Ledger    broker.Ledger
	Journal   journal.Journal
	Logger    *slog.Logger
}

func (p Params) validate() error {
	if len(p.Tickers) == 0 {
		return fmt.Errorf("backtest: at least one ticker is required")
	}
	if p.Start.IsZero() || p.End.IsZero() || p.End.Before(p.Start) {
		return fmt.Errorf("backtest: invalid period %s to %s",
			p.Start.Format(market.DateLayout), p.End.Format(market.DateLayout))
	}
	if p.InitialBalance.IsNegative() {
		return fmt.Errorf("backtest: negative initial balance %s", p.InitialBalance)
	}
	return nil
}

// RunBacktest preloads history, replays every observed date in
// [Start, End] through the simulator and reports the outcome. It stops early
// only when ctx is done, returning the partial report with the error.
func RunBacktest(ctx context.Context, params Params, deps Deps) (Report, error) {
	if err := params.validate(); err != nil {
		return Report{}, err
	}
	if deps.History == nil {
		return Report{}, fmt.Errorf("backtest: History is required")
	}
	decider := deps.Decider
	if decider == nil {
		if deps.Completer == nil {
			return Report{}, fmt.Errorf("backtest: Decider or Completer is required")
		}
		decider = synth.New(deps.Completer, deps.Logger)
	}
	gate, err := risk.NewGate(params.RiskFraction)
	if err != nil {
		return Report{}, fmt.Errorf("backtest: %w", err)
	}
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	warmup := params.WarmupDays
	if warmup <= 0 {
		warmup = DefaultWarmupDays
	}

	start, end := market.Day(params.Start), market.Day(params.End)
	runID := id.NewRun()
	log = log.With("run", runID)

	prov, err := provider.NewBacktest(ctx, deps.History, params.Tickers, start.AddDate(0, 0, -warmup), end, log)
	if err != nil {
		return Report{}, fmt.Errorf("backtest: %w", err)
	}

	var mctx provider.ContextSource
	if params.Benchmark != "" {
		bc := &provider.BenchmarkContext{Symbol: params.Benchmark, Source: deps.History, Logger: log}
		if err := bc.Preload(ctx, start, end); err != nil {
			log.Warn("benchmark unavailable", "symbol", params.Benchmark, "err", err)
		} else {
			mctx = bc
		}
	}

	balance := params.InitialBalance
	if params.BalanceFromLedger {
		balance, err = broker.OpenBalance(ctx, deps.Ledger, broker.DefaultBalance)
		if err != nil {
			return Report{}, fmt.Errorf("backtest: %w", err)
		}
	}
	p := portfolio.New(balance)
	brk := broker.New(deps.Ledger, log)

	simulator, err := sim.New(p, sim.Options{
		Provider:      prov,
		Context:       mctx,
		Decider:       decider,
		Broker:        brk,
		Gate:          gate,
		Universe:      prov.Tickers(),
		HistoryWindow: params.HistoryWindow,
		Backtest:      true,
		Journal:       deps.Journal,
		Logger:        log,
	})
	if err != nil {
		return Report{}, fmt.Errorf("backtest: %w", err)
	}

	var dateSets [][]time.Time
	for _, t := range prov.Tickers() {
		dateSets = append(dateSets, prov.Dates(t))
	}
	cal := replay.NewCalendar(dateSets...).Between(start, end)

	rep := Report{RunID: runID, Start: start, End: end, StartBalance: balance}
	log.Info("backtest start",
		"tickers", prov.Tickers(),
		"start", start.Format(market.DateLayout),
		"end", end.Format(market.DateLayout),
		"dates", len(cal),
		"balance", balance.StringFixed(2))

	cur := cal.Cursor()
	var runErr error
	for {
		date, ok := cur.Next()
		if !ok {
			break
		}
		res, err := simulator.Step(ctx, date)
		if err != nil {
			runErr = err
			log.Warn("backtest interrupted", "date", date.Format(market.DateLayout), "err", err)
			break
		}
		rep.Steps = append(rep.Steps, res)
		log.Debug("step", "result", res.String())

		if params.CloseAtEnd && cur.Remaining() == 0 {
			liquidate(ctx, brk, prov, p, date, deps.Journal, log)
		}
		rep.Equity = append(rep.Equity, EquityPoint{Date: date, Balance: p.Balance(), Equity: p.Equity(marks(prov, p, date))})
	}

	rep.Trades = p.Trades()
	rep.FinalBalance = p.Balance()
	rep.Open = p.Positions()
	if last, ok := cal.Last(); ok {
		rep.FinalEquity = p.Equity(marks(prov, p, last))
	} else {
		rep.FinalEquity = p.Balance()
	}
	rep.summarise()

	log.Info("backtest done",
		"trades", len(rep.Trades),
		"round_trips", len(rep.RoundTrips),
		"win_rate", rep.WinRate,
		"pnl", rep.TotalPnL.StringFixed(2),
		"balance", rep.FinalBalance.StringFixed(2))
	return rep, runErr
}

// marks prices held tickers at their last close on or before date.
func marks(prov *provider.Backtest, p *portfolio.Portfolio, date time.Time) map[string]float64 {
	out := make(map[string]float64)
	for _, t := range p.Tickers() {
		if b, ok := prov.Series(t, date).Last(); ok {
			out[t] = b.Close
		}
	}
	return out
}

func liquidate(ctx context.Context, brk *broker.SimulatedBroker, prov *provider.Backtest, p *portfolio.Portfolio,
	date time.Time, j journal.Journal, log *slog.Logger) {
	for _, pos := range p.Positions() {
		b, ok := prov.Series(pos.Ticker, date).Last()
		if !ok {
			log.Warn("cannot close position without a price", "ticker", pos.Ticker)
			continue
		}
		rec, err := brk.Fill(ctx, p, pos.Ticker, portfolio.Sell, pos.Quantity, decimal.NewFromFloat(b.Close), date)
		if err != nil {
			log.Warn("close at end failed", "ticker", pos.Ticker, "err", err)
			continue
		}
		if j != nil {
			if err := j.RecordTrade(rec); err != nil {
				log.Warn("journal trade failed", "err", err)
			}
		}
	}
}
