// Package sim runs one decision step per date: re-evaluate held positions for
// a sell, otherwise look for a single buy, and execute at most one trade.
package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/trader/broker"
	"github.com/rustyeddy/trader/journal"
	"github.com/rustyeddy/trader/market"
	"github.com/rustyeddy/trader/metrics"
	"github.com/rustyeddy/trader/portfolio"
	"github.com/rustyeddy/trader/provider"
	"github.com/rustyeddy/trader/risk"
	"github.com/rustyeddy/trader/synth"
)

// DefaultHistoryWindow is how many recent trades a prompt shows.
const DefaultHistoryWindow = 5

// Decider answers sell and buy evaluations. *synth.Synthesizer implements it.
type Decider interface {
	Decide(ctx context.Context, req synth.Request) synth.Decision
}

// Options wires a Simulator. Provider is only needed by Step.
type Options struct {
	Provider      provider.Provider
	Context       provider.ContextSource
	Decider       Decider
	Broker        *broker.SimulatedBroker
	Gate          risk.Gate
	Universe      []string
	HistoryWindow int
	Backtest      bool
	Journal       journal.Journal
	Logger        *slog.Logger
}

// Simulator owns a portfolio for the duration of a run. It is not safe for
// concurrent use.
type Simulator struct {
	opts      Options
	portfolio *portfolio.Portfolio
	log       *slog.Logger
}

func New(p *portfolio.Portfolio, opts Options) (*Simulator, error) {
	if p == nil {
		return nil, fmt.Errorf("sim: portfolio is required")
	}
	if opts.Decider == nil {
		return nil, fmt.Errorf("sim: Decider is required")
	}
	if opts.Gate.RiskFraction.Sign() <= 0 {
		return nil, fmt.Errorf("sim: risk gate is not configured")
	}
	if opts.Broker == nil {
		opts.Broker = broker.New(nil, opts.Logger)
	}
	if opts.HistoryWindow <= 0 {
		opts.HistoryWindow = DefaultHistoryWindow
	}
	if opts.Journal == nil {
		opts.Journal = journal.Nop{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	opts.Universe = append([]string(nil), opts.Universe...)
	return &Simulator{opts: opts, portfolio: p, log: opts.Logger}, nil
}

func (s *Simulator) Portfolio() *portfolio.Portfolio { return s.portfolio }

// Reject reasons reported in StepResult.RejectReason.
const (
	RejectRiskDenied        = "RiskDenied"
	RejectInsufficientFunds = "InsufficientFunds"
	RejectPositionNotFound  = "PositionNotFound"
	RejectInvalidOrder      = "InvalidOrder"
)

// StepResult describes what happened on one date.
type StepResult struct {
	Date      time.Time
	Action    synth.Kind // BUY, SELL or HOLD
	Ticker    string
	Quantity  int64
	Price     decimal.Decimal
	Rationale string

	Rejected     bool
	RejectReason string

	Decisions []synth.Decision
	Trade     *portfolio.TradeRecord
}

func (r StepResult) String() string {
	s := fmt.Sprintf("%s %s", r.Date.Format(market.DateLayout), r.Action)
	if r.Ticker != "" {
		s += " " + r.Ticker
	}
	if r.Trade != nil {
		s += fmt.Sprintf(" %d @ %s", r.Quantity, r.Price.StringFixed(2))
	}
	if r.Rejected {
		s += " (rejected: " + r.RejectReason + ")"
	}
	return s
}

// Step fetches snapshots for the universe and every held ticker on asOf and
// evaluates them. It fails only when ctx is done.
func (s *Simulator) Step(ctx context.Context, asOf time.Time) (StepResult, error) {
	if err := ctx.Err(); err != nil {
		return StepResult{}, err
	}
	if s.opts.Provider == nil {
		return StepResult{}, fmt.Errorf("sim: Provider is required")
	}
	asOf = market.Day(asOf)

	snaps := provider.Snapshots(ctx, s.opts.Provider, s.tickers(), asOf, func(ticker string, err error) {
		metrics.SnapshotMisses.Inc()
		s.log.Debug("no snapshot", "ticker", ticker, "date", asOf.Format(market.DateLayout), "err", err)
	})
	if err := ctx.Err(); err != nil {
		return StepResult{}, err
	}

	var mc market.Context
	if s.opts.Context != nil {
		mc = s.opts.Context.MarketContext(ctx, asOf)
	}

	return s.EvaluateStep(ctx, s.portfolio, snaps, mc, asOf), nil
}

func (s *Simulator) tickers() []string {
	set := make(map[string]struct{}, len(s.opts.Universe))
	for _, t := range s.opts.Universe {
		set[t] = struct{}{}
	}
	for _, t := range s.portfolio.Tickers() {
		set[t] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// EvaluateStep runs the sell-then-buy evaluation for one date on p using the
// given snapshots. At most one trade is executed.
func (s *Simulator) EvaluateStep(ctx context.Context, p *portfolio.Portfolio, snaps map[string]market.Snapshot, mc market.Context, at time.Time) StepResult {
	at = market.Day(at)
	res := StepResult{Date: at, Action: synth.Hold}
	history := p.RecentTrades(s.opts.HistoryWindow)

	// Sell evaluation, ascending ticker order; the first SELL wins.
	for _, pos := range p.Positions() {
		snap, ok := snaps[pos.Ticker]
		if !ok {
			s.log.Debug("held ticker has no snapshot", "ticker", pos.Ticker)
			continue
		}
		pos := pos
		d := s.opts.Decider.Decide(ctx, synth.Request{
			Evaluation: synth.SellEvaluation,
			Position:   &pos,
			Snapshot:   snap,
			History:    history,
			Context:    mc,
			Backtest:   s.opts.Backtest,
		})
		res.Decisions = append(res.Decisions, d)
		if d.Kind != synth.Sell {
			continue
		}
		s.execute(ctx, p, &res, portfolio.Sell, pos.Ticker, pos.Quantity, snap.Price, d.Rationale, at)
		s.record(p, snaps, at)
		return res
	}

	// Buy evaluation over universe tickers not held.
	var candidates []market.Snapshot
	for _, t := range s.universe() {
		if p.HasPosition(t) {
			continue
		}
		if snap, ok := snaps[t]; ok {
			candidates = append(candidates, snap)
		}
	}
	if len(candidates) == 0 {
		res.Rationale = "no candidates to evaluate"
		if len(res.Decisions) > 0 {
			res.Rationale = "positions held; " + res.Rationale
		}
		s.record(p, snaps, at)
		return res
	}

	d := s.opts.Decider.Decide(ctx, synth.Request{
		Evaluation: synth.BuyEvaluation,
		Candidates: candidates,
		History:    history,
		Context:    mc,
		Backtest:   s.opts.Backtest,
	})
	res.Decisions = append(res.Decisions, d)
	res.Rationale = d.Rationale

	if d.Kind != synth.Buy {
		if d.Kind == synth.Error {
			res.Rationale = "decision error: " + d.Rationale
		}
		s.record(p, snaps, at)
		return res
	}

	snap := snaps[d.Ticker]
	qty := s.size(p.Balance(), snap.Price)
	if qty <= 0 {
		res.Ticker = d.Ticker
		res.Rationale = fmt.Sprintf("BUY %s skipped: budget %s buys no shares at %.2f",
			d.Ticker, s.opts.Gate.MaxTradeValue(p.Balance()).StringFixed(2), snap.Price)
		s.record(p, snaps, at)
		return res
	}

	s.execute(ctx, p, &res, portfolio.Buy, d.Ticker, qty, snap.Price, d.Rationale, at)
	s.record(p, snaps, at)
	return res
}

func (s *Simulator) universe() []string {
	out := append([]string(nil), s.opts.Universe...)
	sort.Strings(out)
	return out
}

// size is floor(balance * riskFraction / price).
func (s *Simulator) size(balance decimal.Decimal, price float64) int64 {
	if price <= 0 {
		return 0
	}
	budget := s.opts.Gate.MaxTradeValue(balance)
	return budget.Div(decimal.NewFromFloat(price)).Floor().IntPart()
}

func (s *Simulator) execute(ctx context.Context, p *portfolio.Portfolio, res *StepResult,
	side portfolio.Side, ticker string, qty int64, price float64, rationale string, at time.Time) {

	px := decimal.NewFromFloat(price)
	res.Action = synth.Kind(side)
	res.Ticker = ticker
	res.Quantity = qty
	res.Price = px
	res.Rationale = rationale

	log := s.log.With("ticker", ticker, "side", side, "qty", qty, "price", px.StringFixed(2))

	v := s.opts.Gate.Evaluate(p, ticker, side, px.Mul(decimal.NewFromInt(qty)))
	if !v.Allowed {
		metrics.RiskDenials.WithLabelValues(string(side), v.Code).Inc()
		log.Info("trade denied", "code", v.Code, "reason", v.Reason)
		res.Rejected = true
		res.RejectReason = RejectRiskDenied
		res.Rationale = v.Reason
		return
	}

	rec, err := s.opts.Broker.Fill(ctx, p, ticker, side, qty, px, at)
	if err != nil {
		res.Rejected = true
		res.Rationale = err.Error()
		switch {
		case errors.Is(err, broker.ErrInsufficientFunds):
			res.RejectReason = RejectInsufficientFunds
		case errors.Is(err, broker.ErrPositionNotFound):
			res.RejectReason = RejectPositionNotFound
		default:
			res.RejectReason = RejectInvalidOrder
		}
		metrics.RiskDenials.WithLabelValues(string(side), res.RejectReason).Inc()
		log.Warn("fill rejected", "err", err)
		return
	}

	res.Trade = &rec
	if err := s.opts.Journal.RecordTrade(rec); err != nil {
		log.Warn("journal trade failed", "err", err)
	}
}

func (s *Simulator) record(p *portfolio.Portfolio, snaps map[string]market.Snapshot, at time.Time) {
	marks := make(map[string]float64, len(snaps))
	for t, snap := range snaps {
		marks[t] = snap.Price
	}
	err := s.opts.Journal.RecordEquity(journal.EquitySnapshot{
		Time:      at,
		Balance:   p.Balance(),
		Equity:    p.Equity(marks),
		Positions: len(p.Tickers()),
	})
	if err != nil {
		s.log.Warn("journal equity failed", "err", err)
	}
}
