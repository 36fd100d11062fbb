package provider

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/rustyeddy/trader/indicators"
	"github.com/rustyeddy/trader/market"
)

// Backtest serves snapshots from history loaded once at construction.
// Indicators are computed only on bars up to the requested date.
type Backtest struct {
	series map[string]market.Series
	log    *slog.Logger
}

// NewBacktest preloads [start, end] for each ticker. Tickers without data are
// logged and skipped; having no data at all is an error.
func NewBacktest(ctx context.Context, src HistorySource, tickers []string, start, end time.Time, log *slog.Logger) (*Backtest, error) {
	if src == nil {
		return nil, fmt.Errorf("backtest provider: history source is required")
	}
	if log == nil {
		log = slog.Default()
	}

	b := &Backtest{series: make(map[string]market.Series, len(tickers)), log: log}
	for _, t := range tickers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s, err := src.History(ctx, t, start, end)
		if err != nil {
			log.Warn("history unavailable", "ticker", t, "err", err)
			continue
		}
		s = market.NewSeries(s)
		if len(s) == 0 {
			log.Warn("no history", "ticker", t)
			continue
		}
		b.series[t] = s
		log.Debug("history loaded", "ticker", t, "bars", len(s))
	}
	if len(b.series) == 0 {
		return nil, fmt.Errorf("backtest provider: no history for %v: %w", tickers, ErrNotFound)
	}
	return b, nil
}

// NewBacktestFromSeries builds a provider over already loaded history.
func NewBacktestFromSeries(series map[string]market.Series) *Backtest {
	b := &Backtest{series: make(map[string]market.Series, len(series)), log: slog.Default()}
	for t, s := range series {
		if s = market.NewSeries(s); len(s) > 0 {
			b.series[t] = s
		}
	}
	return b
}

// Tickers lists the tickers that have history, sorted.
func (b *Backtest) Tickers() []string {
	out := make([]string, 0, len(b.series))
	for t := range b.series {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Dates returns the observation dates of ticker.
func (b *Backtest) Dates(ticker string) []time.Time {
	return b.series[ticker].Dates()
}

// Series returns ticker's history up to and including asOf.
func (b *Backtest) Series(ticker string, asOf time.Time) market.Series {
	return b.series[ticker].Until(asOf)
}

func (b *Backtest) Fetch(_ context.Context, ticker string, asOf time.Time) (market.Snapshot, error) {
	s, ok := b.series[ticker]
	if !ok {
		return market.Snapshot{}, fmt.Errorf("%s: %w", ticker, ErrNotFound)
	}
	bar, ok := s.At(asOf)
	if !ok {
		return market.Snapshot{}, fmt.Errorf("%s on %s: %w", ticker, asOf.Format(market.DateLayout), ErrNotFound)
	}

	in := indicators.Compute(s.Until(asOf).Closes())
	return market.NewSnapshot(ticker, asOf, bar.Close, market.Fundamentals{}, in, nil), nil
}
