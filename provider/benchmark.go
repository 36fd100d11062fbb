package provider

import (
	"context"
	"log/slog"
	"time"

	"github.com/rustyeddy/trader/market"
)

// BenchmarkLookback is the number of observations the benchmark change spans.
const BenchmarkLookback = 5

// BenchmarkContext reports the percent move of a benchmark index over the
// last BenchmarkLookback observations up to asOf.
type BenchmarkContext struct {
	Symbol string
	Source HistorySource
	Logger *slog.Logger

	series market.Series
}

// NewBenchmarkContext serves context from preloaded history.
func NewBenchmarkContext(symbol string, series market.Series) *BenchmarkContext {
	return &BenchmarkContext{Symbol: symbol, series: market.NewSeries(series)}
}

// Preload loads [start, end] once so later lookups do not hit the source.
func (b *BenchmarkContext) Preload(ctx context.Context, start, end time.Time) error {
	s, err := b.Source.History(ctx, b.Symbol, start.AddDate(0, 0, -14), end)
	if err != nil {
		return err
	}
	b.series = market.NewSeries(s)
	return nil
}

func (b *BenchmarkContext) MarketContext(ctx context.Context, asOf time.Time) market.Context {
	mc := market.Context{Benchmark: b.Symbol}

	s := b.series
	if s == nil && b.Source != nil {
		end := market.Day(asOf)
		got, err := b.Source.History(ctx, b.Symbol, end.AddDate(0, 0, -14), end)
		if err != nil {
			b.logger().Info("benchmark unavailable", "symbol", b.Symbol, "err", err)
			return mc
		}
		s = market.NewSeries(got)
	}

	s = s.Until(asOf)
	if len(s) < BenchmarkLookback {
		return mc
	}
	first := s[len(s)-BenchmarkLookback].Close
	last := s[len(s)-1].Close
	mc.BenchmarkChange = market.Float((last - first) / first)
	return mc
}

func (b *BenchmarkContext) logger() *slog.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return slog.Default()
}
