// Package provider builds dated market snapshots from history, quote and
// headline sources. A backtest provider replays preloaded history without
// look-ahead; a live provider queries external sources with retries.
package provider

import (
	"context"
	"errors"
	"time"

	"github.com/rustyeddy/trader/market"
)

// ErrNotFound means no usable snapshot exists for the ticker and date.
// Callers exclude the ticker from the step.
var ErrNotFound = errors.New("snapshot not found")

type Provider interface {
	Fetch(ctx context.Context, ticker string, asOf time.Time) (market.Snapshot, error)
}

// HistorySource returns daily bars for ticker within [start, end].
type HistorySource interface {
	History(ctx context.Context, ticker string, start, end time.Time) (market.Series, error)
}

// Quote is the current price and company metrics of a ticker.
type Quote struct {
	Price        float64
	Fundamentals market.Fundamentals
}

type QuoteSource interface {
	Quote(ctx context.Context, ticker string) (Quote, error)
}

// HeadlineSource returns at most limit recent headlines, newest first.
type HeadlineSource interface {
	Headlines(ctx context.Context, ticker string, limit int) ([]string, error)
}

// ContextSource describes the overall market on a date.
type ContextSource interface {
	MarketContext(ctx context.Context, asOf time.Time) market.Context
}

// Snapshots fetches every ticker and keeps those with data. Tickers that
// fail are reported through miss, which may be nil.
func Snapshots(ctx context.Context, p Provider, tickers []string, asOf time.Time, miss func(ticker string, err error)) map[string]market.Snapshot {
	out := make(map[string]market.Snapshot, len(tickers))
	for _, t := range tickers {
		if ctx.Err() != nil {
			break
		}
		snap, err := p.Fetch(ctx, t, asOf)
		if err != nil {
			if miss != nil {
				miss(t, err)
			}
			continue
		}
		out[t] = snap
	}
	return out
}
