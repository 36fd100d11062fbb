package provider

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rustyeddy/trader/indicators"
	"github.com/rustyeddy/trader/internal/retry"
	"github.com/rustyeddy/trader/market"
)

type LiveOptions struct {
	HistoryDays   int // calendar days of history behind asOf, default 150
	HeadlineLimit int // default market.MaxHeadlines
	Retry         retry.Policy
	Logger        *slog.Logger
}

// Live assembles snapshots from external sources on demand.
type Live struct {
	quotes  QuoteSource
	history HistorySource
	news    HeadlineSource
	opts    LiveOptions
}

// NewLive returns a live provider. news may be nil.
func NewLive(quotes QuoteSource, history HistorySource, news HeadlineSource, opts LiveOptions) (*Live, error) {
	if quotes == nil || history == nil {
		return nil, fmt.Errorf("live provider: quote and history sources are required")
	}
	if opts.HistoryDays <= 0 {
		opts.HistoryDays = 150
	}
	if opts.HeadlineLimit <= 0 || opts.HeadlineLimit > market.MaxHeadlines {
		opts.HeadlineLimit = market.MaxHeadlines
	}
	if opts.Retry.Attempts == 0 {
		opts.Retry = retry.Data()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Live{quotes: quotes, history: history, news: news, opts: opts}, nil
}

// Fetch never fails hard: any source error or a missing price is reported as
// ErrNotFound. A headline failure only empties the headline list.
func (l *Live) Fetch(ctx context.Context, ticker string, asOf time.Time) (market.Snapshot, error) {
	log := l.opts.Logger.With("ticker", ticker)

	var q Quote
	err := retry.Do(ctx, l.opts.Retry, func(ctx context.Context) error {
		var err error
		q, err = l.quotes.Quote(ctx, ticker)
		return err
	})
	if err != nil {
		log.Warn("quote unavailable", "err", err)
		return market.Snapshot{}, fmt.Errorf("%s quote: %w: %v", ticker, ErrNotFound, err)
	}

	end := market.Day(asOf)
	start := end.AddDate(0, 0, -l.opts.HistoryDays)

	var series market.Series
	err = retry.Do(ctx, l.opts.Retry, func(ctx context.Context) error {
		var err error
		series, err = l.history.History(ctx, ticker, start, end)
		return err
	})
	if err != nil {
		log.Warn("history unavailable", "err", err)
		return market.Snapshot{}, fmt.Errorf("%s history: %w: %v", ticker, ErrNotFound, err)
	}
	series = market.NewSeries(series).Until(end)

	price := q.Price
	if price <= 0 {
		if last, ok := series.Last(); ok {
			price = last.Close
		}
	}
	if price <= 0 {
		log.Warn("no price")
		return market.Snapshot{}, fmt.Errorf("%s: no price: %w", ticker, ErrNotFound)
	}

	var headlines []string
	if l.news != nil {
		err = retry.Do(ctx, l.opts.Retry, func(ctx context.Context) error {
			var err error
			headlines, err = l.news.Headlines(ctx, ticker, l.opts.HeadlineLimit)
			return err
		})
		if err != nil {
			log.Info("headlines unavailable", "err", err)
			headlines = nil
		}
	}
	if len(headlines) > l.opts.HeadlineLimit {
		headlines = headlines[:l.opts.HeadlineLimit]
	}

	in := indicators.Compute(series.Closes())
	return market.NewSnapshot(ticker, asOf, price, q.Fundamentals, in, headlines), nil
}
