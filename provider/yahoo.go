package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/equity"
	"github.com/rustyeddy/trader/market"
)

// YahooSource reads quotes, fundamentals and daily bars from Yahoo Finance.
// Suffix is appended to bare tickers, e.g. ".SA" for B3 listings.
type YahooSource struct {
	Suffix string
}

func NewYahooSource(suffix string) *YahooSource {
	return &YahooSource{Suffix: suffix}
}

// Symbol maps a ticker to its Yahoo symbol. Index symbols (^BVSP) and
// tickers that already carry an exchange suffix are left alone.
func (y *YahooSource) Symbol(ticker string) string {
	t := strings.ToUpper(strings.TrimSpace(ticker))
	if y.Suffix == "" || strings.HasPrefix(t, "^") || strings.Contains(t, ".") {
		return t
	}
	return t + y.Suffix
}

// finance-go has no context support; the call runs in a goroutine and is
// abandoned if ctx ends first.
func await[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn()
		ch <- result{v, err}
	}()

	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case r := <-ch:
		return r.v, r.err
	}
}

func optionalFloat(v float64) *float64 {
	if v == 0 {
		return nil
	}
	return market.Float(v)
}

func (y *YahooSource) Quote(ctx context.Context, ticker string) (Quote, error) {
	sym := y.Symbol(ticker)
	return await(ctx, func() (Quote, error) {
		e, err := equity.Get(sym)
		if err != nil {
			return Quote{}, fmt.Errorf("yahoo quote %s: %w", sym, err)
		}
		if e == nil {
			return Quote{}, fmt.Errorf("yahoo quote %s: %w", sym, ErrNotFound)
		}

		name := e.LongName
		if name == "" {
			name = e.ShortName
		}
		return Quote{
			Price: e.RegularMarketPrice,
			Fundamentals: market.Fundamentals{
				Name:          name,
				Exchange:      e.FullExchangeName,
				PE:            optionalFloat(e.TrailingPE),
				ForwardPE:     optionalFloat(e.ForwardPE),
				PriceToBook:   optionalFloat(e.PriceToBook),
				EPS:           optionalFloat(e.EpsTrailingTwelveMonths),
				DividendYield: optionalFloat(e.TrailingAnnualDividendYield),
				MarketCap:     optionalFloat(float64(e.MarketCap)),
			},
		}, nil
	})
}

func (y *YahooSource) History(ctx context.Context, ticker string, start, end time.Time) (market.Series, error) {
	sym := y.Symbol(ticker)
	start = market.Day(start)
	// chart end is exclusive
	end = market.Day(end).AddDate(0, 0, 1)

	return await(ctx, func() (market.Series, error) {
		iter := chart.Get(&chart.Params{
			Symbol:   sym,
			Start:    datetime.New(&start),
			End:      datetime.New(&end),
			Interval: datetime.OneDay,
		})

		var bars []market.Bar
		for iter.Next() {
			b := iter.Bar()
			open, _ := b.Open.Float64()
			high, _ := b.High.Float64()
			low, _ := b.Low.Float64()
			cl, _ := b.Close.Float64()
			bars = append(bars, market.Bar{
				Date:   time.Unix(int64(b.Timestamp), 0).UTC(),
				Open:   open,
				High:   high,
				Low:    low,
				Close:  cl,
				Volume: float64(b.Volume),
			})
		}
		if err := iter.Err(); err != nil {
			return nil, fmt.Errorf("yahoo history %s: %w", sym, err)
		}
		if len(bars) == 0 {
			return nil, fmt.Errorf("yahoo history %s: %w", sym, ErrNotFound)
		}
		return market.NewSeries(bars), nil
	})
}
