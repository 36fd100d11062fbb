package backtest

import (
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/trader/journal"
	"github.com/rustyeddy/trader/market"
	"github.com/rustyeddy/trader/portfolio"
	"github.com/rustyeddy/trader/sim"
)

// RoundTrip is a sell matched against earlier buys of the same ticker.
type RoundTrip struct {
	Ticker    string
	Quantity  int64
	BuyPrice  decimal.Decimal // quantity-weighted across matched lots
	SellPrice decimal.Decimal
	Opened    time.Time
	Closed    time.Time
	PnL       decimal.Decimal
}

// EquityPoint is the account value at the end of a date.
type EquityPoint struct {
	Date    time.Time
	Balance decimal.Decimal
	Equity  decimal.Decimal
}

// Report summarises a backtest run.
type Report struct {
	RunID string
	Start time.Time
	End   time.Time

	StartBalance decimal.Decimal
	FinalBalance decimal.Decimal
	FinalEquity  decimal.Decimal

	Trades     []portfolio.TradeRecord
	RoundTrips []RoundTrip
	Wins       int
	Losses     int
	WinRate    float64 // percent
	TotalPnL   decimal.Decimal

	Equity []EquityPoint
	Steps  []sim.StepResult
	Open   []portfolio.Position
}

type lot struct {
	qty    int64
	price  decimal.Decimal
	opened time.Time
}

// MatchRoundTrips pairs every SELL with the oldest open BUY lots of its
// ticker. PnL is (sell - buy) * quantity.
func MatchRoundTrips(trades []portfolio.TradeRecord) []RoundTrip {
	open := make(map[string][]lot)
	var out []RoundTrip

	for _, t := range trades {
		switch t.Side {
		case portfolio.Buy:
			open[t.Ticker] = append(open[t.Ticker], lot{qty: t.Quantity, price: t.Price, opened: t.Timestamp})

		case portfolio.Sell:
			lots := open[t.Ticker]
			remaining := t.Quantity
			cost := decimal.Zero
			var matched int64
			var opened time.Time

			for remaining > 0 && len(lots) > 0 {
				l := &lots[0]
				n := l.qty
				if n > remaining {
					n = remaining
				}
				if matched == 0 {
					opened = l.opened
				}
				cost = cost.Add(l.price.Mul(decimal.NewFromInt(n)))
				matched += n
				remaining -= n
				l.qty -= n
				if l.qty == 0 {
					lots = lots[1:]
				}
			}
			open[t.Ticker] = lots
			if matched == 0 {
				continue
			}

			proceeds := t.Price.Mul(decimal.NewFromInt(matched))
			out = append(out, RoundTrip{
				Ticker:    t.Ticker,
				Quantity:  matched,
				BuyPrice:  cost.Div(decimal.NewFromInt(matched)),
				SellPrice: t.Price,
				Opened:    opened,
				Closed:    t.Timestamp,
				PnL:       proceeds.Sub(cost),
			})
		}
	}
	return out
}

func (r *Report) summarise() {
	r.RoundTrips = MatchRoundTrips(r.Trades)
	r.TotalPnL = decimal.Zero
	r.Wins, r.Losses = 0, 0
	for _, rt := range r.RoundTrips {
		r.TotalPnL = r.TotalPnL.Add(rt.PnL)
		if rt.PnL.IsPositive() {
			r.Wins++
		} else {
			r.Losses++
		}
	}
	r.WinRate = 0
	if n := len(r.RoundTrips); n > 0 {
		r.WinRate = float64(r.Wins) / float64(n) * 100
	}
}

// BacktestRun converts the report into its journal row.
func (r Report) BacktestRun(tickers []string, riskFraction float64) journal.BacktestRun {
	return journal.BacktestRun{
		RunID:        r.RunID,
		Created:      time.Now(),
		Tickers:      tickers,
		RiskFraction: riskFraction,
		Start:        r.Start,
		End:          r.End,
		Trades:       len(r.Trades),
		RoundTrips:   len(r.RoundTrips),
		Wins:         r.Wins,
		Losses:       r.Losses,
		StartBalance: r.StartBalance,
		EndBalance:   r.FinalBalance,
		NetPL:        r.FinalBalance.Sub(r.StartBalance),
		WinRate:      r.WinRate,
	}
}

func PrintReport(w io.Writer, r Report) {
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintln(w, " Backtest Result")
	fmt.Fprintln(w, "==================================================")

	fmt.Fprintf(w, "Run ID:        %s\n", r.RunID)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Period")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Start:         %s\n", r.Start.Format(market.DateLayout))
	fmt.Fprintf(w, "End:           %s\n", r.End.Format(market.DateLayout))
	fmt.Fprintf(w, "Steps:         %d\n", len(r.Steps))

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Trade Statistics")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Trades:        %d\n", len(r.Trades))
	fmt.Fprintf(w, "Round Trips:   %d\n", len(r.RoundTrips))
	fmt.Fprintf(w, "Wins:          %d\n", r.Wins)
	fmt.Fprintf(w, "Losses:        %d\n", r.Losses)
	fmt.Fprintf(w, "Win Rate:      %.2f%%\n", r.WinRate)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Account Performance")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Start Balance: %s\n", r.StartBalance.StringFixed(2))
	fmt.Fprintf(w, "End Balance:   %s\n", r.FinalBalance.StringFixed(2))
	fmt.Fprintf(w, "End Equity:    %s\n", r.FinalEquity.StringFixed(2))
	fmt.Fprintf(w, "Realized P/L:  %s\n", r.TotalPnL.StringFixed(2))

	if len(r.Open) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Open Positions")
		fmt.Fprintln(w, "--------------------------------------------------")
		for _, p := range r.Open {
			fmt.Fprintf(w, "%-8s %6d @ %s\n", p.Ticker, p.Quantity, p.BuyPrice.StringFixed(2))
		}
	}

	if len(r.Trades) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Trades")
		fmt.Fprintln(w, "--------------------------------------------------")
		for _, t := range r.Trades {
			fmt.Fprintln(w, t.String())
		}
	}
	fmt.Fprintln(w, "==================================================")
}
