// Package portfolio holds the simulated account state: cash, open positions
// and the append-only trade ledger. Only the broker mutates a Portfolio.
package portfolio

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of a trade.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// ParseSide normalises s into a Side.
func ParseSide(s string) (Side, error) {
	switch Side(strings.ToUpper(strings.TrimSpace(s))) {
	case Buy:
		return Buy, nil
	case Sell:
		return Sell, nil
	}
	return "", fmt.Errorf("unknown side %q", s)
}

// Position is an open holding. There is at most one per ticker.
type Position struct {
	Ticker   string          `json:"ticker"`
	Quantity int64           `json:"quantity"`
	BuyPrice decimal.Decimal `json:"buy_price"`
	OpenedAt time.Time       `json:"opened_at"`
}

// Cost is the amount paid to open the position.
func (p Position) Cost() decimal.Decimal {
	return p.BuyPrice.Mul(decimal.NewFromInt(p.Quantity))
}

// TradeRecord is one fill. Records are never changed once appended.
type TradeRecord struct {
	ID        string          `json:"id"`
	Ticker    string          `json:"ticker"`
	Side      Side            `json:"side"`
	Quantity  int64           `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Timestamp time.Time       `json:"timestamp"`
}

// Value is price times quantity.
func (t TradeRecord) Value() decimal.Decimal {
	return t.Price.Mul(decimal.NewFromInt(t.Quantity))
}

func (t TradeRecord) String() string {
	return fmt.Sprintf("%s: %s %d %s @ %s",
		t.Timestamp.Format("2006-01-02"), t.Side, t.Quantity, t.Ticker, t.Price.StringFixed(2))
}

// View is the read-only portion of a portfolio that risk checks and the
// decision layer need.
type View interface {
	Balance() decimal.Decimal
	Position(ticker string) (Position, bool)
	HasPosition(ticker string) bool
}

// Portfolio is the cash balance, open positions and trade history of one
// simulated account.
type Portfolio struct {
	balance   decimal.Decimal
	positions map[string]Position
	trades    []TradeRecord
}

// New returns an empty portfolio holding balance in cash.
func New(balance decimal.Decimal) *Portfolio {
	return &Portfolio{
		balance:   balance,
		positions: make(map[string]Position),
	}
}

func (p *Portfolio) Balance() decimal.Decimal { return p.balance }

func (p *Portfolio) Position(ticker string) (Position, bool) {
	pos, ok := p.positions[ticker]
	return pos, ok
}

func (p *Portfolio) HasPosition(ticker string) bool {
	_, ok := p.positions[ticker]
	return ok
}

// Positions returns the open positions ordered by ticker.
func (p *Portfolio) Positions() []Position {
	out := make([]Position, 0, len(p.positions))
	for _, pos := range p.positions {
		out = append(out, pos)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticker < out[j].Ticker })
	return out
}

// Tickers returns the held tickers in ascending order.
func (p *Portfolio) Tickers() []string {
	out := make([]string, 0, len(p.positions))
	for t := range p.positions {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Trades returns a copy of the full trade history in fill order.
func (p *Portfolio) Trades() []TradeRecord {
	out := make([]TradeRecord, len(p.trades))
	copy(out, p.trades)
	return out
}

// RecentTrades returns at most n of the most recent trades, oldest first.
func (p *Portfolio) RecentTrades(n int) []TradeRecord {
	if n <= 0 {
		return nil
	}
	start := len(p.trades) - n
	if start < 0 {
		start = 0
	}
	out := make([]TradeRecord, len(p.trades)-start)
	copy(out, p.trades[start:])
	return out
}

// Equity is cash plus open positions marked at the given prices. Positions
// without a mark are valued at their buy price.
func (p *Portfolio) Equity(marks map[string]float64) decimal.Decimal {
	eq := p.balance
	for t, pos := range p.positions {
		px := pos.BuyPrice
		if m, ok := marks[t]; ok && m > 0 {
			px = decimal.NewFromFloat(m)
		}
		eq = eq.Add(px.Mul(decimal.NewFromInt(pos.Quantity)))
	}
	return eq
}

// Mutation is the broker's handle on a portfolio. It is split out from the
// Portfolio methods so that nothing but a fill can change state.
type Mutation struct {
	p *Portfolio
}

// Mutate returns the mutation handle for p.
func Mutate(p *Portfolio) Mutation { return Mutation{p: p} }

// SetBalance replaces the cash balance.
func (m Mutation) SetBalance(b decimal.Decimal) { m.p.balance = b }

// Open creates or overwrites the position for pos.Ticker.
func (m Mutation) Open(pos Position) { m.p.positions[pos.Ticker] = pos }

// Close removes the position for ticker.
func (m Mutation) Close(ticker string) { delete(m.p.positions, ticker) }

// Append adds a trade record to the history.
func (m Mutation) Append(t TradeRecord) { m.p.trades = append(m.p.trades, t) }
