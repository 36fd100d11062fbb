// Package broker executes simulated orders against a portfolio and persists
// the resulting cash balance to a ledger.
package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rustyeddy/trader/metrics"
	"github.com/rustyeddy/trader/pkg/id"
	"github.com/rustyeddy/trader/portfolio"
	"github.com/shopspring/decimal"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrPositionNotFound  = errors.New("position not found")
	ErrInvalidOrder      = errors.New("invalid order")
)

// SimulatedBroker fills orders instantly at the quoted price.
type SimulatedBroker struct {
	ledger Ledger
	log    *slog.Logger
}

// New returns a broker persisting to ledger. A nil ledger disables
// persistence and a nil logger uses slog.Default.
func New(ledger Ledger, log *slog.Logger) *SimulatedBroker {
	if ledger == nil {
		ledger = NopLedger{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &SimulatedBroker{ledger: ledger, log: log}
}

// Fill executes side for qty shares of ticker at price. Validation happens
// before p is touched; a returned error means p is unchanged. Ledger
// failures are logged and never returned.
func (b *SimulatedBroker) Fill(ctx context.Context, p *portfolio.Portfolio, ticker string,
	side portfolio.Side, qty int64, price decimal.Decimal, at time.Time) (portfolio.TradeRecord, error) {

	if p == nil {
		return portfolio.TradeRecord{}, fmt.Errorf("fill: %w: nil portfolio", ErrInvalidOrder)
	}
	if ticker == "" {
		return portfolio.TradeRecord{}, fmt.Errorf("fill: %w: empty ticker", ErrInvalidOrder)
	}
	if qty <= 0 {
		return portfolio.TradeRecord{}, fmt.Errorf("fill %s: %w: quantity %d", ticker, ErrInvalidOrder, qty)
	}
	if !price.IsPositive() {
		return portfolio.TradeRecord{}, fmt.Errorf("fill %s: %w: price %s", ticker, ErrInvalidOrder, price)
	}

	value := price.Mul(decimal.NewFromInt(qty))
	m := portfolio.Mutate(p)

	switch side {
	case portfolio.Buy:
		if value.GreaterThan(p.Balance()) {
			return portfolio.TradeRecord{}, fmt.Errorf("fill %s: %w: need %s, have %s",
				ticker, ErrInsufficientFunds, value.StringFixed(2), p.Balance().StringFixed(2))
		}
		// A BUY on a held ticker replaces the position.
		m.SetBalance(p.Balance().Sub(value))
		m.Open(portfolio.Position{Ticker: ticker, Quantity: qty, BuyPrice: price, OpenedAt: at})

	case portfolio.Sell:
		pos, ok := p.Position(ticker)
		if !ok {
			return portfolio.TradeRecord{}, fmt.Errorf("fill %s: %w", ticker, ErrPositionNotFound)
		}
		if qty != pos.Quantity {
			return portfolio.TradeRecord{}, fmt.Errorf("fill %s: %w: sell %d of %d held",
				ticker, ErrInvalidOrder, qty, pos.Quantity)
		}
		m.SetBalance(p.Balance().Add(value))
		m.Close(ticker)

	default:
		return portfolio.TradeRecord{}, fmt.Errorf("fill %s: %w: side %q", ticker, ErrInvalidOrder, side)
	}

	rec := portfolio.TradeRecord{
		ID:        id.At(at),
		Ticker:    ticker,
		Side:      side,
		Quantity:  qty,
		Price:     price,
		Timestamp: at,
	}
	m.Append(rec)

	metrics.Fills.WithLabelValues(string(side)).Inc()
	balance, _ := p.Balance().Float64()
	metrics.Balance.Set(balance)

	b.log.Info("fill",
		"ticker", ticker,
		"side", side,
		"qty", qty,
		"price", price.StringFixed(2),
		"balance", p.Balance().StringFixed(2))

	if err := b.ledger.Store(ctx, p.Balance()); err != nil {
		metrics.LedgerFailures.Inc()
		b.log.Warn("ledger store failed", "err", err)
	}
	return rec, nil
}
