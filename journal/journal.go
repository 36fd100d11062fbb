// Package journal records fills and equity snapshots for later review.
package journal

import (
	"time"

	"github.com/rustyeddy/trader/portfolio"
	"github.com/shopspring/decimal"
)

// EquitySnapshot is the account value at the end of a step.
type EquitySnapshot struct {
	Time      time.Time
	Balance   decimal.Decimal
	Equity    decimal.Decimal
	Positions int
}

type Journal interface {
	RecordTrade(portfolio.TradeRecord) error
	RecordEquity(EquitySnapshot) error
	Close() error
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordTrade(portfolio.TradeRecord) error { return nil }
func (Nop) RecordEquity(EquitySnapshot) error       { return nil }
func (Nop) Close() error                            { return nil }
