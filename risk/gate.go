// Package risk decides whether a proposed trade may be executed.
package risk

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/trader/portfolio"
)

// Violation codes reported in Verdict.Code.
const (
	CodeOK             = "OK"
	CodeExposure       = "MAX_EXPOSURE"
	CodePositionExists = "POSITION_EXISTS"
	CodeNoPosition     = "NO_POSITION"
	CodeBadRequest     = "BAD_REQUEST"
)

// Verdict is the outcome of a risk evaluation.
type Verdict struct {
	Allowed bool
	Code    string
	Reason  string
}

func allow() Verdict {
	return Verdict{Allowed: true, Code: CodeOK, Reason: "approved"}
}

func deny(code, format string, args ...any) Verdict {
	return Verdict{Allowed: false, Code: code, Reason: fmt.Sprintf(format, args...)}
}

// Gate enforces the per-trade exposure rule.
type Gate struct {
	// RiskFraction is the share of the current balance a single buy may
	// commit, 0 < RiskFraction <= 1.
	RiskFraction decimal.Decimal
}

// NewGate returns a gate for the given risk fraction.
func NewGate(riskFraction float64) (Gate, error) {
	if riskFraction <= 0 || riskFraction > 1 {
		return Gate{}, fmt.Errorf("risk fraction must be in (0, 1], got %v", riskFraction)
	}
	return Gate{RiskFraction: decimal.NewFromFloat(riskFraction)}, nil
}

// MaxTradeValue is the largest buy the gate will approve for balance.
func (g Gate) MaxTradeValue(balance decimal.Decimal) decimal.Decimal {
	return balance.Mul(g.RiskFraction)
}

// Evaluate checks one proposed trade. It has no side effects.
//
// A buy is denied when its value exceeds balance * RiskFraction or when a
// position in the ticker is already open (no averaging in). A sell is denied
// when there is no position to sell.
func (g Gate) Evaluate(p portfolio.View, ticker string, side portfolio.Side, tradeValue decimal.Decimal) Verdict {
	if p == nil || ticker == "" {
		return deny(CodeBadRequest, "missing portfolio or ticker")
	}

	switch side {
	case portfolio.Buy:
		limit := g.MaxTradeValue(p.Balance())
		if tradeValue.GreaterThan(limit) {
			return deny(CodeExposure, "buy denied: value %s exceeds per-trade limit %s",
				tradeValue.StringFixed(2), limit.StringFixed(2))
		}
		if p.HasPosition(ticker) {
			return deny(CodePositionExists, "buy denied: position in %s already open", ticker)
		}

	case portfolio.Sell:
		if !p.HasPosition(ticker) {
			return deny(CodeNoPosition, "sell denied: no open position in %s", ticker)
		}

	default:
		return deny(CodeBadRequest, "unknown side %q", side)
	}

	return allow()
}
