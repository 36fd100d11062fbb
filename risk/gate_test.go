package risk

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/trader/portfolio"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newPortfolio(balance string, held ...string) *portfolio.Portfolio {
	p := portfolio.New(dec(balance))
	m := portfolio.Mutate(p)
	for _, t := range held {
		m.Open(portfolio.Position{Ticker: t, Quantity: 1, BuyPrice: dec("10")})
	}
	return p
}

func TestNewGateValidatesFraction(t *testing.T) {
	t.Parallel()

	for _, f := range []float64{0, -0.1, 1.01} {
		_, err := NewGate(f)
		assert.Error(t, err, "fraction %v", f)
	}

	g, err := NewGate(1)
	require.NoError(t, err)
	assert.True(t, g.RiskFraction.Equal(dec("1")))
}

func TestGateEvaluate(t *testing.T) {
	t.Parallel()

	g, err := NewGate(0.1)
	require.NoError(t, err)

	tests := []struct {
		name   string
		p      *portfolio.Portfolio
		ticker string
		side   portfolio.Side
		value  string
		allow  bool
		code   string
	}{
		{"buy within limit", newPortfolio("10000"), "PETR4", portfolio.Buy, "1000", true, CodeOK},
		{"buy over limit", newPortfolio("10000"), "PETR4", portfolio.Buy, "1000.01", false, CodeExposure},
		{"buy already held", newPortfolio("10000", "PETR4"), "PETR4", portfolio.Buy, "10", false, CodePositionExists},
		{"buy other ticker while holding", newPortfolio("10000", "VALE3"), "PETR4", portfolio.Buy, "10", true, CodeOK},
		{"sell held", newPortfolio("0", "PETR4"), "PETR4", portfolio.Sell, "99999", true, CodeOK},
		{"sell not held", newPortfolio("10000"), "PETR4", portfolio.Sell, "10", false, CodeNoPosition},
		{"unknown side", newPortfolio("10000"), "PETR4", portfolio.Side("SHORT"), "10", false, CodeBadRequest},
		{"empty ticker", newPortfolio("10000"), "", portfolio.Buy, "10", false, CodeBadRequest},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			v := g.Evaluate(tt.p, tt.ticker, tt.side, dec(tt.value))
			assert.Equal(t, tt.allow, v.Allowed)
			assert.Equal(t, tt.code, v.Code)
			assert.NotEmpty(t, v.Reason)
		})
	}
}

func TestGateIsPure(t *testing.T) {
	t.Parallel()

	g, err := NewGate(0.5)
	require.NoError(t, err)

	p := newPortfolio("100", "A")
	before := p.Balance()
	_ = g.Evaluate(p, "B", portfolio.Buy, dec("40"))
	_ = g.Evaluate(p, "A", portfolio.Sell, dec("40"))

	assert.True(t, p.Balance().Equal(before))
	assert.Equal(t, []string{"A"}, p.Tickers())
}

func TestGateNilPortfolio(t *testing.T) {
	t.Parallel()

	g, _ := NewGate(0.1)
	v := g.Evaluate(nil, "A", portfolio.Buy, dec("1"))
	assert.False(t, v.Allowed)
}
