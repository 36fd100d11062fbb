package portfolio

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestParseSide(t *testing.T) {
	t.Parallel()

	s, err := ParseSide(" buy ")
	require.NoError(t, err)
	assert.Equal(t, Buy, s)

	s, err = ParseSide("SELL")
	require.NoError(t, err)
	assert.Equal(t, Sell, s)

	_, err = ParseSide("short")
	assert.Error(t, err)
}

func TestRecentTrades(t *testing.T) {
	t.Parallel()

	p := New(dec("1000"))
	m := Mutate(p)
	for i := 0; i < 7; i++ {
		m.Append(TradeRecord{ID: string(rune('a' + i)), Ticker: "X", Side: Buy, Quantity: 1, Price: dec("1")})
	}

	recent := p.RecentTrades(5)
	require.Len(t, recent, 5)
	assert.Equal(t, "c", recent[0].ID)
	assert.Equal(t, "g", recent[4].ID)

	assert.Len(t, p.RecentTrades(50), 7)
	assert.Nil(t, p.RecentTrades(0))
}

func TestPositionsOrderedByTicker(t *testing.T) {
	t.Parallel()

	p := New(dec("0"))
	m := Mutate(p)
	m.Open(Position{Ticker: "VALE3", Quantity: 1, BuyPrice: dec("60")})
	m.Open(Position{Ticker: "ITUB4", Quantity: 2, BuyPrice: dec("30")})
	m.Open(Position{Ticker: "PETR4", Quantity: 3, BuyPrice: dec("35")})

	assert.Equal(t, []string{"ITUB4", "PETR4", "VALE3"}, p.Tickers())
	assert.Equal(t, "ITUB4", p.Positions()[0].Ticker)
}

func TestEquityMarksPositions(t *testing.T) {
	t.Parallel()

	p := New(dec("100"))
	m := Mutate(p)
	m.Open(Position{Ticker: "A", Quantity: 10, BuyPrice: dec("5")})
	m.Open(Position{Ticker: "B", Quantity: 2, BuyPrice: dec("20")})

	eq := p.Equity(map[string]float64{"A": 6})
	// 100 + 10*6 + 2*20
	assert.True(t, eq.Equal(dec("200")), eq.String())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state", "portfolio.json")

	p := New(dec("1234.56"))
	m := Mutate(p)
	ts := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	m.Open(Position{Ticker: "PETR4", Quantity: 10, BuyPrice: dec("35.10"), OpenedAt: ts})
	m.Append(TradeRecord{ID: "01", Ticker: "PETR4", Side: Buy, Quantity: 10, Price: dec("35.10"), Timestamp: ts})

	require.NoError(t, Save(path, p))

	got, ok, err := Load(path, dec("1"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, got.Balance().Equal(dec("1234.56")))

	pos, found := got.Position("PETR4")
	require.True(t, found)
	assert.Equal(t, int64(10), pos.Quantity)
	assert.True(t, pos.BuyPrice.Equal(dec("35.10")))
	require.Len(t, got.Trades(), 1)
	assert.Equal(t, Buy, got.Trades()[0].Side)
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	p, ok, err := Load(filepath.Join(t.TempDir(), "nope.json"), dec("500"))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, p.Balance().Equal(dec("500")))
	assert.Empty(t, p.Positions())
}

func TestLoadRejectsBadState(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "p.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"balance":"-1"}`), 0o644))

	_, _, err := Load(path, dec("0"))
	assert.Error(t, err)
}
