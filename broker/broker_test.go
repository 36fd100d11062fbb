package broker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rustyeddy/trader/portfolio"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memLedger struct {
	balance decimal.Decimal
	stored  bool
	writes  int
	fail    error
}

func (m *memLedger) Load(context.Context) (decimal.Decimal, bool, error) {
	return m.balance, m.stored, nil
}

func (m *memLedger) Store(_ context.Context, b decimal.Decimal) error {
	m.writes++
	if m.fail != nil {
		return m.fail
	}
	m.balance, m.stored = b, true
	return nil
}

var day = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestFillBuyThenSell(t *testing.T) {
	t.Parallel()

	led := &memLedger{}
	b := New(led, nil)
	p := portfolio.New(dec("10000"))

	buy, err := b.Fill(context.Background(), p, "PETR4", portfolio.Buy, 10, dec("100"), day)
	require.NoError(t, err)
	assert.Equal(t, "9000", p.Balance().String())
	assert.True(t, p.HasPosition("PETR4"))
	assert.Equal(t, portfolio.Buy, buy.Side)
	assert.NotEmpty(t, buy.ID)
	assert.Equal(t, "9000", led.balance.String())

	sell, err := b.Fill(context.Background(), p, "PETR4", portfolio.Sell, 10, dec("110"), day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, "10100", p.Balance().String())
	assert.False(t, p.HasPosition("PETR4"))
	assert.Equal(t, portfolio.Sell, sell.Side)

	require.Len(t, p.Trades(), 2)
	assert.Less(t, p.Trades()[0].ID, p.Trades()[1].ID)
	assert.Equal(t, 2, led.writes)
}

func TestFillRejectsWithoutMutation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		ticker string
		side   portfolio.Side
		qty    int64
		price  string
		want   error
	}{
		{"insufficient funds", "VALE3", portfolio.Buy, 200, "60", ErrInsufficientFunds},
		{"sell without position", "VALE3", portfolio.Sell, 1, "60", ErrPositionNotFound},
		{"zero qty", "VALE3", portfolio.Buy, 0, "60", ErrInvalidOrder},
		{"zero price", "VALE3", portfolio.Buy, 1, "0", ErrInvalidOrder},
		{"bad side", "VALE3", portfolio.Side("SHORT"), 1, "60", ErrInvalidOrder},
		{"partial sell", "ITUB4", portfolio.Sell, 1, "30", ErrInvalidOrder},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			led := &memLedger{}
			b := New(led, nil)
			p := portfolio.New(dec("10000"))
			portfolio.Mutate(p).Open(portfolio.Position{Ticker: "ITUB4", Quantity: 5, BuyPrice: dec("30")})

			_, err := b.Fill(context.Background(), p, tt.ticker, tt.side, tt.qty, dec(tt.price), day)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			assert.Equal(t, "10000", p.Balance().String())
			assert.Empty(t, p.Trades())
			assert.Equal(t, []string{"ITUB4"}, p.Tickers())
			assert.Zero(t, led.writes)
		})
	}
}

func TestFillBuyOverwritesHeldPosition(t *testing.T) {
	t.Parallel()

	p := portfolio.New(dec("10000"))
	portfolio.Mutate(p).Open(portfolio.Position{Ticker: "ITUB4", Quantity: 5, BuyPrice: dec("30")})

	_, err := New(nil, nil).Fill(context.Background(), p, "ITUB4", portfolio.Buy, 2, dec("40"), day)
	require.NoError(t, err)

	assert.Equal(t, "9920", p.Balance().String())
	pos, ok := p.Position("ITUB4")
	require.True(t, ok)
	assert.Equal(t, int64(2), pos.Quantity)
	assert.Equal(t, "40", pos.BuyPrice.String())
	assert.Equal(t, []string{"ITUB4"}, p.Tickers())
}

func TestFillSpendsEntireBalance(t *testing.T) {
	t.Parallel()

	p := portfolio.New(dec("1000"))
	_, err := New(nil, nil).Fill(context.Background(), p, "BBAS3", portfolio.Buy, 20, dec("50"), day)
	require.NoError(t, err)
	assert.True(t, p.Balance().IsZero())
	assert.False(t, p.Balance().IsNegative())
}

func TestFillLedgerFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	led := &memLedger{fail: errors.New("disk full")}
	p := portfolio.New(dec("1000"))

	rec, err := New(led, nil).Fill(context.Background(), p, "BBAS3", portfolio.Buy, 2, dec("50"), day)
	require.NoError(t, err)
	assert.Equal(t, "BBAS3", rec.Ticker)
	assert.Equal(t, "900", p.Balance().String())
	assert.Equal(t, 1, led.writes)
}
