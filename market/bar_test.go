package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestNewSeriesSortsAndDedups(t *testing.T) {
	t.Parallel()

	s := NewSeries([]Bar{
		{Date: d("2024-01-03"), Close: 3},
		{Date: d("2024-01-01"), Close: 1},
		{Date: d("2024-01-02").Add(15 * time.Hour), Close: 2},
		{Date: d("2024-01-02"), Close: 22},
		{Date: d("2024-01-04"), Close: 0},
	})

	require.Len(t, s, 3)
	assert.Equal(t, []time.Time{d("2024-01-01"), d("2024-01-02"), d("2024-01-03")}, s.Dates())
}

func TestSeriesUntilHidesFuture(t *testing.T) {
	t.Parallel()

	s := NewSeries([]Bar{
		{Date: d("2024-01-01"), Close: 1},
		{Date: d("2024-01-02"), Close: 2},
		{Date: d("2024-01-05"), Close: 5},
	})

	tests := []struct {
		name string
		asOf string
		want []float64
	}{
		{"before first", "2023-12-31", []float64{}},
		{"on date", "2024-01-02", []float64{1, 2}},
		{"gap", "2024-01-04", []float64{1, 2}},
		{"after last", "2024-02-01", []float64{1, 2, 5}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := s.Until(d(tt.asOf))
			assert.Equal(t, tt.want, got.Closes())
		})
	}
}

func TestSeriesUntilCannotGrowIntoFuture(t *testing.T) {
	t.Parallel()

	s := NewSeries([]Bar{
		{Date: d("2024-01-01"), Close: 1},
		{Date: d("2024-01-02"), Close: 2},
	})

	prefix := s.Until(d("2024-01-01"))
	prefix = append(prefix, Bar{Date: d("2024-01-09"), Close: 9})

	assert.Equal(t, 2.0, s[1].Close)
	assert.Len(t, prefix, 2)
}

func TestSeriesAt(t *testing.T) {
	t.Parallel()

	s := NewSeries([]Bar{
		{Date: d("2024-01-01"), Close: 1},
		{Date: d("2024-01-03"), Close: 3},
	})

	b, ok := s.At(d("2024-01-03").Add(10 * time.Hour))
	require.True(t, ok)
	assert.Equal(t, 3.0, b.Close)

	_, ok = s.At(d("2024-01-02"))
	assert.False(t, ok)
}

func TestNewSnapshotBoundsHeadlines(t *testing.T) {
	t.Parallel()

	src := []string{"a", "b", "c", "d", "e", "f", "g"}
	snap := NewSnapshot("PETR4", d("2024-01-02").Add(3*time.Hour), 10, Fundamentals{}, Indicators{}, src)

	assert.Equal(t, d("2024-01-02"), snap.AsOf)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, snap.Headlines)

	src[0] = "changed"
	assert.Equal(t, "a", snap.Headlines[0])
}
