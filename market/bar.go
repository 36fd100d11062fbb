package market

import (
	"sort"
	"time"
)

// DateLayout is the calendar date format used in CSV files, prompts and logs.
const DateLayout = "2006-01-02"

// Bar is one daily OHLCV observation.
type Bar struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Day truncates t to midnight UTC of its calendar date. All dates in the
// system are normalised this way so map lookups and comparisons agree.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Series is a date-ordered daily price history for one ticker.
type Series []Bar

// NewSeries normalises bar dates, sorts them ascending and drops duplicate
// dates (the last bar seen for a date wins) and bars without a usable close.
func NewSeries(bars []Bar) Series {
	byDate := make(map[time.Time]Bar, len(bars))
	for _, b := range bars {
		if b.Close <= 0 {
			continue
		}
		b.Date = Day(b.Date)
		byDate[b.Date] = b
	}

	s := make(Series, 0, len(byDate))
	for _, b := range byDate {
		s = append(s, b)
	}
	sort.Slice(s, func(i, j int) bool { return s[i].Date.Before(s[j].Date) })
	return s
}

// Until returns the prefix of the series up to and including asOf.
// Nothing after asOf is ever reachable through the returned slice.
func (s Series) Until(asOf time.Time) Series {
	asOf = Day(asOf)
	n := sort.Search(len(s), func(i int) bool { return s[i].Date.After(asOf) })
	return s[:n:n]
}

// At returns the bar observed exactly on date.
func (s Series) At(date time.Time) (Bar, bool) {
	date = Day(date)
	i := sort.Search(len(s), func(i int) bool { return !s[i].Date.Before(date) })
	if i < len(s) && s[i].Date.Equal(date) {
		return s[i], true
	}
	return Bar{}, false
}

// Closes returns the closing prices in date order.
func (s Series) Closes() []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = b.Close
	}
	return out
}

// Dates returns the observation dates in order.
func (s Series) Dates() []time.Time {
	out := make([]time.Time, len(s))
	for i, b := range s {
		out[i] = b.Date
	}
	return out
}

// Last returns the most recent bar.
func (s Series) Last() (Bar, bool) {
	if len(s) == 0 {
		return Bar{}, false
	}
	return s[len(s)-1], true
}
