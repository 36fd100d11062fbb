// Package replay walks a backtest through the calendar of observed trading
// dates, one date at a time.
package replay

import (
	"sort"
	"time"

	"github.com/rustyeddy/trader/market"
)

// Calendar is a strictly increasing list of dates at UTC midnight.
type Calendar []time.Time

// NewCalendar merges every date set into one calendar. Dates are normalised
// and duplicates collapse; no dates are invented between observations.
func NewCalendar(dateSets ...[]time.Time) Calendar {
	seen := make(map[time.Time]struct{})
	var cal Calendar
	for _, set := range dateSets {
		for _, d := range set {
			d = market.Day(d)
			if _, ok := seen[d]; ok {
				continue
			}
			seen[d] = struct{}{}
			cal = append(cal, d)
		}
	}
	sort.Slice(cal, func(i, j int) bool { return cal[i].Before(cal[j]) })
	return cal
}

// Between returns the dates within [start, end]. A zero bound is open.
func (c Calendar) Between(start, end time.Time) Calendar {
	lo := 0
	if !start.IsZero() {
		start = market.Day(start)
		lo = sort.Search(len(c), func(i int) bool { return !c[i].Before(start) })
	}
	hi := len(c)
	if !end.IsZero() {
		end = market.Day(end)
		hi = sort.Search(len(c), func(i int) bool { return c[i].After(end) })
	}
	if lo >= hi {
		return nil
	}
	return c[lo:hi:hi]
}

func (c Calendar) First() (time.Time, bool) {
	if len(c) == 0 {
		return time.Time{}, false
	}
	return c[0], true
}

func (c Calendar) Last() (time.Time, bool) {
	if len(c) == 0 {
		return time.Time{}, false
	}
	return c[len(c)-1], true
}

// Cursor yields calendar dates in order.
type Cursor struct {
	cal Calendar
	pos int
}

func (c Calendar) Cursor() *Cursor {
	return &Cursor{cal: c}
}

// Next returns the next date, or false when the calendar is exhausted.
func (c *Cursor) Next() (time.Time, bool) {
	if c.pos >= len(c.cal) {
		return time.Time{}, false
	}
	d := c.cal[c.pos]
	c.pos++
	return d, true
}

// Remaining is the number of dates not yet returned.
func (c *Cursor) Remaining() int {
	return len(c.cal) - c.pos
}
