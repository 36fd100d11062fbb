// Package indicators computes technical indicators from a daily close
// history. Callers pass only the closes up to and including the evaluation
// date; nothing here looks past the end of the slice it was given.
package indicators

import (
	"errors"
	"fmt"

	"github.com/rustyeddy/trader/market"
)

// ErrInsufficientHistory is returned when a series is shorter than the
// indicator's minimum window.
var ErrInsufficientHistory = errors.New("insufficient history")

// Standard periods used for every snapshot.
const (
	ShortSMA = 21
	LongSMA  = 50

	RSIPeriod = 14

	BollingerPeriod = 20
	BollingerStdDev = 2.0

	MACDFast   = 12
	MACDSlow   = 26
	MACDSignal = 9
)

// Compute returns every indicator that the history supports. Each one is
// independently nil when its window is not satisfied.
func Compute(closes []float64) market.Indicators {
	var out market.Indicators

	out.SMA21 = optional(SMA(closes, ShortSMA))
	out.SMA50 = optional(SMA(closes, LongSMA))
	out.RSI14 = optional(RSI(closes, RSIPeriod))

	if bb, err := Bollinger(closes, BollingerPeriod, BollingerStdDev); err == nil {
		out.BollingerUpper = market.Float(bb.Upper)
		out.BollingerMiddle = market.Float(bb.Middle)
		out.BollingerLower = market.Float(bb.Lower)
	}

	if m, err := MACD(closes, MACDFast, MACDSlow, MACDSignal); err == nil {
		out.MACD = market.Float(m.MACD)
		out.MACDSignal = market.Float(m.Signal)
		out.MACDHist = market.Float(m.Hist)
	}

	return out
}

func optional(v float64, err error) *float64 {
	if err != nil {
		return nil
	}
	return market.Float(v)
}

func need(closes []float64, n int, name string) error {
	if len(closes) < n {
		return fmt.Errorf("%s: need %d closes, got %d: %w", name, n, len(closes), ErrInsufficientHistory)
	}
	return nil
}
