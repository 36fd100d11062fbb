package indicators

import (
	"fmt"

	talib "github.com/markcheno/go-talib"
)

// SMA returns the simple moving average of the trailing period closes.
func SMA(closes []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("period must be positive, got %d", period)
	}
	if err := need(closes, period, fmt.Sprintf("SMA(%d)", period)); err != nil {
		return 0, err
	}

	out := talib.Sma(closes[len(closes)-period:], period)
	return out[len(out)-1], nil
}

// EMA returns the exponential moving average of the closes, seeded with the
// SMA of the first period values.
func EMA(closes []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("period must be positive, got %d", period)
	}
	if err := need(closes, period, fmt.Sprintf("EMA(%d)", period)); err != nil {
		return 0, err
	}

	out := talib.Ema(closes, period)
	return out[len(out)-1], nil
}
