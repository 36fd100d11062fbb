package indicators

import (
	"fmt"

	talib "github.com/markcheno/go-talib"
)

// RSI returns Wilder's relative strength index. It needs period+1 closes
// because the first change is measured against the second observation.
func RSI(closes []float64, period int) (float64, error) {
	if period < 2 {
		return 0, fmt.Errorf("period must be at least 2, got %d", period)
	}
	if err := need(closes, period+1, fmt.Sprintf("RSI(%d)", period)); err != nil {
		return 0, err
	}

	out := talib.Rsi(closes, period)
	return out[len(out)-1], nil
}

// Bands is one Bollinger Bands reading.
type Bands struct {
	Upper  float64
	Middle float64
	Lower  float64
}

// Bollinger returns SMA(period) ± k population standard deviations of the
// trailing period closes.
func Bollinger(closes []float64, period int, k float64) (Bands, error) {
	if period < 2 {
		return Bands{}, fmt.Errorf("period must be at least 2, got %d", period)
	}
	if err := need(closes, period, fmt.Sprintf("BB(%d)", period)); err != nil {
		return Bands{}, err
	}

	window := closes[len(closes)-period:]
	upper, middle, lower := talib.BBands(window, period, k, k, talib.SMA)
	last := len(window) - 1
	return Bands{Upper: upper[last], Middle: middle[last], Lower: lower[last]}, nil
}

// MACDValue is one MACD reading.
type MACDValue struct {
	MACD   float64
	Signal float64
	Hist   float64
}

// MACD returns EMA(fast) - EMA(slow), its signal EMA and the histogram.
// The first signal value needs slow+signal-1 closes.
func MACD(closes []float64, fast, slow, signal int) (MACDValue, error) {
	if fast <= 0 || slow <= fast || signal <= 0 {
		return MACDValue{}, fmt.Errorf("bad MACD periods %d/%d/%d", fast, slow, signal)
	}
	if err := need(closes, slow+signal-1, fmt.Sprintf("MACD(%d,%d,%d)", fast, slow, signal)); err != nil {
		return MACDValue{}, err
	}

	fastEMA := talib.Ema(closes, fast)
	slowEMA := talib.Ema(closes, slow)

	// The MACD line only exists once the slow EMA is seeded.
	line := make([]float64, 0, len(closes)-slow+1)
	for i := slow - 1; i < len(closes); i++ {
		line = append(line, fastEMA[i]-slowEMA[i])
	}
	sig := talib.Ema(line, signal)

	last := len(line) - 1
	return MACDValue{
		MACD:   line[last],
		Signal: sig[last],
		Hist:   line[last] - sig[last],
	}, nil
}
