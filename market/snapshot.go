package market

import "time"

// MaxHeadlines bounds the number of headlines carried by a snapshot.
const MaxHeadlines = 5

// Indicators holds the technical indicators computed for a snapshot.
// A nil field means the indicator is unknown because there was not enough
// history; it is never defaulted to zero.
type Indicators struct {
	SMA21 *float64
	SMA50 *float64
	RSI14 *float64

	BollingerUpper  *float64
	BollingerMiddle *float64
	BollingerLower  *float64

	MACD       *float64
	MACDSignal *float64
	MACDHist   *float64
}

// Empty reports whether no indicator could be computed.
func (in Indicators) Empty() bool {
	return in.SMA21 == nil && in.SMA50 == nil && in.RSI14 == nil &&
		in.BollingerUpper == nil && in.BollingerLower == nil &&
		in.MACD == nil && in.MACDSignal == nil
}

// Fundamentals are company metrics. Any numeric field may be nil when the
// source did not report it.
type Fundamentals struct {
	Name     string
	Sector   string
	Exchange string

	PE            *float64
	ForwardPE     *float64
	PriceToBook   *float64
	EPS           *float64
	DividendYield *float64
	ROE           *float64
	ProfitMargin  *float64
	DebtToEquity  *float64
	MarketCap     *float64
}

// Snapshot is the dated view of one ticker handed to the decision layer.
// Snapshots are values; NewSnapshot copies the headline slice so a snapshot
// never changes after it is produced.
type Snapshot struct {
	Ticker       string
	AsOf         time.Time
	Price        float64
	Fundamentals Fundamentals
	Indicators   Indicators
	Headlines    []string
}

// NewSnapshot builds a snapshot, normalising the date and bounding the
// headline list to MaxHeadlines.
func NewSnapshot(ticker string, asOf time.Time, price float64, f Fundamentals, in Indicators, headlines []string) Snapshot {
	n := len(headlines)
	if n > MaxHeadlines {
		n = MaxHeadlines
	}
	h := make([]string, n)
	copy(h, headlines[:n])

	return Snapshot{
		Ticker:       ticker,
		AsOf:         Day(asOf),
		Price:        price,
		Fundamentals: f,
		Indicators:   in,
		Headlines:    h,
	}
}

// Context summarises the overall market for a decision, e.g. the benchmark
// index move over the last week. BenchmarkChange is a fraction (0.012 = 1.2%)
// and is nil when unknown.
type Context struct {
	Benchmark       string
	BenchmarkChange *float64
}

// Float returns a pointer to v. It keeps optional-field literals short.
func Float(v float64) *float64 {
	return &v
}
