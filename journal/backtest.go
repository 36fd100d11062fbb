package journal

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/rustyeddy/trader/portfolio"
	"github.com/shopspring/decimal"
)

// BacktestRun mirrors the backtest_runs table.
type BacktestRun struct {
	RunID   string
	Created time.Time
	Tickers []string

	RiskFraction float64

	Start time.Time
	End   time.Time

	// Results
	Trades     int
	RoundTrips int
	Wins       int
	Losses     int

	StartBalance decimal.Decimal
	EndBalance   decimal.Decimal
	NetPL        decimal.Decimal
	WinRate      float64

	OrgPath string
	Notes   []string
}

// ReturnPct is the change in balance over the run in percent.
func (r BacktestRun) ReturnPct() float64 {
	if r.StartBalance.IsZero() {
		return 0
	}
	pct, _ := r.EndBalance.Sub(r.StartBalance).Div(r.StartBalance).Mul(decimal.NewFromInt(100)).Float64()
	return pct
}

var backtestOrgFuncs = template.FuncMap{
	"join":  strings.Join,
	"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
	"orTime": func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Now()
		}
		return t
	},
}

var backtestOrg = template.Must(template.New("backtest").Funcs(backtestOrgFuncs).Parse(BacktestOrgTemplate))

// FormatBacktestOrg renders the run as an Org-mode entry.
func FormatBacktestOrg(r BacktestRun) (string, error) {
	buf := new(bytes.Buffer)
	if err := backtestOrg.Execute(buf, r); err != nil {
		return "", fmt.Errorf("render backtest %s: %w", r.RunID, err)
	}
	return buf.String(), nil
}

// WriteBacktestOrg renders the run to r.OrgPath.
func (r BacktestRun) WriteBacktestOrg() error {
	if r.OrgPath == "" {
		return fmt.Errorf("backtest %s: no org path", r.RunID)
	}
	s, err := FormatBacktestOrg(r)
	if err != nil {
		return err
	}
	return os.WriteFile(r.OrgPath, []byte(s), 0644)
}

// FormatTradeOrg renders a single fill as an Org heading.
func FormatTradeOrg(t portfolio.TradeRecord) string {
	short := t.ID
	if len(short) > 8 {
		short = short[:8]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "** %s %s (%s)\n", t.Side, t.Ticker, short)
	b.WriteString(":PROPERTIES:\n")
	fmt.Fprintf(&b, ":ID: %s\n", t.ID)
	fmt.Fprintf(&b, ":TICKER: %s\n", t.Ticker)
	fmt.Fprintf(&b, ":SIDE: %s\n", t.Side)
	fmt.Fprintf(&b, ":QUANTITY: %d\n", t.Quantity)
	fmt.Fprintf(&b, ":PRICE: %s\n", t.Price.StringFixed(2))
	fmt.Fprintf(&b, ":VALUE: %s\n", t.Value().StringFixed(2))
	fmt.Fprintf(&b, ":TIME: %s\n", t.Timestamp.UTC().Format(time.RFC3339))
	b.WriteString(":END:\n")
	return b.String()
}

// FormatTradesOrg renders fills under a single heading, one subheading each.
func FormatTradesOrg(trades []portfolio.TradeRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "* Trades (%d)\n", len(trades))
	for _, t := range trades {
		b.WriteString(FormatTradeOrg(t))
	}
	return b.String()
}

const BacktestOrgTemplate = `
* BACKTEST: {{join .Tickers ", "}}
:PROPERTIES:
:RUN_ID:      {{if .RunID}}{{.RunID}}{{else}}(run-id?){{end}}
:TICKERS:     {{join .Tickers ","}}
:START_DATE:  {{.Start.Format "2006-01-02"}}
:END_DATE:    {{.End.Format "2006-01-02"}}
:RISK:        {{printf "%.2f" .RiskFraction}}
:START_BAL:   {{money .StartBalance}}
:END_BAL:     {{money .EndBalance}}
:NET_PL:      {{money .NetPL}}
:RETURN_PCT:  {{printf "%.2f" .ReturnPct}}
:TRADES:      {{.Trades}}
:ROUND_TRIPS: {{.RoundTrips}}
:WINS:        {{.Wins}}
:LOSSES:      {{.Losses}}
:WIN_RATE:    {{printf "%.2f" .WinRate}}
:CREATED:     [{{(orTime .Created).Format "2006-01-02 Mon 15:04"}}]
:END:

** Performance Summary
- Net P/L:   *{{money .NetPL}}*
- Return:    *{{printf "%.2f" .ReturnPct}}%*
- Win Rate:  *{{printf "%.2f" .WinRate}}%*

** Trade Distribution
| Outcome | Count |
|---------+-------|
| Wins    | {{.Wins}} |
| Losses  | {{.Losses}} |
| Total   | {{.RoundTrips}} |

{{- if .Notes }}
** Observations
{{- range .Notes }}
- {{.}}
{{- end }}
{{- end }}
`
