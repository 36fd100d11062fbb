package cmd

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/rustyeddy/trader/backtest"
	"github.com/rustyeddy/trader/sim"
	"github.com/rustyeddy/trader/synth"
)

var (
	titleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#7C3AED")).
		Background(lipgloss.Color("#1F2937")).
		Padding(0, 1).
		MarginBottom(1)

	boxStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#3B82F6")).
		Padding(0, 2)

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#10B981")).
		Bold(true)

	lossStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#EF4444")).
		Bold(true)

	mutedStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#6B7280"))
)

func pnlStyle(v decimal.Decimal) lipgloss.Style {
	if v.IsNegative() {
		return lossStyle
	}
	return okStyle
}

func renderReport(w io.Writer, r backtest.Report) {
	var buf bytes.Buffer
	backtest.PrintReport(&buf, r)

	fmt.Fprintln(w, titleStyle.Render("Backtest "+r.RunID))
	fmt.Fprintln(w, boxStyle.Render(strings.TrimRight(buf.String(), "\n")))
	fmt.Fprintln(w, pnlStyle(r.TotalPnL).Render("Realized P/L "+r.TotalPnL.StringFixed(2)))
}

func renderStep(w io.Writer, res sim.StepResult) {
	var style lipgloss.Style
	switch {
	case res.Rejected:
		style = lossStyle
	case res.Action == synth.Hold:
		style = mutedStyle
	default:
		style = okStyle
	}
	fmt.Fprintln(w, style.Render(res.String()))
	if res.Rationale != "" {
		fmt.Fprintln(w, mutedStyle.Render("  "+res.Rationale))
	}
	for _, d := range res.Decisions {
		fmt.Fprintln(w, mutedStyle.Render("  - "+d.String()))
	}
}
