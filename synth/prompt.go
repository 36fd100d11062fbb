package synth

import (
	"fmt"
	"strings"

	"github.com/rustyeddy/trader/market"
	"github.com/rustyeddy/trader/portfolio"
)

func num(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.2f", *v)
}

func pct(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.2f%%", *v*100)
}

func price(v float64) string {
	if v <= 0 {
		return "N/A"
	}
	return fmt.Sprintf("%.2f", v)
}

func trend(p, avg float64) string {
	if p > avg {
		return "up"
	}
	return "down"
}

// TechnicalReadout describes the indicators of a snapshot in words, one
// item per line.
func TechnicalReadout(s market.Snapshot) []string {
	in := s.Indicators
	if in.Empty() {
		return []string{"insufficient data"}
	}
	if s.Price <= 0 {
		return []string{"current price unavailable"}
	}

	var out []string
	if in.SMA21 != nil {
		out = append(out, fmt.Sprintf("Short-term trend: %s (price vs 21-day average %.2f).", trend(s.Price, *in.SMA21), *in.SMA21))
	}
	if in.SMA50 != nil {
		out = append(out, fmt.Sprintf("Medium-term trend: %s (price vs 50-day average %.2f).", trend(s.Price, *in.SMA50), *in.SMA50))
	}
	if in.RSI14 != nil {
		signal := "neutral"
		switch {
		case *in.RSI14 > 70:
			signal = "overbought, possible reversal down"
		case *in.RSI14 < 30:
			signal = "oversold, possible reversal up"
		}
		out = append(out, fmt.Sprintf("Momentum (RSI 14): %.2f (%s).", *in.RSI14, signal))
	}
	if in.BollingerUpper != nil && in.BollingerLower != nil {
		pos := "inside the bands"
		switch {
		case s.Price > *in.BollingerUpper:
			pos = "above the upper band (stretched)"
		case s.Price < *in.BollingerLower:
			pos = "below the lower band (discounted)"
		}
		out = append(out, fmt.Sprintf("Volatility (Bollinger 20, 2): price %s.", pos))
	}
	if in.MACD != nil && in.MACDSignal != nil {
		sig := "bearish (negative momentum)"
		if *in.MACD > *in.MACDSignal {
			sig = "bullish (positive momentum)"
		}
		out = append(out, fmt.Sprintf("Convergence (MACD 12/26/9): %s.", sig))
	}
	if len(out) == 0 {
		return []string{"insufficient data"}
	}
	return out
}

func writeContext(b *strings.Builder, mc market.Context) {
	b.WriteString("Market context:\n")
	name := mc.Benchmark
	if name == "" {
		name = "benchmark"
	}
	fmt.Fprintf(b, "  - %s (last week): %s\n", name, pct(mc.BenchmarkChange))
}

func writeHistory(b *strings.Builder, trades []portfolio.TradeRecord) {
	b.WriteString("Recent trades:\n")
	if len(trades) == 0 {
		b.WriteString("  - no recent trades\n")
		return
	}
	for _, t := range trades {
		fmt.Fprintf(b, "  - %s\n", t)
	}
}

func writeFundamentals(b *strings.Builder, f market.Fundamentals) {
	fmt.Fprintf(b, "  - Fundamentals: P/E %s, forward P/E %s, P/B %s, EPS %s, dividend yield %s, ROE %s\n",
		num(f.PE), num(f.ForwardPE), num(f.PriceToBook), num(f.EPS), pct(f.DividendYield), pct(f.ROE))
}

func writeTechnicals(b *strings.Builder, s market.Snapshot) {
	b.WriteString("  - Technical analysis:\n")
	for _, line := range TechnicalReadout(s) {
		fmt.Fprintf(b, "      - %s\n", line)
	}
}

func writeHeadlines(b *strings.Builder, h []string) {
	if len(h) == 0 {
		b.WriteString("  - News: none\n")
		return
	}
	fmt.Fprintf(b, "  - News: %s\n", strings.Join(h, " | "))
}

// BuildPrompt renders the question for req.
func BuildPrompt(req Request) (string, error) {
	switch req.Evaluation {
	case SellEvaluation:
		if req.Position == nil {
			return "", fmt.Errorf("sell evaluation without a position")
		}
		return buildSellPrompt(req), nil
	case BuyEvaluation:
		if len(req.Candidates) == 0 {
			return "", fmt.Errorf("buy evaluation without candidates")
		}
		return buildBuyPrompt(req), nil
	}
	return "", fmt.Errorf("unknown evaluation %q", req.Evaluation)
}

func buildSellPrompt(req Request) string {
	pos := req.Position
	s := req.Snapshot
	buy, _ := pos.BuyPrice.Float64()

	var pl *float64
	if buy > 0 && s.Price > 0 {
		pl = market.Float(s.Price/buy - 1)
	}

	var b strings.Builder
	b.WriteString("Position review: should this holding be sold?\n\n")
	writeContext(&b, req.Context)
	writeHistory(&b, req.History)

	b.WriteString("\nYour task:\n")
	b.WriteString("1. Analyse the whole picture of the position below.\n")
	b.WriteString("2. If the overall market is falling hard it may be prudent to take profits or cut losses even on good positions.\n")
	b.WriteString("3. Consider the trade history: if this position was just opened, selling needs a very strong reason.\n")

	b.WriteString("\nPosition:\n")
	fmt.Fprintf(&b, "  - Ticker: %s\n", pos.Ticker)
	fmt.Fprintf(&b, "  - Quantity: %d\n", pos.Quantity)
	fmt.Fprintf(&b, "  - Buy price: %s\n", price(buy))
	fmt.Fprintf(&b, "  - Current price: %s\n", price(s.Price))
	fmt.Fprintf(&b, "  - Profit/loss: %s\n", pct(pl))

	fmt.Fprintf(&b, "\nCurrent data for %s:\n", pos.Ticker)
	if !req.Backtest {
		writeFundamentals(&b, s.Fundamentals)
	}
	writeTechnicals(&b, s)
	if !req.Backtest {
		writeHeadlines(&b, s.Headlines)
	}

	b.WriteString("\nIMPORTANT: answer ONLY with a JSON object with the keys ")
	b.WriteString(`"decision" (string: "SELL" or "HOLD") and "rationale" (string).`)
	b.WriteString("\n")
	return b.String()
}

func buildBuyPrompt(req Request) string {
	var b strings.Builder
	if req.Backtest {
		b.WriteString("Comparative analysis: pick one asset to buy (technical focus).\n\n")
	} else {
		b.WriteString("Comparative analysis: pick one asset to buy.\n\n")
	}
	writeContext(&b, req.Context)
	writeHistory(&b, req.History)

	b.WriteString("\nYour task:\n")
	b.WriteString("1. Consider the market context. Be more cautious in a falling market and more confident in a rising one.\n")
	if req.Backtest {
		b.WriteString("2. Analyse only the technical data of the candidates below.\n")
		b.WriteString("3. An ideal candidate has a clear uptrend (price above its averages), an RSI that is not overbought (>70) and a positive MACD signal.\n")
	} else {
		b.WriteString("2. Analyse the candidates below combining fundamentals, news and technical analysis.\n")
		b.WriteString("3. Use the trade history to avoid flip-flopping: do not buy an asset that was sold recently without a new, strong reason.\n")
	}
	b.WriteString("4. Choose the single best asset to buy. If no candidate is clearly favourable, choose HOLD.\n")

	b.WriteString("\nCandidates:\n")
	for _, c := range req.Candidates {
		b.WriteString("---\n")
		fmt.Fprintf(&b, "Candidate: %s\n", c.Ticker)
		fmt.Fprintf(&b, "  - Current price: %s\n", price(c.Price))
		if !req.Backtest {
			writeFundamentals(&b, c.Fundamentals)
		}
		writeTechnicals(&b, c)
		if !req.Backtest {
			writeHeadlines(&b, c.Headlines)
		}
	}

	b.WriteString("\nIMPORTANT: answer ONLY with a JSON object with the keys ")
	b.WriteString(`"decision" (string: "BUY" or "HOLD"), "ticker" (string with the chosen ticker, or null) and "rationale" (string).`)
	b.WriteString("\n")
	return b.String()
}
