// Package synth turns market snapshots and portfolio state into a single
// trading decision by asking a language model and validating its answer.
package synth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rustyeddy/trader/market"
	"github.com/rustyeddy/trader/metrics"
	"github.com/rustyeddy/trader/portfolio"
)

// Kind is the outcome of a decision.
type Kind string

const (
	Buy   Kind = "BUY"
	Sell  Kind = "SELL"
	Hold  Kind = "HOLD"
	Error Kind = "ERROR"
)

// Decision is the validated answer of one evaluation. Ticker is set for BUY
// and SELL only.
type Decision struct {
	Kind      Kind
	Ticker    string
	Rationale string
}

func (d Decision) String() string {
	if d.Ticker == "" {
		return string(d.Kind)
	}
	return string(d.Kind) + " " + d.Ticker
}

// Evaluation selects the question asked.
type Evaluation string

const (
	SellEvaluation Evaluation = "sell"
	BuyEvaluation  Evaluation = "buy"
)

// Request carries everything a prompt is built from. A sell evaluation uses
// Position and Snapshot; a buy evaluation uses Candidates.
type Request struct {
	Evaluation Evaluation
	Position   *portfolio.Position
	Snapshot   market.Snapshot
	Candidates []market.Snapshot
	History    []portfolio.TradeRecord
	Context    market.Context

	// Backtest asks the technical-only buy question; historical snapshots
	// carry no fundamentals or news.
	Backtest bool
}

// Synthesizer asks a Completer for decisions.
type Synthesizer struct {
	completer Completer
	log       *slog.Logger
}

func New(c Completer, log *slog.Logger) *Synthesizer {
	if log == nil {
		log = slog.Default()
	}
	return &Synthesizer{completer: c, log: log}
}

// Decide never returns an error: every failure becomes an ERROR decision
// with a diagnostic rationale.
func (s *Synthesizer) Decide(ctx context.Context, req Request) Decision {
	d := s.decide(ctx, req)
	metrics.Decisions.WithLabelValues(string(req.Evaluation), string(d.Kind)).Inc()

	level := slog.LevelInfo
	if d.Kind == Error {
		level = slog.LevelWarn
	}
	s.log.Log(ctx, level, "decision",
		"evaluation", req.Evaluation,
		"kind", d.Kind,
		"ticker", d.Ticker,
		"rationale", d.Rationale)
	return d
}

func (s *Synthesizer) decide(ctx context.Context, req Request) Decision {
	if s.completer == nil {
		return Decision{Kind: Error, Rationale: "no completer configured"}
	}

	prompt, err := BuildPrompt(req)
	if err != nil {
		return Decision{Kind: Error, Rationale: err.Error()}
	}

	start := time.Now()
	text, err := s.completer.Complete(ctx, prompt)
	metrics.CompletionSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		return Decision{Kind: Error, Rationale: fmt.Sprintf("completion failed: %v", err)}
	}
	s.log.Debug("completion", "evaluation", req.Evaluation, "text", text)

	return Parse(text, req)
}
