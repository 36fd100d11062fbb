package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/trader/broker"
	"github.com/rustyeddy/trader/market"
	"github.com/rustyeddy/trader/portfolio"
	"github.com/rustyeddy/trader/provider"
	"github.com/rustyeddy/trader/risk"
	"github.com/rustyeddy/trader/sim"
	"github.com/rustyeddy/trader/synth"
)

var stepCmd = &cobra.Command{
	Use:   "step",
	Short: "Run one live decision step",
	Long: `Step fetches current quotes, history, fundamentals and headlines for the
universe and every held ticker, runs the sell-then-buy evaluation and executes
at most one simulated trade. Positions and trades are kept in the state file;
the cash balance is also written to the configured ledger.

Example:
  trader step -c trader.yaml --state portfolio.json`,
	Args: cobra.NoArgs,
	RunE: runStep,
}

var (
	stepState string
	stepDate  string
)

func init() {
	rootCmd.AddCommand(stepCmd)

	stepCmd.Flags().StringVarP(&stepState, "state", "s", "portfolio.json", "portfolio state file")
	stepCmd.Flags().StringVar(&stepDate, "date", "", "decision date, YYYY-MM-DD (default today)")
}

func runStep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	asOf := time.Now()
	if stepDate != "" {
		if asOf, err = time.Parse(market.DateLayout, stepDate); err != nil {
			return fmt.Errorf("bad --date: %w", err)
		}
	}
	asOf = market.Day(asOf)
	log := slog.Default().With("date", asOf.Format(market.DateLayout))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ledger, closeLedger, err := openLedger(ctx, cfg.Account.Ledger)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer closeLedger()

	balance, err := broker.OpenBalance(ctx, ledger, decimal.NewFromFloat(cfg.Account.Balance))
	if err != nil {
		return fmt.Errorf("ledger: %w", err)
	}
	p, loaded, err := portfolio.Load(stepState, balance)
	if err != nil {
		return err
	}
	if loaded && !p.Balance().Equal(balance) {
		log.Warn("state balance differs from ledger; using state", "state", p.Balance().StringFixed(2), "ledger", balance.StringFixed(2))
	}

	j, err := openJournal(cfg.Journal)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer j.Close()

	hist := historySource(cfg)
	live, err := provider.NewLive(provider.NewYahooSource(cfg.Trading.SymbolSuffix), hist, headlineSource(cfg), provider.LiveOptions{
		HistoryDays:   cfg.Trading.HistoryDays,
		HeadlineLimit: cfg.Trading.HeadlineLimit,
		Logger:        log,
	})
	if err != nil {
		return err
	}

	var mctx provider.ContextSource
	if cfg.Trading.Benchmark != "" {
		bc := &provider.BenchmarkContext{Symbol: cfg.Trading.Benchmark, Source: hist, Logger: log}
		if err := bc.Preload(ctx, asOf, asOf); err != nil {
			log.Warn("benchmark unavailable", "symbol", cfg.Trading.Benchmark, "err", err)
		} else {
			mctx = bc
		}
	}

	completer, err := openCompleter(ctx, cfg.Reasoning)
	if err != nil {
		return fmt.Errorf("reasoning: %w", err)
	}
	gate, err := risk.NewGate(cfg.Trading.RiskFraction)
	if err != nil {
		return err
	}

	s, err := sim.New(p, sim.Options{
		Provider:      live,
		Context:       mctx,
		Decider:       synth.New(completer, log),
		Broker:        broker.New(ledger, log),
		Gate:          gate,
		Universe:      cfg.Trading.Universe,
		HistoryWindow: cfg.Trading.TradeHistoryWindow,
		Journal:       j,
		Logger:        log,
	})
	if err != nil {
		return err
	}

	res, err := s.Step(ctx, asOf)
	if err != nil {
		return err
	}
	renderStep(os.Stdout, res)

	if err := portfolio.Save(stepState, p); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}
