package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/trader/backtest"
	"github.com/rustyeddy/trader/journal"
	"github.com/rustyeddy/trader/market"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Replay historical bars through the decision pipeline",
	Long: `Backtest replays every trading date in [start, end] through the same
sell-then-buy evaluation used live. Prompts carry technical indicators only;
fundamentals and headlines are not available historically.

Examples:
  trader backtest --start 2024-01-01 --end 2024-06-30
  trader backtest --start 2024-01-01 --end 2024-03-31 --tickers PETR4,VALE3 --org run.org`,
	RunE: runBacktest,
}

var (
	btStart    string
	btEnd      string
	btTickers  []string
	btBalance  float64
	btCloseEnd bool
	btWarmup   int
	btNoBench  bool
	btOrgPath  string
	btNotes    []string
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().StringVar(&btStart, "start", "", "first date, YYYY-MM-DD (required)")
	backtestCmd.Flags().StringVar(&btEnd, "end", "", "last date, YYYY-MM-DD (required)")
	backtestCmd.Flags().StringSliceVarP(&btTickers, "tickers", "t", nil, "tickers to trade (default: trading.universe)")
	backtestCmd.Flags().Float64VarP(&btBalance, "balance", "b", 0, "starting balance (default: account.balance)")
	backtestCmd.Flags().BoolVar(&btCloseEnd, "close-end", false, "sell open positions at the last replayed close")
	backtestCmd.Flags().IntVar(&btWarmup, "warmup", backtest.DefaultWarmupDays, "calendar days of history loaded before start")
	backtestCmd.Flags().BoolVar(&btNoBench, "no-benchmark", false, "do not load the benchmark index as market context")
	backtestCmd.Flags().StringVar(&btOrgPath, "org", "", "write an org-mode summary to this path")
	backtestCmd.Flags().StringArrayVar(&btNotes, "note", nil, "note added to the org summary (repeatable)")

	backtestCmd.MarkFlagRequired("start")
	backtestCmd.MarkFlagRequired("end")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	start, err := time.Parse(market.DateLayout, btStart)
	if err != nil {
		return fmt.Errorf("bad --start: %w", err)
	}
	end, err := time.Parse(market.DateLayout, btEnd)
	if err != nil {
		return fmt.Errorf("bad --end: %w", err)
	}

	tickers := cfg.Trading.Universe
	if len(btTickers) > 0 {
		tickers = nil
		for _, t := range btTickers {
			tickers = append(tickers, strings.ToUpper(strings.TrimSpace(t)))
		}
	}
	balance := cfg.Account.Balance
	if btBalance > 0 {
		balance = btBalance
	}
	benchmark := cfg.Trading.Benchmark
	if btNoBench {
		benchmark = ""
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	j, err := openJournal(cfg.Journal)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer j.Close()

	completer, err := openCompleter(ctx, cfg.Reasoning)
	if err != nil {
		return fmt.Errorf("reasoning: %w", err)
	}

	rep, runErr := backtest.RunBacktest(ctx, backtest.Params{
		Tickers:        tickers,
		Start:          start,
		End:            end,
		InitialBalance: decimal.NewFromFloat(balance),
		RiskFraction:   cfg.Trading.RiskFraction,
		HistoryWindow:  cfg.Trading.TradeHistoryWindow,
		WarmupDays:     btWarmup,
		Benchmark:      benchmark,
		CloseAtEnd:     btCloseEnd,
	}, backtest.Deps{
		History:   historySource(cfg),
		Completer: completer,
		Journal:   j,
		Logger:    slog.Default(),
	})
	if runErr != nil && rep.RunID == "" {
		return runErr
	}

	renderReport(os.Stdout, rep)

	run := rep.BacktestRun(tickers, cfg.Trading.RiskFraction)
	if db, ok := j.(*journal.SQLite); ok {
		if err := db.RecordBacktest(ctx, run); err != nil {
			slog.Warn("record backtest run failed", "err", err)
		}
	}
	if btOrgPath != "" {
		run.OrgPath = btOrgPath
		run.Notes = btNotes
		if err := run.WriteBacktestOrg(); err != nil {
			return fmt.Errorf("write org: %w", err)
		}
		fmt.Println(mutedStyle.Render("org summary written to " + btOrgPath))
	}
	return runErr
}
