package cmd

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/trader/market"
	"github.com/rustyeddy/trader/provider"
)

var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "Download and prepare datasets",
}

var dataHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Download daily bars from Yahoo Finance and write one CSV per ticker",
	Long: `History downloads daily OHLCV bars for each ticker and writes <TICKER>.csv
into the output directory. The files are readable by the csv data source,
so backtests can run offline.

Example:
  trader data history --from 2023-01-01 --to 2024-06-30 --out data/ --tickers PETR4,VALE3,^BVSP`,
	RunE: runDataHistory,
}

var (
	dhFrom    string
	dhTo      string
	dhOut     string
	dhTickers []string
)

func init() {
	rootCmd.AddCommand(dataCmd)
	dataCmd.AddCommand(dataHistoryCmd)

	dataHistoryCmd.Flags().StringVar(&dhFrom, "from", "", "first date, YYYY-MM-DD (required)")
	dataHistoryCmd.Flags().StringVar(&dhTo, "to", "", "last date, YYYY-MM-DD (default today)")
	dataHistoryCmd.Flags().StringVarP(&dhOut, "out", "o", "", "output directory (default: data.csv_dir)")
	dataHistoryCmd.Flags().StringSliceVarP(&dhTickers, "tickers", "t", nil, "tickers (default: trading.universe plus benchmark)")

	dataHistoryCmd.MarkFlagRequired("from")
}

func runDataHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	from, err := time.Parse(market.DateLayout, dhFrom)
	if err != nil {
		return fmt.Errorf("bad --from: %w", err)
	}
	to := market.Day(time.Now())
	if dhTo != "" {
		if to, err = time.Parse(market.DateLayout, dhTo); err != nil {
			return fmt.Errorf("bad --to: %w", err)
		}
	}
	if to.Before(from) {
		return fmt.Errorf("--from must not be after --to")
	}

	out := dhOut
	if out == "" {
		out = cfg.Data.CSVDir
	}
	if out == "" {
		return fmt.Errorf("missing --out (or data.csv_dir)")
	}

	tickers := dhTickers
	if len(tickers) == 0 {
		tickers = append(tickers, cfg.Trading.Universe...)
		if cfg.Trading.Benchmark != "" {
			tickers = append(tickers, cfg.Trading.Benchmark)
		}
	}

	yahoo := provider.NewYahooSource(cfg.Trading.SymbolSuffix)
	dst := provider.NewCSVSource(out)
	ctx := cmd.Context()

	var failed []string
	for _, t := range tickers {
		t = strings.ToUpper(strings.TrimSpace(t))
		bars, err := yahoo.History(ctx, t, from, to)
		if err != nil {
			slog.Warn("download failed", "ticker", t, "err", err)
			failed = append(failed, t)
			continue
		}
		if err := dst.Save(t, bars); err != nil {
			return err
		}
		fmt.Printf("Wrote %d bars for %s\n", len(bars), t)
	}
	if len(failed) > 0 {
		return fmt.Errorf("no data for %s", strings.Join(failed, ", "))
	}
	return nil
}
