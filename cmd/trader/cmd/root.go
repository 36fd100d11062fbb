package cmd

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/trader/config"
	"github.com/rustyeddy/trader/metrics"
)

var rootCmd = &cobra.Command{
	Use:   "trader",
	Short: "An LLM-assisted equity trader with simulated execution",
	Long: `Trader asks a language model for daily BUY, SELL or HOLD decisions over a
universe of equities and executes them against a simulated account.

It provides tools for:
  - Running one live decision step against today's market data
  - Backtesting the decision pipeline over historical bars
  - Querying the trade journal
  - Generating and validating configuration files

Complete documentation is available at https://github.com/rustyeddy/trader`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

var (
	cfgFile     string
	logJSON     bool
	verbose     bool
	metricsAddr string
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML or JSON); defaults plus environment when empty")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "log as JSON instead of text")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve /metrics and /healthz on this address (e.g. :9090)")
}

func setup(cmd *cobra.Command, args []string) error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if logJSON {
		h = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(h))

	if metricsAddr != "" {
		serveMetrics(metricsAddr)
	}
	return nil
}

func serveMetrics(addr string) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           metrics.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		slog.Info("metrics listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", "err", err)
		}
	}()
}

func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}
