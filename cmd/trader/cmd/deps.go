package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rustyeddy/trader/broker"
	"github.com/rustyeddy/trader/config"
	"github.com/rustyeddy/trader/internal/retry"
	"github.com/rustyeddy/trader/journal"
	"github.com/rustyeddy/trader/provider"
	"github.com/rustyeddy/trader/synth"
)

// openLedger returns the configured balance store and a cleanup func.
func openLedger(ctx context.Context, cfg config.LedgerConfig) (broker.Ledger, func(), error) {
	switch cfg.Type {
	case "file":
		return broker.NewFileLedger(cfg.Path), func() {}, nil
	case "redis":
		l, client, err := broker.DialRedisLedger(ctx, cfg.RedisAddr, cfg.RedisKey)
		if err != nil {
			return nil, nil, err
		}
		return l, func() { client.Close() }, nil
	case "none", "":
		return broker.NopLedger{}, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown ledger type %q", cfg.Type)
	}
}

func openJournal(cfg config.JournalConfig) (journal.Journal, error) {
	switch cfg.Type {
	case "csv":
		return journal.NewCSV(cfg.TradesFile, cfg.EquityFile)
	case "sqlite":
		return journal.NewSQLite(cfg.DBPath)
	case "none", "":
		return journal.Nop{}, nil
	default:
		return nil, fmt.Errorf("unknown journal type %q", cfg.Type)
	}
}

func historySource(cfg *config.Config) provider.HistorySource {
	if cfg.Data.Source == "csv" {
		return provider.NewCSVSource(cfg.Data.CSVDir)
	}
	return provider.NewYahooSource(cfg.Trading.SymbolSuffix)
}

func headlineSource(cfg *config.Config) provider.HeadlineSource {
	if cfg.Data.FinnhubAPIKey != "" {
		return provider.NewFinnhubHeadlines("", cfg.Data.FinnhubAPIKey)
	}
	return provider.NewRSSHeadlines(cfg.Data.RSSURL)
}

// openCompleter builds the chat model client behind a rate limit and retry
// guard.
func openCompleter(ctx context.Context, cfg config.ReasoningConfig) (synth.Completer, error) {
	timeout, err := cfg.ParseTimeout()
	if err != nil {
		return nil, fmt.Errorf("reasoning timeout: %w", err)
	}
	policy := retry.Completion()
	if cfg.MaxAttempts > 0 {
		policy.Attempts = cfg.MaxAttempts
	}
	if timeout > 0 {
		policy.Timeout = timeout
	}

	c, err := synth.NewCompleter(ctx, cfg.Provider, synth.ModelConfig{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
	})
	if err != nil {
		return nil, err
	}
	slog.Debug("completer ready", "provider", cfg.Provider, "model", cfg.Model, "attempts", policy.Attempts)
	return synth.NewGuard(c, policy, cfg.RequestsPerMinute), nil
}
