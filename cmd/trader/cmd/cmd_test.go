package cmd

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/trader/backtest"
	"github.com/rustyeddy/trader/broker"
	"github.com/rustyeddy/trader/config"
	"github.com/rustyeddy/trader/journal"
	"github.com/rustyeddy/trader/provider"
	"github.com/rustyeddy/trader/sim"
	"github.com/rustyeddy/trader/synth"
)

func TestConfigInitThenValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trader.yaml")

	rootCmd.SetArgs([]string{"config", "init", "-o", path})
	require.NoError(t, rootCmd.Execute())

	rootCmd.SetArgs([]string{"config", "validate", "-f", path})
	require.NoError(t, rootCmd.Execute())

	cfg, err := config.LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestOpenLedger(t *testing.T) {
	ctx := context.Background()

	l, done, err := openLedger(ctx, config.LedgerConfig{Type: "file", Path: filepath.Join(t.TempDir(), "b.json")})
	require.NoError(t, err)
	defer done()
	assert.IsType(t, &broker.FileLedger{}, l)

	l, done, err = openLedger(ctx, config.LedgerConfig{Type: "none"})
	require.NoError(t, err)
	defer done()
	assert.IsType(t, broker.NopLedger{}, l)

	_, _, err = openLedger(ctx, config.LedgerConfig{Type: "etcd"})
	assert.Error(t, err)
}

func TestOpenJournal(t *testing.T) {
	dir := t.TempDir()

	j, err := openJournal(config.JournalConfig{Type: "sqlite", DBPath: filepath.Join(dir, "j.sqlite")})
	require.NoError(t, err)
	assert.IsType(t, &journal.SQLite{}, j)
	require.NoError(t, j.Close())

	j, err = openJournal(config.JournalConfig{
		Type:       "csv",
		TradesFile: filepath.Join(dir, "trades.csv"),
		EquityFile: filepath.Join(dir, "equity.csv"),
	})
	require.NoError(t, err)
	assert.IsType(t, &journal.CSVJournal{}, j)
	require.NoError(t, j.Close())

	j, err = openJournal(config.JournalConfig{Type: "none"})
	require.NoError(t, err)
	assert.IsType(t, journal.Nop{}, j)

	_, err = openJournal(config.JournalConfig{Type: "xlsx"})
	assert.Error(t, err)
}

func TestSources(t *testing.T) {
	cfg := config.Default()
	assert.IsType(t, &provider.YahooSource{}, historySource(cfg))
	assert.IsType(t, &provider.RSSHeadlines{}, headlineSource(cfg))

	cfg.Data.Source = "csv"
	cfg.Data.CSVDir = t.TempDir()
	cfg.Data.FinnhubAPIKey = "key"
	assert.IsType(t, &provider.CSVSource{}, historySource(cfg))
	assert.IsType(t, &provider.FinnhubHeadlines{}, headlineSource(cfg))
}

func TestOpenCompleterRequiresKey(t *testing.T) {
	cfg := config.Default().Reasoning
	cfg.APIKey = ""
	_, err := openCompleter(context.Background(), cfg)
	assert.Error(t, err)
}

func TestRenderReportAndStep(t *testing.T) {
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	var buf bytes.Buffer
	renderReport(&buf, backtest.Report{
		RunID:        "run-9",
		Start:        day,
		End:          day,
		StartBalance: decimal.NewFromInt(100),
		FinalBalance: decimal.NewFromInt(90),
		FinalEquity:  decimal.NewFromInt(90),
		TotalPnL:     decimal.NewFromInt(-10),
	})
	out := buf.String()
	assert.Contains(t, out, "run-9")
	assert.Contains(t, out, "Realized P/L -10.00")

	buf.Reset()
	renderStep(&buf, sim.StepResult{
		Date:      day,
		Action:    synth.Hold,
		Rationale: "nothing compelling",
		Decisions: []synth.Decision{{Kind: synth.Hold}},
	})
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "2024-01-02 HOLD")
	assert.Contains(t, lines[1], "nothing compelling")
}
