package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the complete trader configuration.
type Config struct {
	Account   AccountConfig   `json:"account" yaml:"account"`
	Trading   TradingConfig   `json:"trading" yaml:"trading"`
	Reasoning ReasoningConfig `json:"reasoning" yaml:"reasoning"`
	Data      DataConfig      `json:"data" yaml:"data"`
	Journal   JournalConfig   `json:"journal" yaml:"journal"`
}

// AccountConfig contains the starting balance and where it is persisted.
type AccountConfig struct {
	Balance float64      `json:"balance" yaml:"balance"`
	Ledger  LedgerConfig `json:"ledger" yaml:"ledger"`
}

// LedgerConfig selects the balance store.
type LedgerConfig struct {
	Type      string `json:"type" yaml:"type"` // "file", "redis" or "none"
	Path      string `json:"path,omitempty" yaml:"path,omitempty"`
	RedisAddr string `json:"redis_addr,omitempty" yaml:"redis_addr,omitempty"`
	RedisKey  string `json:"redis_key,omitempty" yaml:"redis_key,omitempty"`
}

// TradingConfig contains the trading universe and risk parameters.
type TradingConfig struct {
	RiskFraction       float64  `json:"risk_fraction" yaml:"risk_fraction"`
	Universe           []string `json:"universe" yaml:"universe"`
	TradeHistoryWindow int      `json:"trade_history_window" yaml:"trade_history_window"`
	Benchmark          string   `json:"benchmark,omitempty" yaml:"benchmark,omitempty"`
	HeadlineLimit      int      `json:"headline_limit" yaml:"headline_limit"`
	HistoryDays        int      `json:"history_days" yaml:"history_days"`
	SymbolSuffix       string   `json:"symbol_suffix,omitempty" yaml:"symbol_suffix,omitempty"`
}

// ReasoningConfig configures the completion service.
type ReasoningConfig struct {
	Provider          string `json:"provider" yaml:"provider"` // "deepseek" or "openai"
	Model             string `json:"model" yaml:"model"`
	BaseURL           string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	APIKey            string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	Timeout           string `json:"timeout" yaml:"timeout"` // e.g. "30s"
	MaxAttempts       int    `json:"max_attempts" yaml:"max_attempts"`
	RequestsPerMinute int    `json:"requests_per_minute" yaml:"requests_per_minute"`
}

// ParseTimeout converts Timeout to a time.Duration.
func (r ReasoningConfig) ParseTimeout() (time.Duration, error) {
	if r.Timeout == "" {
		return 0, nil
	}
	return time.ParseDuration(r.Timeout)
}

// DataConfig selects the market data and headline sources.
type DataConfig struct {
	Source        string `json:"source" yaml:"source"` // "yahoo" or "csv"
	CSVDir        string `json:"csv_dir,omitempty" yaml:"csv_dir,omitempty"`
	FinnhubAPIKey string `json:"finnhub_api_key,omitempty" yaml:"finnhub_api_key,omitempty"`
	RSSURL        string `json:"rss_url,omitempty" yaml:"rss_url,omitempty"`
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // "csv", "sqlite" or "none"
	TradesFile string `json:"trades_file,omitempty" yaml:"trades_file,omitempty"`
	EquityFile string `json:"equity_file,omitempty" yaml:"equity_file,omitempty"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// Load reads path (when non-empty) or starts from Default, then overlays
// environment variables, including those from a .env file in the working
// directory.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		c, err := read(path)
		if err != nil {
			return nil, err
		}
		cfg = c
	}

	_ = godotenv.Load()
	cfg.loadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFromEnv() {
	if val := os.Getenv("DEEPSEEK_API_KEY"); val != "" && c.Reasoning.Provider != "openai" {
		c.Reasoning.APIKey = val
	}
	if val := os.Getenv("OPENAI_API_KEY"); val != "" && c.Reasoning.Provider == "openai" {
		c.Reasoning.APIKey = val
	}
	if val := os.Getenv("FINNHUB_API_KEY"); val != "" {
		c.Data.FinnhubAPIKey = val
	}
	if val := os.Getenv("TRADER_RISK_FRACTION"); val != "" {
		if v, err := strconv.ParseFloat(val, 64); err == nil {
			c.Trading.RiskFraction = v
		}
	}
	if val := os.Getenv("TRADER_UNIVERSE"); val != "" {
		var universe []string
		for _, t := range strings.Split(val, ",") {
			if t = strings.ToUpper(strings.TrimSpace(t)); t != "" {
				universe = append(universe, t)
			}
		}
		c.Trading.Universe = universe
	}
	if val := os.Getenv("REDIS_ADDR"); val != "" {
		c.Account.Ledger.RedisAddr = val
	}
}

// LoadFromFile loads configuration from a file (JSON or YAML based on extension)
func LoadFromFile(path string) (*Config, error) {
	cfg, err := read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// read decodes path over the defaults so omitted keys keep their default.
func read(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	if err := yaml.Unmarshal(data, cfg); err != nil {
		cfg = Default()
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}
	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Account.Balance < 0 {
		return fmt.Errorf("account.balance must not be negative")
	}
	switch c.Account.Ledger.Type {
	case "none":
	case "file":
		if c.Account.Ledger.Path == "" {
			return fmt.Errorf("account.ledger.path required for file ledger")
		}
	case "redis":
		if c.Account.Ledger.RedisAddr == "" {
			return fmt.Errorf("account.ledger.redis_addr required for redis ledger")
		}
	default:
		return fmt.Errorf("account.ledger.type must be 'file', 'redis' or 'none'")
	}

	if c.Trading.RiskFraction <= 0 || c.Trading.RiskFraction > 1 {
		return fmt.Errorf("trading.risk_fraction must be in (0, 1]")
	}
	if len(c.Trading.Universe) == 0 {
		return fmt.Errorf("trading.universe must name at least one ticker")
	}
	if c.Trading.TradeHistoryWindow < 0 {
		return fmt.Errorf("trading.trade_history_window must not be negative")
	}
	if c.Trading.HeadlineLimit < 0 || c.Trading.HistoryDays < 0 {
		return fmt.Errorf("trading.headline_limit and trading.history_days must not be negative")
	}

	if c.Reasoning.Provider != "deepseek" && c.Reasoning.Provider != "openai" {
		return fmt.Errorf("reasoning.provider must be 'deepseek' or 'openai'")
	}
	if c.Reasoning.Model == "" {
		return fmt.Errorf("reasoning.model is required")
	}
	if _, err := c.Reasoning.ParseTimeout(); err != nil {
		return fmt.Errorf("reasoning.timeout: %w", err)
	}
	if c.Reasoning.MaxAttempts < 0 || c.Reasoning.RequestsPerMinute < 0 {
		return fmt.Errorf("reasoning.max_attempts and reasoning.requests_per_minute must not be negative")
	}

	if c.Data.Source != "yahoo" && c.Data.Source != "csv" {
		return fmt.Errorf("data.source must be 'yahoo' or 'csv'")
	}
	if c.Data.Source == "csv" && c.Data.CSVDir == "" {
		return fmt.Errorf("data.csv_dir required for CSV source")
	}

	switch c.Journal.Type {
	case "none":
	case "csv":
		if c.Journal.TradesFile == "" || c.Journal.EquityFile == "" {
			return fmt.Errorf("journal trades_file and equity_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	default:
		return fmt.Errorf("journal.type must be 'csv', 'sqlite' or 'none'")
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			Balance: 50000,
			Ledger: LedgerConfig{
				Type:     "file",
				Path:     "simulated_balance.json",
				RedisKey: "trader:balance",
			},
		},
		Trading: TradingConfig{
			RiskFraction:       0.1,
			Universe:           []string{"PETR4", "VALE3", "ITUB4", "BBAS3", "WEGE3"},
			TradeHistoryWindow: 5,
			Benchmark:          "^BVSP",
			HeadlineLimit:      5,
			HistoryDays:        150,
			SymbolSuffix:       ".SA",
		},
		Reasoning: ReasoningConfig{
			Provider:          "deepseek",
			Model:             "deepseek-chat",
			Timeout:           "30s",
			MaxAttempts:       3,
			RequestsPerMinute: 30,
		},
		Data: DataConfig{
			Source: "yahoo",
		},
		Journal: JournalConfig{
			Type:       "csv",
			TradesFile: "./trades.csv",
			EquityFile: "./equity.csv",
		},
	}
}
