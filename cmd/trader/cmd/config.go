package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/trader/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Generate or validate configuration files",
	Long: `Manage trader configuration files.

Subcommands:
  init     - Generate a default configuration file
  validate - Validate an existing configuration file

Examples:
  trader config init -o trader.yaml
  trader config validate -f trader.yaml`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default configuration file",
	RunE:  runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	RunE:  runConfigValidate,
}

var (
	configInitOutput   string
	configValidatePath string
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)

	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", "trader.yaml", "output config file path")
	configValidateCmd.Flags().StringVarP(&configValidatePath, "file", "f", "", "path to config file (required)")
	configValidateCmd.MarkFlagRequired("file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if err := cfg.SaveToFile(configInitOutput); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Println(okStyle.Render("✓ Created default configuration: " + configInitOutput))
	fmt.Println("\nEdit the file and run with:")
	fmt.Printf("  trader step -c %s\n", configInitOutput)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(configValidatePath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	fmt.Println(okStyle.Render("✓ Configuration valid: " + configValidatePath))
	fmt.Printf("  Account:   %.2f (ledger: %s)\n", cfg.Account.Balance, cfg.Account.Ledger.Type)
	fmt.Printf("  Universe:  %s (risk: %.1f%%)\n", strings.Join(cfg.Trading.Universe, ", "), cfg.Trading.RiskFraction*100)
	fmt.Printf("  Reasoning: %s/%s\n", cfg.Reasoning.Provider, cfg.Reasoning.Model)
	fmt.Printf("  Data:      %s\n", cfg.Data.Source)
	fmt.Printf("  Journal:   %s\n", cfg.Journal.Type)
	return nil
}
