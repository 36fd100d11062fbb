package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "2.0.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  `Display the current version of the trader CLI.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("trader version %s\n", version)
		fmt.Println("An LLM-assisted equity trader with simulated execution")
		fmt.Println("https://github.com/rustyeddy/trader")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
