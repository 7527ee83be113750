package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "helpdesk-cli",
	Short: "Operator tool for helpdesk-api",
	Long: `helpdesk-cli manages the helpdesk-api database schema and Telegram webhook,
and lets you try the commitment detector on a piece of text.

Settings are read from the same environment variables as the server.

Examples:
  helpdesk-cli migrate up
  helpdesk-cli migrate down --steps 1
  helpdesk-cli webhook set https://helpdesk.example.com/webhook/telegram
  helpdesk-cli webhook info
  helpdesk-cli detect "I'll send the invoice tomorrow"`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(webhookCmd)
	rootCmd.AddCommand(detectCmd)

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
}
