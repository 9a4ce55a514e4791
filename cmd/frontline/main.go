package main

import (
	"fmt"
	"os"

	"github.com/frontline-hq/frontline/internal/cli"
	"github.com/frontline-hq/frontline/internal/cli/client"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "frontline",
		Short: "Frontline CLI - Supervisor console for escalated help requests",
		Long: `Frontline CLI provides commands for supervisors to work the help
request queue and curate the learned knowledge base.

Environment variables:
  FRONTLINE_API_URL   API base URL (default: http://localhost:8080)`,
		Version: version,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env and config)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.InitCmd())
	rootCmd.AddCommand(client.PendingCmd())
	rootCmd.AddCommand(client.ListCmd())
	rootCmd.AddCommand(client.ShowCmd())
	rootCmd.AddCommand(client.ResolveCmd())
	rootCmd.AddCommand(client.UnresolvedCmd())
	rootCmd.AddCommand(client.FollowUpCmd())
	rootCmd.AddCommand(client.TranscriptCmd())
	rootCmd.AddCommand(client.StatsCmd())
	rootCmd.AddCommand(client.KBCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
