package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// PendingCmd creates the pending command.
func PendingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List requests awaiting a supervisor",
		Long:  "Lists pending and escalated requests, most urgent first.",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runPending(cmd, outputJSON)
		},
	}

	return cmd
}

func runPending(cmd *cobra.Command, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Get("/requests/pending")
	if err != nil {
		return fmt.Errorf("failed to list pending requests: %w", err)
	}

	var views []*RequestView
	if err := json.Unmarshal(resp.Data, &views); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		printJSON(views)
		return nil
	}

	if len(views) == 0 {
		fmt.Println("No requests waiting.")
		return nil
	}

	fmt.Printf("%d request(s) waiting:\n\n", len(views))
	printRequestList(views)
	return nil
}
