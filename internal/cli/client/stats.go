package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// RequestStatsView represents the request stats API response.
type RequestStatsView struct {
	Pending            int64   `json:"pending"`
	Resolved           int64   `json:"resolved"`
	Unresolved         int64   `json:"unresolved"`
	Escalated          int64   `json:"escalated"`
	UrgentPending      int64   `json:"urgent_pending"`
	Total              int64   `json:"total"`
	AvgResolutionHours float64 `json:"avg_resolution_hours"`
}

// CategoryStatsView represents one row of the knowledge stats API response.
type CategoryStatsView struct {
	Category      string  `json:"category"`
	TotalEntries  int64   `json:"total_entries"`
	TotalUses     int64   `json:"total_uses"`
	AvgConfidence float64 `json:"avg_confidence"`
}

// StatsCmd creates the stats command.
func StatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show request and knowledge base statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runStats(cmd, outputJSON)
		},
	}

	return cmd
}

func runStats(cmd *cobra.Command, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Get("/requests/stats")
	if err != nil {
		return fmt.Errorf("failed to fetch request stats: %w", err)
	}
	var requests RequestStatsView
	if err := json.Unmarshal(resp.Data, &requests); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	kbResp, err := api.Get("/kb/stats")
	if err != nil {
		return fmt.Errorf("failed to fetch knowledge stats: %w", err)
	}
	var categories []CategoryStatsView
	if err := json.Unmarshal(kbResp.Data, &categories); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		out := struct {
			Requests  RequestStatsView    `json:"requests"`
			Knowledge []CategoryStatsView `json:"knowledge"`
		}{Requests: requests, Knowledge: categories}
		printJSON(out)
		return nil
	}

	fmt.Println("Requests:")
	fmt.Printf("  Pending:    %d (urgent: %d)\n", requests.Pending, requests.UrgentPending)
	fmt.Printf("  Escalated:  %d\n", requests.Escalated)
	fmt.Printf("  Resolved:   %d\n", requests.Resolved)
	fmt.Printf("  Unresolved: %d\n", requests.Unresolved)
	fmt.Printf("  Total:      %d\n", requests.Total)
	if requests.AvgResolutionHours > 0 {
		fmt.Printf("  Avg resolution: %.1fh\n", requests.AvgResolutionHours)
	}

	fmt.Println("\nKnowledge base:")
	if len(categories) == 0 {
		fmt.Println("  No active entries.")
		return nil
	}
	for _, c := range categories {
		fmt.Printf("  %s: %d entries, %d uses, avg confidence %.2f\n",
			c.Category, c.TotalEntries, c.TotalUses, c.AvgConfidence)
	}
	return nil
}
