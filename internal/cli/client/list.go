package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

// RequestListView represents the paginated list API response.
type RequestListView struct {
	Items   []*RequestView `json:"items"`
	Cursor  string         `json:"cursor,omitempty"`
	HasMore bool           `json:"has_more"`
}

// ListCmd creates the list command.
func ListCmd() *cobra.Command {
	var (
		status   string
		callerID string
		priority string
		limit    int
		cursor   string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List help requests",
		Long:  "Lists help requests with filtering, newest first.",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runRequestList(cmd, status, callerID, priority, limit, cursor, outputJSON)
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by status (pending|escalated|resolved|unresolved)")
	cmd.Flags().StringVar(&callerID, "caller", "", "Filter by caller ID")
	cmd.Flags().StringVar(&priority, "priority", "", "Filter by priority (normal|high|urgent)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of results")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from previous response")

	return cmd
}

func runRequestList(cmd *cobra.Command, status, callerID, priority string, limit int, cursor string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	query := url.Values{}
	if status != "" {
		query.Set("status", status)
	}
	if callerID != "" {
		query.Set("caller_id", callerID)
	}
	if priority != "" {
		query.Set("priority", priority)
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if cursor != "" {
		query.Set("cursor", cursor)
	}

	path := "/requests"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	resp, err := api.Get(path)
	if err != nil {
		return fmt.Errorf("list failed: %w", err)
	}

	var listResp RequestListView
	if err := json.Unmarshal(resp.Data, &listResp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		printJSON(listResp)
		return nil
	}

	if len(listResp.Items) == 0 {
		fmt.Println("No requests found.")
		return nil
	}

	fmt.Printf("Found %d request(s):\n\n", len(listResp.Items))
	printRequestList(listResp.Items)

	if listResp.HasMore && listResp.Cursor != "" {
		fmt.Printf("\nMore results available. Use --cursor %s\n", listResp.Cursor)
	}

	return nil
}
