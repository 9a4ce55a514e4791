package client

import (
	"fmt"

	"github.com/spf13/cobra"
)

// UnresolvedAPIRequest represents the mark-unresolved API request.
type UnresolvedAPIRequest struct {
	SupervisorID string `json:"supervisor_id"`
	Reason       string `json:"reason"`
}

// UnresolvedCmd creates the unresolved command.
func UnresolvedCmd() *cobra.Command {
	var (
		supervisorID string
		reason       string
	)

	cmd := &cobra.Command{
		Use:   "unresolved <request-id>",
		Short: "Close a help request without an answer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runUnresolved(cmd, args[0], supervisorID, reason, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&supervisorID, "supervisor", "s", "", "Supervisor identifier (required)")
	cmd.Flags().StringVarP(&reason, "reason", "r", "", "Why the request could not be answered")
	_ = cmd.MarkFlagRequired("supervisor")

	return cmd
}

func runUnresolved(cmd *cobra.Command, rawID, supervisorID, reason string, outputJSON bool) error {
	id, err := parseID(rawID)
	if err != nil {
		return err
	}

	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Post(fmt.Sprintf("/requests/%d/unresolved", id), UnresolvedAPIRequest{
		SupervisorID: supervisorID,
		Reason:       reason,
	})
	if err != nil {
		return fmt.Errorf("failed to mark request unresolved: %w", err)
	}

	view, err := parseRequest(resp.Data)
	if err != nil {
		return err
	}

	if outputJSON {
		printJSON(view)
		return nil
	}

	fmt.Printf("Request #%d closed as unresolved.\n", view.ID)
	printRequest(view)
	return nil
}
