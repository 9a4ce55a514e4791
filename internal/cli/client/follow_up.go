package client

import (
	"fmt"

	"github.com/spf13/cobra"
)

// FollowUpAPIRequest represents the follow-up API request.
type FollowUpAPIRequest struct {
	Method    string `json:"method"`
	Succeeded bool   `json:"succeeded"`
}

// FollowUpCmd creates the follow-up command.
func FollowUpCmd() *cobra.Command {
	var (
		method    string
		delivered bool
	)

	cmd := &cobra.Command{
		Use:   "follow-up <request-id>",
		Short: "Record a manual follow-up attempt",
		Long:  "Records that the caller was (or could not be) contacted with the outcome of their request.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runFollowUp(cmd, args[0], method, delivered, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&method, "method", "m", "sms", "Contact method (sms|callback)")
	cmd.Flags().BoolVar(&delivered, "delivered", true, "Whether the caller was actually reached")

	return cmd
}

func runFollowUp(cmd *cobra.Command, rawID, method string, delivered, outputJSON bool) error {
	id, err := parseID(rawID)
	if err != nil {
		return err
	}

	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Post(fmt.Sprintf("/requests/%d/follow-up", id), FollowUpAPIRequest{
		Method:    method,
		Succeeded: delivered,
	})
	if err != nil {
		return fmt.Errorf("failed to record follow-up: %w", err)
	}

	view, err := parseRequest(resp.Data)
	if err != nil {
		return err
	}

	if outputJSON {
		printJSON(view)
		return nil
	}

	fmt.Printf("Follow-up recorded for request #%d (attempts: %d).\n", view.ID, view.FollowUpAttempts)
	return nil
}
