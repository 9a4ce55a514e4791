package client

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ResolveAPIRequest represents the resolve API request.
type ResolveAPIRequest struct {
	SupervisorID string `json:"supervisor_id"`
	Answer       string `json:"answer"`
}

// ResolveCmd creates the resolve command.
func ResolveCmd() *cobra.Command {
	var (
		supervisorID string
		answer       string
	)

	cmd := &cobra.Command{
		Use:   "resolve <request-id>",
		Short: "Resolve a help request",
		Long:  "Records the supervisor's answer and folds it into the knowledge base.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runResolve(cmd, args[0], supervisorID, answer, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&supervisorID, "supervisor", "s", "", "Supervisor identifier (required)")
	cmd.Flags().StringVarP(&answer, "answer", "a", "", "Answer for the caller (required)")
	_ = cmd.MarkFlagRequired("supervisor")
	_ = cmd.MarkFlagRequired("answer")

	return cmd
}

func runResolve(cmd *cobra.Command, rawID, supervisorID, answer string, outputJSON bool) error {
	id, err := parseID(rawID)
	if err != nil {
		return err
	}

	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Post(fmt.Sprintf("/requests/%d/resolve", id), ResolveAPIRequest{
		SupervisorID: supervisorID,
		Answer:       answer,
	})
	if err != nil {
		return fmt.Errorf("failed to resolve request: %w", err)
	}

	view, err := parseRequest(resp.Data)
	if err != nil {
		return err
	}

	if outputJSON {
		printJSON(view)
		return nil
	}

	fmt.Printf("Request #%d resolved.\n", view.ID)
	printRequest(view)
	return nil
}
