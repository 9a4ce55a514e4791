package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// TranscriptView represents the transcript API response.
type TranscriptView struct {
	URL string `json:"url"`
}

// TranscriptCmd creates the transcript command.
func TranscriptCmd() *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "transcript <request-id>",
		Short: "Fetch the archived call transcript",
		Long:  "Resolves the archived transcript to a download URL, optionally saving it to a file.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranscript(cmd, args[0], outputPath)
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output-file", "o", "", "Download the transcript to this path")

	return cmd
}

func runTranscript(cmd *cobra.Command, rawID, outputPath string) error {
	id, err := parseID(rawID)
	if err != nil {
		return err
	}

	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Get(fmt.Sprintf("/requests/%d/transcript", id))
	if err != nil {
		return fmt.Errorf("failed to fetch transcript: %w", err)
	}

	var view TranscriptView
	if err := json.Unmarshal(resp.Data, &view); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputPath == "" {
		fmt.Println(view.URL)
		return nil
	}

	if err := api.DownloadFile(view.URL, outputPath); err != nil {
		return err
	}
	fmt.Printf("Transcript saved to %s\n", outputPath)
	return nil
}
