package client

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// LinkView represents a request/knowledge link in API responses.
type LinkView struct {
	RequestID int64  `json:"request_id"`
	KBID      int64  `json:"kb_id"`
	CreatedAt string `json:"created_at"`
}

// ShowCmd creates the show command.
func ShowCmd() *cobra.Command {
	var withLinks bool

	cmd := &cobra.Command{
		Use:   "show <request-id>",
		Short: "Show a help request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runShow(cmd, args[0], withLinks, outputJSON)
		},
	}

	cmd.Flags().BoolVar(&withLinks, "links", false, "Include linked knowledge entries")

	return cmd
}

func runShow(cmd *cobra.Command, rawID string, withLinks, outputJSON bool) error {
	id, err := parseID(rawID)
	if err != nil {
		return err
	}

	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Get(fmt.Sprintf("/requests/%d", id))
	if err != nil {
		return fmt.Errorf("failed to fetch request: %w", err)
	}

	view, err := parseRequest(resp.Data)
	if err != nil {
		return err
	}

	var links []*LinkView
	if withLinks {
		linksResp, err := api.Get(fmt.Sprintf("/requests/%d/links", id))
		if err != nil {
			return fmt.Errorf("failed to fetch links: %w", err)
		}
		if err := json.Unmarshal(linksResp.Data, &links); err != nil {
			return fmt.Errorf("failed to parse links: %w", err)
		}
	}

	if outputJSON {
		out := struct {
			Request *RequestView `json:"request"`
			Links   []*LinkView  `json:"links,omitempty"`
		}{Request: view, Links: links}
		printJSON(out)
		return nil
	}

	printRequest(view)
	if withLinks {
		if len(links) == 0 {
			fmt.Println("  Knowledge links: none")
		} else {
			fmt.Println("  Knowledge links:")
			for _, link := range links {
				fmt.Printf("    kb #%d (linked %s)\n", link.KBID, link.CreatedAt)
			}
		}
	}
	return nil
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q: expected a positive integer", raw)
	}
	return id, nil
}
