package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
)

// EntryView represents a knowledge entry in API responses.
type EntryView struct {
	ID               int64   `json:"id"`
	Question         string  `json:"question"`
	Answer           string  `json:"answer"`
	Source           string  `json:"source"`
	Category         string  `json:"category,omitempty"`
	ConfidenceScore  float64 `json:"confidence_score"`
	UsageCount       int     `json:"usage_count"`
	LastUsedAt       string  `json:"last_used_at,omitempty"`
	PositiveFeedback int     `json:"positive_feedback"`
	NegativeFeedback int     `json:"negative_feedback"`
	IsActive         bool    `json:"is_active"`
	CreatedBy        string  `json:"created_by,omitempty"`
	CreatedAt        string  `json:"created_at"`
	UpdatedAt        string  `json:"updated_at"`
}

func printEntry(e *EntryView) {
	state := "active"
	if !e.IsActive {
		state = "inactive"
	}
	fmt.Printf("Entry #%d [%s] (%s)\n", e.ID, state, e.Source)
	fmt.Printf("  Q: %s\n", e.Question)
	fmt.Printf("  A: %s\n", e.Answer)
	if e.Category != "" {
		fmt.Printf("  Category: %s\n", e.Category)
	}
	fmt.Printf("  Confidence: %.2f (+%d/-%d), used %d time(s)\n",
		e.ConfidenceScore, e.PositiveFeedback, e.NegativeFeedback, e.UsageCount)
	if e.LastUsedAt != "" {
		fmt.Printf("  Last used: %s\n", e.LastUsedAt)
	}
}

// KBCmd creates the kb command group.
func KBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kb",
		Short: "Manage the knowledge base",
		Long:  "Commands to inspect and curate learned question/answer pairs.",
	}

	cmd.AddCommand(kbAddCmd())
	cmd.AddCommand(kbListCmd())
	cmd.AddCommand(kbShowCmd())
	cmd.AddCommand(kbSearchCmd())
	cmd.AddCommand(kbDeactivateCmd())
	cmd.AddCommand(kbFeedbackCmd())

	return cmd
}

// UpsertAPIRequest represents the knowledge upsert API request.
type UpsertAPIRequest struct {
	Question  string `json:"question"`
	Answer    string `json:"answer"`
	Category  string `json:"category,omitempty"`
	Source    string `json:"source,omitempty"`
	CreatedBy string `json:"created_by,omitempty"`
}

func kbAddCmd() *cobra.Command {
	var (
		question  string
		answer    string
		category  string
		createdBy string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add or update a knowledge entry",
		Long:  "Upserts a question/answer pair. An existing entry with the same question is updated in place.",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runKBAdd(cmd, question, answer, category, createdBy, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&question, "question", "q", "", "Question text (required)")
	cmd.Flags().StringVarP(&answer, "answer", "a", "", "Answer text (required)")
	cmd.Flags().StringVarP(&category, "category", "c", "", "Category label")
	cmd.Flags().StringVar(&createdBy, "by", "", "Author identifier")
	_ = cmd.MarkFlagRequired("question")
	_ = cmd.MarkFlagRequired("answer")

	return cmd
}

func runKBAdd(cmd *cobra.Command, question, answer, category, createdBy string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Post("/kb", UpsertAPIRequest{
		Question:  question,
		Answer:    answer,
		Category:  category,
		Source:    "manual",
		CreatedBy: createdBy,
	})
	if err != nil {
		return fmt.Errorf("failed to save entry: %w", err)
	}

	var entry EntryView
	if err := json.Unmarshal(resp.Data, &entry); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		printJSON(entry)
		return nil
	}

	fmt.Printf("Saved entry #%d.\n", entry.ID)
	return nil
}

func kbListCmd() *cobra.Command {
	var (
		category string
		all      bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List knowledge entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runKBList(cmd, category, all, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "Filter by category")
	cmd.Flags().BoolVar(&all, "all", false, "Include deactivated entries")

	return cmd
}

func runKBList(cmd *cobra.Command, category string, all, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	query := url.Values{}
	if category != "" {
		query.Set("category", category)
	}
	if all {
		query.Set("active_only", "false")
	}
	path := "/kb"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	resp, err := api.Get(path)
	if err != nil {
		return fmt.Errorf("list failed: %w", err)
	}

	var entries []*EntryView
	if err := json.Unmarshal(resp.Data, &entries); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		printJSON(entries)
		return nil
	}

	if len(entries) == 0 {
		fmt.Println("No entries found.")
		return nil
	}

	fmt.Printf("Found %d entries:\n\n", len(entries))
	for i, e := range entries {
		printEntry(e)
		if i < len(entries)-1 {
			fmt.Println(strings.Repeat("-", 40))
		}
	}
	return nil
}

func kbShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <entry-id>",
		Short: "Show a knowledge entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runKBShow(cmd, args[0], outputJSON)
		},
	}

	return cmd
}

func runKBShow(cmd *cobra.Command, rawID string, outputJSON bool) error {
	id, err := parseID(rawID)
	if err != nil {
		return err
	}

	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Get(fmt.Sprintf("/kb/%d", id))
	if err != nil {
		return fmt.Errorf("failed to fetch entry: %w", err)
	}

	var entry EntryView
	if err := json.Unmarshal(resp.Data, &entry); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		printJSON(entry)
		return nil
	}

	printEntry(&entry)
	return nil
}

// SearchAPIRequest represents the knowledge search API request.
type SearchAPIRequest struct {
	Question string `json:"question"`
}

// SearchAPIResponse represents the knowledge search API response.
type SearchAPIResponse struct {
	Hit   bool       `json:"hit"`
	Entry *EntryView `json:"entry,omitempty"`
	Rank  int        `json:"rank,omitempty"`
}

func kbSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <question>",
		Short: "Dry-run a knowledge lookup",
		Long:  "Runs the matcher against the knowledge base without recording usage.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runKBSearch(cmd, args[0], outputJSON)
		},
	}

	return cmd
}

func runKBSearch(cmd *cobra.Command, question string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Post("/kb/search", SearchAPIRequest{Question: question})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	var result SearchAPIResponse
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		printJSON(result)
		return nil
	}

	if !result.Hit {
		fmt.Println("No confident match found.")
		return nil
	}

	fmt.Printf("Match (rank %d):\n", result.Rank)
	printEntry(result.Entry)
	return nil
}

func kbDeactivateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deactivate <entry-id>",
		Short: "Deactivate a knowledge entry",
		Long:  "Removes an entry from matching. The entry keeps owning its question and stays visible for audit.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKBDeactivate(cmd, args[0])
		},
	}

	return cmd
}

func runKBDeactivate(cmd *cobra.Command, rawID string) error {
	id, err := parseID(rawID)
	if err != nil {
		return err
	}

	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	if _, err := api.Delete(fmt.Sprintf("/kb/%d", id)); err != nil {
		return fmt.Errorf("failed to deactivate entry: %w", err)
	}

	fmt.Printf("Entry #%d deactivated.\n", id)
	return nil
}

// FeedbackAPIRequest represents the feedback API request.
type FeedbackAPIRequest struct {
	Positive bool `json:"positive"`
}

func kbFeedbackCmd() *cobra.Command {
	var negative bool

	cmd := &cobra.Command{
		Use:   "feedback <entry-id>",
		Short: "Record customer feedback on an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKBFeedback(cmd, args[0], !negative)
		},
	}

	cmd.Flags().BoolVar(&negative, "negative", false, "Record negative feedback instead of positive")

	return cmd
}

func runKBFeedback(cmd *cobra.Command, rawID string, positive bool) error {
	id, err := parseID(rawID)
	if err != nil {
		return err
	}

	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	if _, err := api.Post(fmt.Sprintf("/kb/%d/feedback", id), FeedbackAPIRequest{Positive: positive}); err != nil {
		return fmt.Errorf("failed to record feedback: %w", err)
	}

	sentiment := "positive"
	if !positive {
		sentiment = "negative"
	}
	fmt.Printf("Recorded %s feedback for entry #%d.\n", sentiment, id)
	return nil
}
