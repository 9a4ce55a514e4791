package client

import (
	"encoding/json"
	"fmt"
	"strings"
)

// RequestView represents a help request in API responses.
type RequestView struct {
	ID                 int64  `json:"id"`
	CallerID           string `json:"caller_id"`
	CallerPhone        string `json:"caller_phone,omitempty"`
	Question           string `json:"question"`
	EscalationReason   string `json:"escalation_reason,omitempty"`
	Status             string `json:"status"`
	Priority           string `json:"priority"`
	SupervisorResponse string `json:"supervisor_response,omitempty"`
	SupervisorID       string `json:"supervisor_id,omitempty"`
	ResolvedAt         string `json:"resolved_at,omitempty"`
	FollowedUp         bool   `json:"followed_up"`
	FollowUpAttempts   int    `json:"follow_up_attempts"`
	FollowUpMethod     string `json:"follow_up_method,omitempty"`
	CreatedAt          string `json:"created_at"`
	UpdatedAt          string `json:"updated_at"`
}

func parseRequest(data json.RawMessage) (*RequestView, error) {
	var view RequestView
	if err := json.Unmarshal(data, &view); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &view, nil
}

func printRequest(view *RequestView) {
	fmt.Printf("Request #%d [%s/%s]\n", view.ID, view.Status, view.Priority)
	fmt.Printf("  Caller: %s", view.CallerID)
	if view.CallerPhone != "" {
		fmt.Printf(" (%s)", view.CallerPhone)
	}
	fmt.Println()
	fmt.Printf("  Question: %s\n", view.Question)
	if view.EscalationReason != "" {
		fmt.Printf("  Escalation: %s\n", view.EscalationReason)
	}
	if view.SupervisorResponse != "" {
		fmt.Printf("  Answer: %s (by %s)\n", view.SupervisorResponse, view.SupervisorID)
	}
	if view.ResolvedAt != "" {
		fmt.Printf("  Resolved: %s\n", view.ResolvedAt)
	}
	if view.FollowUpAttempts > 0 || view.FollowedUp {
		fmt.Printf("  Follow-up: delivered=%t attempts=%d", view.FollowedUp, view.FollowUpAttempts)
		if view.FollowUpMethod != "" {
			fmt.Printf(" via %s", view.FollowUpMethod)
		}
		fmt.Println()
	}
	fmt.Printf("  Created: %s\n", view.CreatedAt)
}

func printRequestList(views []*RequestView) {
	for i, view := range views {
		printRequest(view)
		if i < len(views)-1 {
			fmt.Println(strings.Repeat("-", 40))
		}
	}
}

func printJSON(v interface{}) {
	output, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(output))
}
