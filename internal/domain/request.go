package domain

import (
	"strings"
	"time"
)

// RequestStatus represents the lifecycle state of a help request
type RequestStatus string

const (
	RequestStatusPending    RequestStatus = "pending"
	RequestStatusResolved   RequestStatus = "resolved"
	RequestStatusUnresolved RequestStatus = "unresolved"
	RequestStatusEscalated  RequestStatus = "escalated"
)

// RequestPriority represents the urgency of a help request
type RequestPriority string

const (
	PriorityNormal RequestPriority = "normal"
	PriorityHigh   RequestPriority = "high"
	PriorityUrgent RequestPriority = "urgent"
)

// Follow-up delivery channels.
const (
	FollowUpMethodSMS      = "sms"
	FollowUpMethodCallback = "callback"
)

// AutoSupervisorID is the sentinel supervisor recorded when a request is
// resolved automatically from the knowledge base, with no human involved.
const AutoSupervisorID = "auto"

// HelpRequest represents a customer question escalated from the automated
// agent to a human supervisor.
type HelpRequest struct {
	ID                 int64
	CallerID           string
	CallerPhone        string
	Question           string
	EscalationReason   string
	CallTranscript     string
	TranscriptKey      string
	Status             RequestStatus
	Priority           RequestPriority
	SupervisorResponse string
	SupervisorID       string
	ResolvedAt         *time.Time
	FollowedUp         bool
	FollowUpAttempts   int
	FollowUpMethod     string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// IsTerminal reports whether the request has reached a state that no
// transition leaves.
func (r *HelpRequest) IsTerminal() bool {
	return r.Status == RequestStatusResolved || r.Status == RequestStatusUnresolved
}

// IsAwaitingSupervisor reports whether the request is still in the
// supervisor queue (pending or escalated).
func (r *HelpRequest) IsAwaitingSupervisor() bool {
	return r.Status == RequestStatusPending || r.Status == RequestStatusEscalated
}

// ValidateNewRequest validates the fields required at creation time.
func ValidateNewRequest(r *HelpRequest) error {
	if r == nil {
		return NewDomainError(ErrCodeValidation, "help request cannot be nil")
	}
	if strings.TrimSpace(r.CallerID) == "" {
		return NewDomainError(ErrCodeValidation, "caller_id is required")
	}
	if strings.TrimSpace(r.Question) == "" {
		return NewDomainError(ErrCodeValidation, "question is required")
	}
	if !IsValidStatus(r.Status) {
		return ErrInvalidStatus
	}
	if !IsValidPriority(r.Priority) {
		return ErrInvalidPriority
	}
	return nil
}

// IsValidStatus checks if a RequestStatus is one of the enumerated values
func IsValidStatus(s RequestStatus) bool {
	switch s {
	case RequestStatusPending, RequestStatusResolved, RequestStatusUnresolved, RequestStatusEscalated:
		return true
	}
	return false
}

// IsValidPriority checks if a RequestPriority is one of the enumerated values
func IsValidPriority(p RequestPriority) bool {
	switch p {
	case PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// RequestFilter narrows List queries. Zero values mean "no filter".
type RequestFilter struct {
	Status   RequestStatus
	CallerID string
	Priority RequestPriority
}

// RequestStats summarizes the request table for operational dashboards.
type RequestStats struct {
	Pending            int64
	Resolved           int64
	Unresolved         int64
	Escalated          int64
	UrgentPending      int64
	Total              int64
	AvgResolutionHours float64
}
