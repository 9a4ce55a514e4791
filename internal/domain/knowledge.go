package domain

import (
	"strings"
	"time"
)

// KnowledgeSource describes where a knowledge entry came from
const (
	SourceSupervisor = "supervisor"
	SourceManual     = "manual"
	SourceImport     = "import"
)

// DefaultConfidence is the confidence score assigned to a fresh entry.
// It only moves once customer feedback arrives; absence of feedback is
// not a negative signal.
const DefaultConfidence = 1.0

// KnowledgeEntry is a learned question/answer pair usable to auto-resolve
// future matching requests.
type KnowledgeEntry struct {
	ID               int64
	Question         string
	Answer           string
	Source           string
	Category         string
	ConfidenceScore  float64
	UsageCount       int
	LastUsedAt       *time.Time
	PositiveFeedback int
	NegativeFeedback int
	IsActive         bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
	CreatedBy        string
}

// SmoothedConfidence computes the Laplace-smoothed confidence ratio for the
// given feedback counters: (pos+1)/(pos+neg+2). Smoothing keeps the score
// away from the degenerate 0/1 extremes until enough signal accumulates.
func SmoothedConfidence(positive, negative int) float64 {
	return float64(positive+1) / float64(positive+negative+2)
}

// ValidateNewEntry validates the fields required to upsert an entry.
func ValidateNewEntry(e *KnowledgeEntry) error {
	if e == nil {
		return NewDomainError(ErrCodeValidation, "knowledge entry cannot be nil")
	}
	if strings.TrimSpace(e.Question) == "" {
		return NewDomainError(ErrCodeValidation, "question is required")
	}
	if strings.TrimSpace(e.Answer) == "" {
		return NewDomainError(ErrCodeValidation, "answer is required")
	}
	return nil
}

// RequestKnowledgeLink is an append-only trace of which knowledge entries
// were considered or used for a given request.
type RequestKnowledgeLink struct {
	RequestID int64
	KBID      int64
	CreatedAt time.Time
}

// CategoryStats aggregates knowledge entries per category for the admin UI.
type CategoryStats struct {
	Category      string
	TotalEntries  int64
	TotalUses     int64
	AvgConfidence float64
}
