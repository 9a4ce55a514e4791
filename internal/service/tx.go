package service

import (
	"context"
	"time"

	"github.com/frontline-hq/frontline/internal/domain"
	"github.com/frontline-hq/frontline/internal/pagination"
)

// RequestRepositoryInterface defines the repository interface for help request persistence
type RequestRepositoryInterface interface {
	Create(ctx context.Context, r *domain.HelpRequest) error
	GetByID(ctx context.Context, id int64) (*domain.HelpRequest, error)
	List(ctx context.Context, filter domain.RequestFilter, cursor *pagination.Cursor, limit int) (*RequestPageResult, error)
	ListPending(ctx context.Context) ([]*domain.HelpRequest, error)
	ListForFollowUp(ctx context.Context, maxAttempts, limit int) ([]*domain.HelpRequest, error)
	Resolve(ctx context.Context, id int64, supervisorID, response string) (*domain.HelpRequest, error)
	MarkUnresolved(ctx context.Context, id int64, supervisorID, reason string) (*domain.HelpRequest, error)
	RecordFollowUpAttempt(ctx context.Context, id int64, method string, succeeded bool) (*domain.HelpRequest, error)
	SweepTimeouts(ctx context.Context, cutoff time.Time, reason string) (int64, error)
	SetTranscriptKey(ctx context.Context, id int64, key string) error
	Stats(ctx context.Context) (*domain.RequestStats, error)
}

// RequestPageResult is one page of a cursor-paginated request listing.
type RequestPageResult struct {
	Items      []*domain.HelpRequest
	NextCursor string
	HasMore    bool
}

// KnowledgeRepositoryInterface defines the repository interface for knowledge base persistence
type KnowledgeRepositoryInterface interface {
	Upsert(ctx context.Context, e *domain.KnowledgeEntry) (*domain.KnowledgeEntry, error)
	GetActive(ctx context.Context, id int64) (*domain.KnowledgeEntry, error)
	GetAny(ctx context.Context, id int64) (*domain.KnowledgeEntry, error)
	SearchCandidates(ctx context.Context, tokens []string, limit int) ([]*domain.KnowledgeEntry, error)
	RecordUsage(ctx context.Context, id int64) error
	RecordFeedback(ctx context.Context, id int64, positive bool) error
	Deactivate(ctx context.Context, id int64) error
	List(ctx context.Context, filter EntryFilter) ([]*domain.KnowledgeEntry, error)
	CategoryStats(ctx context.Context) ([]*domain.CategoryStats, error)
}

// EntryFilter narrows knowledge base listings. ActiveOnly selects the
// serving view; the audit view includes deactivated entries.
type EntryFilter struct {
	Category   string
	ActiveOnly bool
}

// LinkRepositoryInterface defines the repository interface for request/knowledge links
type LinkRepositoryInterface interface {
	Create(ctx context.Context, requestID, kbID int64) error
	Exists(ctx context.Context, requestID, kbID int64) (bool, error)
	ListByRequest(ctx context.Context, requestID int64) ([]*domain.RequestKnowledgeLink, error)
}

// TxRepositories exposes repositories bound to a single transaction.
type TxRepositories interface {
	Requests() RequestRepositoryInterface
	Knowledge() KnowledgeRepositoryInterface
	Links() LinkRepositoryInterface
}

// TxRunner runs a function inside one storage transaction. The callback's
// writes either all commit or all roll back.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(repos TxRepositories) error) error
}
