package service

import (
	"context"
	"strings"

	"github.com/frontline-hq/frontline/internal/domain"
	"github.com/frontline-hq/frontline/internal/telemetry"
)

// KnowledgeService handles business logic for the knowledge base admin
// surface: manual curation, listing and soft deletion.
type KnowledgeService struct {
	repo KnowledgeRepositoryInterface
}

func NewKnowledgeService(repo KnowledgeRepositoryInterface) *KnowledgeService {
	return &KnowledgeService{repo: repo}
}

// UpsertInput represents a manually curated question/answer pair.
type UpsertInput struct {
	Question  string
	Answer    string
	Category  string
	Source    string
	CreatedBy string
}

// Upsert inserts or updates the entry owning the question. An existing
// entry keeps its usage and feedback counters; only the answer and
// attribution change.
func (s *KnowledgeService) Upsert(ctx context.Context, input UpsertInput) (*domain.KnowledgeEntry, error) {
	ctx, span := telemetry.StartSpan(ctx, "KnowledgeService.Upsert", telemetry.SpanAttributes{
		Operation: "upsert",
	})
	defer span.End()

	source := input.Source
	if source == "" {
		source = domain.SourceManual
	}

	entry := &domain.KnowledgeEntry{
		Question:  strings.TrimSpace(input.Question),
		Answer:    input.Answer,
		Category:  input.Category,
		Source:    source,
		CreatedBy: input.CreatedBy,
	}
	if err := domain.ValidateNewEntry(entry); err != nil {
		return nil, err
	}

	stored, err := s.repo.Upsert(ctx, entry)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	return stored, nil
}

// Get retrieves an entry. The serving view only sees active entries; the
// audit view resolves deactivated ones too, so historical links keep
// working.
func (s *KnowledgeService) Get(ctx context.Context, id int64, activeOnly bool) (*domain.KnowledgeEntry, error) {
	if activeOnly {
		return s.repo.GetActive(ctx, id)
	}
	return s.repo.GetAny(ctx, id)
}

// List returns entries ordered by usage, optionally narrowed by category.
func (s *KnowledgeService) List(ctx context.Context, filter EntryFilter) ([]*domain.KnowledgeEntry, error) {
	return s.repo.List(ctx, filter)
}

// Deactivate soft-deletes an entry. The row stays behind both as audit
// history and as a uniqueness guard against re-learning a stale answer.
func (s *KnowledgeService) Deactivate(ctx context.Context, id int64) error {
	ctx, span := telemetry.StartSpan(ctx, "KnowledgeService.Deactivate", telemetry.SpanAttributes{
		EntryID:   id,
		Operation: "deactivate",
	})
	defer span.End()

	if err := s.repo.Deactivate(ctx, id); err != nil {
		span.SetError(err)
		return err
	}
	return nil
}

// CategoryStats aggregates active entries per category.
func (s *KnowledgeService) CategoryStats(ctx context.Context) ([]*domain.CategoryStats, error) {
	return s.repo.CategoryStats(ctx)
}
