package service

import (
	"context"

	"github.com/frontline-hq/frontline/internal/domain"
	"github.com/frontline-hq/frontline/internal/telemetry"
)

// FeedbackService folds delivery confirmations and customer ratings back
// into the knowledge base's quality and usage metadata.
type FeedbackService struct {
	knowledge KnowledgeRepositoryInterface
	links     LinkRepositoryInterface
}

func NewFeedbackService(knowledge KnowledgeRepositoryInterface, links LinkRepositoryInterface) *FeedbackService {
	return &FeedbackService{knowledge: knowledge, links: links}
}

// OnDelivered records that an answer sourced from the given entry was
// confirmed delivered for the given request. The link must exist: usage is
// attributed, never invented.
func (s *FeedbackService) OnDelivered(ctx context.Context, requestID, kbID int64) error {
	ctx, span := telemetry.StartSpan(ctx, "FeedbackService.OnDelivered", telemetry.SpanAttributes{
		RequestID: requestID,
		EntryID:   kbID,
		Operation: "on_delivered",
	})
	defer span.End()

	linked, err := s.links.Exists(ctx, requestID, kbID)
	if err != nil {
		span.SetError(err)
		return err
	}
	if !linked {
		return domain.NewDomainError(domain.ErrCodeNotFound, "request is not linked to this knowledge entry")
	}

	if err := s.knowledge.RecordUsage(ctx, kbID); err != nil {
		span.SetError(err)
		return err
	}
	return nil
}

// OnCustomerFeedback forwards a customer rating to the store. This is the
// only path by which an entry's confidence score moves away from its
// default.
func (s *FeedbackService) OnCustomerFeedback(ctx context.Context, kbID int64, positive bool) error {
	ctx, span := telemetry.StartSpan(ctx, "FeedbackService.OnCustomerFeedback", telemetry.SpanAttributes{
		EntryID:   kbID,
		Operation: "on_customer_feedback",
	})
	defer span.End()

	if err := s.knowledge.RecordFeedback(ctx, kbID, positive); err != nil {
		span.SetError(err)
		return err
	}
	return nil
}
