package service

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/frontline-hq/frontline/internal/domain"
	"github.com/frontline-hq/frontline/internal/pagination"
	"github.com/frontline-hq/frontline/internal/telemetry"
)

// RequestService owns the help-request state machine: creation, escalation,
// supervisor resolution, follow-up bookkeeping and knowledge base promotion.
type RequestService struct {
	requests  RequestRepositoryInterface
	knowledge KnowledgeRepositoryInterface
	links     LinkRepositoryInterface
	matcher   Matcher
	tx        TxRunner
	archive   TranscriptArchiver
}

// TranscriptArchiver stores a call transcript out of band and returns the
// storage key.
type TranscriptArchiver interface {
	PutTranscript(ctx context.Context, requestID int64, transcript string) (string, error)
}

func NewRequestService(
	requests RequestRepositoryInterface,
	knowledge KnowledgeRepositoryInterface,
	links LinkRepositoryInterface,
	matcher Matcher,
	tx TxRunner,
) *RequestService {
	return &RequestService{
		requests:  requests,
		knowledge: knowledge,
		links:     links,
		matcher:   matcher,
		tx:        tx,
	}
}

// CreateRequestInput carries the inbound question boundary contract from
// the agent collaborator.
type CreateRequestInput struct {
	CallerID         string
	Question         string
	CallerPhone      string
	CallTranscript   string
	EscalationReason string
	Priority         domain.RequestPriority
}

// CreateRequest tries to answer the question from the knowledge base first.
// On a hit the request is born resolved with the sentinel supervisor and the
// entry's usage is counted, all in one transaction. On a miss it enters the
// supervisor queue as pending, or escalated when the agent flagged urgency.
func (s *RequestService) CreateRequest(ctx context.Context, input CreateRequestInput) (*domain.HelpRequest, error) {
	ctx, span := telemetry.StartSpan(ctx, "RequestService.CreateRequest", telemetry.SpanAttributes{
		CallerID:  input.CallerID,
		Operation: "create",
	})
	defer span.End()

	priority := input.Priority
	if priority == "" {
		priority = domain.PriorityNormal
	}

	now := time.Now().UTC()
	request := &domain.HelpRequest{
		CallerID:         input.CallerID,
		CallerPhone:      input.CallerPhone,
		Question:         input.Question,
		EscalationReason: input.EscalationReason,
		CallTranscript:   input.CallTranscript,
		Status:           domain.RequestStatusPending,
		Priority:         priority,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := domain.ValidateNewRequest(request); err != nil {
		return nil, err
	}

	match, err := s.matcher.FindAnswer(ctx, input.Question)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	if match.Hit {
		request.Status = domain.RequestStatusResolved
		request.SupervisorResponse = match.Entry.Answer
		request.SupervisorID = domain.AutoSupervisorID
		request.ResolvedAt = &now

		// Request insert, link insert and usage increment commit together:
		// a half-recorded auto-resolution must never be observable.
		err = s.tx.WithTx(ctx, func(repos TxRepositories) error {
			if err := repos.Requests().Create(ctx, request); err != nil {
				return err
			}
			if err := repos.Links().Create(ctx, request.ID, match.Entry.ID); err != nil {
				return err
			}
			return repos.Knowledge().RecordUsage(ctx, match.Entry.ID)
		})
		if err != nil {
			span.SetError(err)
			return nil, err
		}
		s.archiveTranscript(ctx, request)
		return request, nil
	}

	if priority == domain.PriorityHigh || priority == domain.PriorityUrgent {
		request.Status = domain.RequestStatusEscalated
	}

	if err := s.requests.Create(ctx, request); err != nil {
		span.SetError(err)
		return nil, err
	}
	s.archiveTranscript(ctx, request)
	return request, nil
}

// WithTranscriptArchive enables transcript archiving on creation. Archive
// failures never fail the request; the transcript is still stored inline.
func (s *RequestService) WithTranscriptArchive(archive TranscriptArchiver) *RequestService {
	s.archive = archive
	return s
}

func (s *RequestService) archiveTranscript(ctx context.Context, request *domain.HelpRequest) {
	if s.archive == nil || request.CallTranscript == "" {
		return
	}

	key, err := s.archive.PutTranscript(ctx, request.ID, request.CallTranscript)
	if err != nil {
		log.Printf("Failed to archive transcript for request %d: %v", request.ID, err)
		return
	}
	if err := s.requests.SetTranscriptKey(ctx, request.ID, key); err != nil {
		log.Printf("Failed to record transcript key for request %d: %v", request.ID, err)
		return
	}
	request.TranscriptKey = key
}

// Resolve records a supervisor's answer and learns from it atomically:
// the state transition, the knowledge entry upsert and the link insert are
// one transaction. Only one of N concurrent resolutions can win; the rest
// observe the terminal state and fail.
func (s *RequestService) Resolve(ctx context.Context, requestID int64, supervisorID, answer string) (*domain.HelpRequest, error) {
	ctx, span := telemetry.StartSpan(ctx, "RequestService.Resolve", telemetry.SpanAttributes{
		RequestID: requestID,
		Operation: "resolve",
	})
	defer span.End()

	if strings.TrimSpace(supervisorID) == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "supervisor_id is required")
	}
	if strings.TrimSpace(answer) == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "answer is required")
	}

	var resolved *domain.HelpRequest
	err := s.tx.WithTx(ctx, func(repos TxRepositories) error {
		var err error
		resolved, err = repos.Requests().Resolve(ctx, requestID, supervisorID, answer)
		if err != nil {
			return err
		}

		entry, err := repos.Knowledge().Upsert(ctx, &domain.KnowledgeEntry{
			Question:  resolved.Question,
			Answer:    answer,
			Source:    domain.SourceSupervisor,
			CreatedBy: supervisorID,
		})
		if err != nil {
			return err
		}

		return repos.Links().Create(ctx, requestID, entry.ID)
	})
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	return resolved, nil
}

// MarkUnresolved closes a request without an answer. Nothing is learned
// from a non-answer, so the knowledge base is untouched.
func (s *RequestService) MarkUnresolved(ctx context.Context, requestID int64, supervisorID, reason string) (*domain.HelpRequest, error) {
	ctx, span := telemetry.StartSpan(ctx, "RequestService.MarkUnresolved", telemetry.SpanAttributes{
		RequestID: requestID,
		Operation: "mark_unresolved",
	})
	defer span.End()

	if strings.TrimSpace(supervisorID) == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "supervisor_id is required")
	}
	if strings.TrimSpace(reason) == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "reason is required")
	}

	req, err := s.requests.MarkUnresolved(ctx, requestID, supervisorID, reason)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	return req, nil
}

// RecordFollowUpAttempt records one delivery attempt by the notification
// collaborator. Attempts count unconditionally; followed_up and the method
// are only set by the first success. Retry policy belongs to the caller.
func (s *RequestService) RecordFollowUpAttempt(ctx context.Context, requestID int64, method string, succeeded bool) (*domain.HelpRequest, error) {
	if strings.TrimSpace(method) == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "method is required")
	}
	return s.requests.RecordFollowUpAttempt(ctx, requestID, method, succeeded)
}

// GetByID retrieves a help request by id.
func (s *RequestService) GetByID(ctx context.Context, id int64) (*domain.HelpRequest, error) {
	return s.requests.GetByID(ctx, id)
}

// ListRequestsInput filters and paginates request listings.
type ListRequestsInput struct {
	Status   domain.RequestStatus
	CallerID string
	Priority domain.RequestPriority
	Cursor   string
	Limit    int
}

// ListRequestsOutput is one page of requests, newest first.
type ListRequestsOutput struct {
	Items   []*domain.HelpRequest
	Cursor  string
	HasMore bool
}

// List returns requests ordered by created_at descending.
func (s *RequestService) List(ctx context.Context, input ListRequestsInput) (*ListRequestsOutput, error) {
	if input.Status != "" && !domain.IsValidStatus(input.Status) {
		return nil, domain.ErrInvalidStatus
	}
	if input.Priority != "" && !domain.IsValidPriority(input.Priority) {
		return nil, domain.ErrInvalidPriority
	}

	cursor, err := pagination.DecodeCursor(input.Cursor)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid cursor", err)
	}

	filter := domain.RequestFilter{
		Status:   input.Status,
		CallerID: input.CallerID,
		Priority: input.Priority,
	}
	page, err := s.requests.List(ctx, filter, cursor, input.Limit)
	if err != nil {
		return nil, err
	}
	return &ListRequestsOutput{
		Items:   page.Items,
		Cursor:  page.NextCursor,
		HasMore: page.HasMore,
	}, nil
}

// ListPending returns the supervisor queue: urgent first, then high, then
// normal, newest first within each band.
func (s *RequestService) ListPending(ctx context.Context) ([]*domain.HelpRequest, error) {
	return s.requests.ListPending(ctx)
}

// SweepTimeouts marks requests that have waited past the cutoff as
// unresolved so they stop clogging the queue.
func (s *RequestService) SweepTimeouts(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "RequestService.SweepTimeouts", telemetry.SpanAttributes{
		Operation: "sweep_timeouts",
	})
	defer span.End()

	return s.requests.SweepTimeouts(ctx, cutoff, "timed out waiting for supervisor")
}

// Stats summarizes the request table for dashboards.
func (s *RequestService) Stats(ctx context.Context) (*domain.RequestStats, error) {
	return s.requests.Stats(ctx)
}

// Links returns the knowledge entries considered or used for a request.
func (s *RequestService) Links(ctx context.Context, requestID int64) ([]*domain.RequestKnowledgeLink, error) {
	return s.links.ListByRequest(ctx, requestID)
}
