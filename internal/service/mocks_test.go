package service

import (
	"context"
	"time"

	"github.com/frontline-hq/frontline/internal/domain"
	"github.com/frontline-hq/frontline/internal/pagination"
	"github.com/stretchr/testify/mock"
)

// MockRequestRepository is a mock implementation of RequestRepositoryInterface
type MockRequestRepository struct {
	mock.Mock
}

func (m *MockRequestRepository) Create(ctx context.Context, r *domain.HelpRequest) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockRequestRepository) GetByID(ctx context.Context, id int64) (*domain.HelpRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.HelpRequest), args.Error(1)
}

func (m *MockRequestRepository) List(ctx context.Context, filter domain.RequestFilter, cursor *pagination.Cursor, limit int) (*RequestPageResult, error) {
	args := m.Called(ctx, filter, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*RequestPageResult), args.Error(1)
}

func (m *MockRequestRepository) ListPending(ctx context.Context) ([]*domain.HelpRequest, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.HelpRequest), args.Error(1)
}

func (m *MockRequestRepository) ListForFollowUp(ctx context.Context, maxAttempts, limit int) ([]*domain.HelpRequest, error) {
	args := m.Called(ctx, maxAttempts, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.HelpRequest), args.Error(1)
}

func (m *MockRequestRepository) Resolve(ctx context.Context, id int64, supervisorID, response string) (*domain.HelpRequest, error) {
	args := m.Called(ctx, id, supervisorID, response)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.HelpRequest), args.Error(1)
}

func (m *MockRequestRepository) MarkUnresolved(ctx context.Context, id int64, supervisorID, reason string) (*domain.HelpRequest, error) {
	args := m.Called(ctx, id, supervisorID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.HelpRequest), args.Error(1)
}

func (m *MockRequestRepository) RecordFollowUpAttempt(ctx context.Context, id int64, method string, succeeded bool) (*domain.HelpRequest, error) {
	args := m.Called(ctx, id, method, succeeded)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.HelpRequest), args.Error(1)
}

func (m *MockRequestRepository) SweepTimeouts(ctx context.Context, cutoff time.Time, reason string) (int64, error) {
	args := m.Called(ctx, cutoff, reason)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRequestRepository) SetTranscriptKey(ctx context.Context, id int64, key string) error {
	args := m.Called(ctx, id, key)
	return args.Error(0)
}

func (m *MockRequestRepository) Stats(ctx context.Context) (*domain.RequestStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RequestStats), args.Error(1)
}

// MockKnowledgeRepository is a mock implementation of KnowledgeRepositoryInterface
type MockKnowledgeRepository struct {
	mock.Mock
}

func (m *MockKnowledgeRepository) Upsert(ctx context.Context, e *domain.KnowledgeEntry) (*domain.KnowledgeEntry, error) {
	args := m.Called(ctx, e)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.KnowledgeEntry), args.Error(1)
}

func (m *MockKnowledgeRepository) GetActive(ctx context.Context, id int64) (*domain.KnowledgeEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.KnowledgeEntry), args.Error(1)
}

func (m *MockKnowledgeRepository) GetAny(ctx context.Context, id int64) (*domain.KnowledgeEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.KnowledgeEntry), args.Error(1)
}

func (m *MockKnowledgeRepository) SearchCandidates(ctx context.Context, tokens []string, limit int) ([]*domain.KnowledgeEntry, error) {
	args := m.Called(ctx, tokens, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.KnowledgeEntry), args.Error(1)
}

func (m *MockKnowledgeRepository) RecordUsage(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockKnowledgeRepository) RecordFeedback(ctx context.Context, id int64, positive bool) error {
	args := m.Called(ctx, id, positive)
	return args.Error(0)
}

func (m *MockKnowledgeRepository) Deactivate(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockKnowledgeRepository) List(ctx context.Context, filter EntryFilter) ([]*domain.KnowledgeEntry, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.KnowledgeEntry), args.Error(1)
}

func (m *MockKnowledgeRepository) CategoryStats(ctx context.Context) ([]*domain.CategoryStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.CategoryStats), args.Error(1)
}

// MockLinkRepository is a mock implementation of LinkRepositoryInterface
type MockLinkRepository struct {
	mock.Mock
}

func (m *MockLinkRepository) Create(ctx context.Context, requestID, kbID int64) error {
	args := m.Called(ctx, requestID, kbID)
	return args.Error(0)
}

func (m *MockLinkRepository) Exists(ctx context.Context, requestID, kbID int64) (bool, error) {
	args := m.Called(ctx, requestID, kbID)
	return args.Bool(0), args.Error(1)
}

func (m *MockLinkRepository) ListByRequest(ctx context.Context, requestID int64) ([]*domain.RequestKnowledgeLink, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.RequestKnowledgeLink), args.Error(1)
}

// MockMatcher is a mock implementation of Matcher
type MockMatcher struct {
	mock.Mock
}

func (m *MockMatcher) FindAnswer(ctx context.Context, question string) (MatchResult, error) {
	args := m.Called(ctx, question)
	return args.Get(0).(MatchResult), args.Error(1)
}

// stubTxRunner runs the callback against fixed repositories with no real
// transaction, mirroring the repository TxRunner contract.
type stubTxRunner struct {
	requests  RequestRepositoryInterface
	knowledge KnowledgeRepositoryInterface
	links     LinkRepositoryInterface
	beginErr  error
}

func (s *stubTxRunner) WithTx(ctx context.Context, fn func(repos TxRepositories) error) error {
	if s.beginErr != nil {
		return s.beginErr
	}
	return fn(s)
}

func (s *stubTxRunner) Requests() RequestRepositoryInterface   { return s.requests }
func (s *stubTxRunner) Knowledge() KnowledgeRepositoryInterface { return s.knowledge }
func (s *stubTxRunner) Links() LinkRepositoryInterface          { return s.links }
