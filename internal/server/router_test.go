package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/frontline-hq/frontline/internal/api/handlers"
	"github.com/frontline-hq/frontline/internal/domain"
	"github.com/frontline-hq/frontline/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRequestService struct {
	mock.Mock
}

func (m *MockRequestService) CreateRequest(ctx context.Context, input service.CreateRequestInput) (*domain.HelpRequest, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.HelpRequest), args.Error(1)
}

func (m *MockRequestService) GetByID(ctx context.Context, id int64) (*domain.HelpRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.HelpRequest), args.Error(1)
}

func (m *MockRequestService) List(ctx context.Context, input service.ListRequestsInput) (*service.ListRequestsOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ListRequestsOutput), args.Error(1)
}

func (m *MockRequestService) ListPending(ctx context.Context) ([]*domain.HelpRequest, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.HelpRequest), args.Error(1)
}

func (m *MockRequestService) Resolve(ctx context.Context, requestID int64, supervisorID, answer string) (*domain.HelpRequest, error) {
	args := m.Called(ctx, requestID, supervisorID, answer)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.HelpRequest), args.Error(1)
}

func (m *MockRequestService) MarkUnresolved(ctx context.Context, requestID int64, supervisorID, reason string) (*domain.HelpRequest, error) {
	args := m.Called(ctx, requestID, supervisorID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.HelpRequest), args.Error(1)
}

func (m *MockRequestService) RecordFollowUpAttempt(ctx context.Context, requestID int64, method string, succeeded bool) (*domain.HelpRequest, error) {
	args := m.Called(ctx, requestID, method, succeeded)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.HelpRequest), args.Error(1)
}

func (m *MockRequestService) SweepTimeouts(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRequestService) Stats(ctx context.Context) (*domain.RequestStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RequestStats), args.Error(1)
}

func (m *MockRequestService) Links(ctx context.Context, requestID int64) ([]*domain.RequestKnowledgeLink, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.RequestKnowledgeLink), args.Error(1)
}

type MockKnowledgeService struct {
	mock.Mock
}

func (m *MockKnowledgeService) Upsert(ctx context.Context, input service.UpsertInput) (*domain.KnowledgeEntry, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.KnowledgeEntry), args.Error(1)
}

func (m *MockKnowledgeService) Get(ctx context.Context, id int64, activeOnly bool) (*domain.KnowledgeEntry, error) {
	args := m.Called(ctx, id, activeOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.KnowledgeEntry), args.Error(1)
}

func (m *MockKnowledgeService) List(ctx context.Context, filter service.EntryFilter) ([]*domain.KnowledgeEntry, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.KnowledgeEntry), args.Error(1)
}

func (m *MockKnowledgeService) Deactivate(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockKnowledgeService) CategoryStats(ctx context.Context) ([]*domain.CategoryStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.CategoryStats), args.Error(1)
}

type MockFeedbackService struct {
	mock.Mock
}

func (m *MockFeedbackService) OnDelivered(ctx context.Context, requestID, kbID int64) error {
	args := m.Called(ctx, requestID, kbID)
	return args.Error(0)
}

func (m *MockFeedbackService) OnCustomerFeedback(ctx context.Context, kbID int64, positive bool) error {
	args := m.Called(ctx, kbID, positive)
	return args.Error(0)
}

type MockMatcher struct {
	mock.Mock
}

func (m *MockMatcher) FindAnswer(ctx context.Context, question string) (service.MatchResult, error) {
	args := m.Called(ctx, question)
	return args.Get(0).(service.MatchResult), args.Error(1)
}

func setupRouter() (http.Handler, *MockRequestService, *MockKnowledgeService, *MockMatcher) {
	requestSvc := new(MockRequestService)
	knowledgeSvc := new(MockKnowledgeService)
	feedbackSvc := new(MockFeedbackService)
	matcher := new(MockMatcher)

	cfg := RouterConfig{
		RequestHandler:   handlers.NewRequestHandler(requestSvc, nil, 24*time.Hour),
		KnowledgeHandler: handlers.NewKnowledgeHandler(knowledgeSvc, feedbackSvc, matcher),
	}

	return NewRouter(cfg), requestSvc, knowledgeSvc, matcher
}

func TestRouter_HealthEndpoint(t *testing.T) {
	router, _, _, _ := setupRouter()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "ok", data["status"])
}

func TestRouter_RequestRoutes(t *testing.T) {
	router, requestSvc, _, _ := setupRouter()

	now := time.Now().UTC()
	request := &domain.HelpRequest{
		ID:        42,
		CallerID:  "caller-1",
		Question:  "do you offer balayage",
		Status:    domain.RequestStatusPending,
		Priority:  domain.PriorityNormal,
		CreatedAt: now,
		UpdatedAt: now,
	}

	requestSvc.On("GetByID", mock.Anything, int64(42)).Return(request, nil)
	requestSvc.On("ListPending", mock.Anything).Return([]*domain.HelpRequest{request}, nil)
	requestSvc.On("Stats", mock.Anything).Return(&domain.RequestStats{Total: 1, Pending: 1}, nil)
	requestSvc.On("SweepTimeouts", mock.Anything, mock.AnythingOfType("time.Time")).Return(int64(0), nil)

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/requests/42"},
		{http.MethodGet, "/requests/pending"},
		{http.MethodGet, "/requests/stats"},
		{http.MethodPost, "/maintenance/check-timeouts"},
	}

	for _, route := range routes {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			req := httptest.NewRequest(route.method, route.path, nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
		})
	}
}

func TestRouter_StaticSegmentsWinOverID(t *testing.T) {
	// /requests/pending and /requests/stats must not be captured by
	// the {id} route.
	router, requestSvc, _, _ := setupRouter()
	requestSvc.On("ListPending", mock.Anything).Return([]*domain.HelpRequest{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/requests/pending", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	requestSvc.AssertCalled(t, "ListPending", mock.Anything)
	requestSvc.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestRouter_KnowledgeRoutes(t *testing.T) {
	router, _, knowledgeSvc, matcher := setupRouter()

	knowledgeSvc.On("List", mock.Anything, mock.Anything).Return([]*domain.KnowledgeEntry{}, nil)
	knowledgeSvc.On("Deactivate", mock.Anything, int64(9)).Return(nil)
	matcher.On("FindAnswer", mock.Anything, "hours?").Return(service.MatchResult{}, nil)

	t.Run("GET /kb", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/kb", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("DELETE /kb/9", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/kb/9", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("POST /kb/search", func(t *testing.T) {
		body := bytes.NewBufferString(`{"question":"hours?"}`)
		req := httptest.NewRequest(http.MethodPost, "/kb/search", body)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestRouter_RequestIDHeader(t *testing.T) {
	router, _, _, _ := setupRouter()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
