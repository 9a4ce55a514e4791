package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/frontline-hq/frontline/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockJobProcessor is a mock implementation of JobProcessor
type MockJobProcessor struct {
	mock.Mock
}

func (m *MockJobProcessor) ProcessJobs(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MockRequestSweeper struct {
	mock.Mock
}

func (m *MockRequestSweeper) SweepTimeouts(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

type MockFollowUpSource struct {
	mock.Mock
}

func (m *MockFollowUpSource) ListForFollowUp(ctx context.Context, maxAttempts, limit int) ([]*domain.HelpRequest, error) {
	args := m.Called(ctx, maxAttempts, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.HelpRequest), args.Error(1)
}

func (m *MockFollowUpSource) RecordFollowUpAttempt(ctx context.Context, requestID int64, method string, succeeded bool) (*domain.HelpRequest, error) {
	args := m.Called(ctx, requestID, method, succeeded)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.HelpRequest), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, request *domain.HelpRequest) (string, error) {
	args := m.Called(ctx, request)
	return args.String(0), args.Error(1)
}

type MockEmbeddingStore struct {
	mock.Mock
}

func (m *MockEmbeddingStore) ListMissingEmbeddings(ctx context.Context, limit int) ([]*domain.KnowledgeEntry, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.KnowledgeEntry), args.Error(1)
}

func (m *MockEmbeddingStore) UpdateEmbedding(ctx context.Context, id int64, embedding []float32) error {
	args := m.Called(ctx, id, embedding)
	return args.Error(0)
}

type MockEmbeddingClient struct {
	mock.Mock
}

func (m *MockEmbeddingClient) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

// TestWorker_StartStop tests the worker start and stop functionality
func TestWorker_StartStop(t *testing.T) {
	mockProcessor := new(MockJobProcessor)
	mockProcessor.On("ProcessJobs", mock.Anything).Return(nil)

	worker := NewWorker(mockProcessor, 100*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	time.Sleep(250 * time.Millisecond)

	worker.Stop()
	wg.Wait()

	mockProcessor.AssertCalled(t, "ProcessJobs", mock.Anything)
}

// TestWorker_ContextCancellation tests worker stops on context cancellation
func TestWorker_ContextCancellation(t *testing.T) {
	mockProcessor := new(MockJobProcessor)
	mockProcessor.On("ProcessJobs", mock.Anything).Return(nil)

	worker := NewWorker(mockProcessor, 100*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	time.Sleep(150 * time.Millisecond)

	cancel()
	wg.Wait()

	mockProcessor.AssertCalled(t, "ProcessJobs", mock.Anything)
}

func TestTimeoutSweeper_ProcessJobs(t *testing.T) {
	t.Run("sweeps with the configured cutoff", func(t *testing.T) {
		sweeper := new(MockRequestSweeper)
		sweeper.On("SweepTimeouts", mock.Anything, mock.MatchedBy(func(cutoff time.Time) bool {
			expected := time.Now().UTC().Add(-24 * time.Hour)
			return cutoff.Sub(expected).Abs() < time.Minute
		})).Return(int64(2), nil)

		job := NewTimeoutSweeper(sweeper, 24*time.Hour)
		err := job.ProcessJobs(context.Background())

		require.NoError(t, err)
		sweeper.AssertExpectations(t)
	})

	t.Run("sweep error propagates", func(t *testing.T) {
		sweeper := new(MockRequestSweeper)
		sweeper.On("SweepTimeouts", mock.Anything, mock.Anything).
			Return(int64(0), errors.New("database error"))

		job := NewTimeoutSweeper(sweeper, time.Hour)
		err := job.ProcessJobs(context.Background())

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to sweep")
	})
}

func TestFollowUpDispatcher_ProcessJobs(t *testing.T) {
	request := &domain.HelpRequest{
		ID:                 42,
		CallerID:           "caller-1",
		CallerPhone:        "+15550100",
		SupervisorResponse: "Yes, starting at $150.",
		Status:             domain.RequestStatusResolved,
	}

	t.Run("successful delivery records a succeeded attempt", func(t *testing.T) {
		source := new(MockFollowUpSource)
		notifier := new(MockNotifier)
		source.On("ListForFollowUp", mock.Anything, 3, DefaultFollowUpBatch).
			Return([]*domain.HelpRequest{request}, nil)
		notifier.On("Notify", mock.Anything, request).Return(domain.FollowUpMethodSMS, nil)
		source.On("RecordFollowUpAttempt", mock.Anything, int64(42), domain.FollowUpMethodSMS, true).
			Return(request, nil)

		d := NewFollowUpDispatcher(source, notifier, 3)
		err := d.ProcessJobs(context.Background())

		require.NoError(t, err)
		source.AssertExpectations(t)
		notifier.AssertExpectations(t)
	})

	t.Run("failed delivery still records the attempt", func(t *testing.T) {
		source := new(MockFollowUpSource)
		notifier := new(MockNotifier)
		source.On("ListForFollowUp", mock.Anything, 3, DefaultFollowUpBatch).
			Return([]*domain.HelpRequest{request}, nil)
		notifier.On("Notify", mock.Anything, request).
			Return(domain.FollowUpMethodSMS, errors.New("carrier rejected"))
		source.On("RecordFollowUpAttempt", mock.Anything, int64(42), domain.FollowUpMethodSMS, false).
			Return(request, nil)

		d := NewFollowUpDispatcher(source, notifier, 3)
		err := d.ProcessJobs(context.Background())

		require.NoError(t, err)
		source.AssertExpectations(t)
	})

	t.Run("nothing to deliver", func(t *testing.T) {
		source := new(MockFollowUpSource)
		notifier := new(MockNotifier)
		source.On("ListForFollowUp", mock.Anything, 3, DefaultFollowUpBatch).
			Return([]*domain.HelpRequest{}, nil)

		d := NewFollowUpDispatcher(source, notifier, 3)
		err := d.ProcessJobs(context.Background())

		require.NoError(t, err)
		notifier.AssertNotCalled(t, "Notify")
	})
}

func TestLogNotifier_MethodSelection(t *testing.T) {
	n := LogNotifier{}

	method, err := n.Notify(context.Background(), &domain.HelpRequest{ID: 1, CallerPhone: "+15550100"})
	require.NoError(t, err)
	assert.Equal(t, domain.FollowUpMethodSMS, method)

	method, err = n.Notify(context.Background(), &domain.HelpRequest{ID: 2})
	require.NoError(t, err)
	assert.Equal(t, domain.FollowUpMethodCallback, method)
}

func TestEmbeddingBackfill_ProcessJobs(t *testing.T) {
	entries := []*domain.KnowledgeEntry{
		{ID: 9, Question: "do you offer balayage"},
		{ID: 10, Question: "what are your hours"},
	}
	vec := []float32{0.1, 0.2}

	t.Run("embeds and stores each entry", func(t *testing.T) {
		store := new(MockEmbeddingStore)
		embedder := new(MockEmbeddingClient)
		store.On("ListMissingEmbeddings", mock.Anything, DefaultBackfillBatch).Return(entries, nil)
		embedder.On("CreateEmbedding", mock.Anything, "do you offer balayage").Return(vec, nil)
		embedder.On("CreateEmbedding", mock.Anything, "what are your hours").Return(vec, nil)
		store.On("UpdateEmbedding", mock.Anything, int64(9), vec).Return(nil)
		store.On("UpdateEmbedding", mock.Anything, int64(10), vec).Return(nil)

		w := NewEmbeddingBackfill(store, embedder)
		err := w.ProcessJobs(context.Background())

		require.NoError(t, err)
		store.AssertExpectations(t)
		embedder.AssertExpectations(t)
	})

	t.Run("provider failure skips the entry and continues", func(t *testing.T) {
		store := new(MockEmbeddingStore)
		embedder := new(MockEmbeddingClient)
		store.On("ListMissingEmbeddings", mock.Anything, DefaultBackfillBatch).Return(entries, nil)
		embedder.On("CreateEmbedding", mock.Anything, "do you offer balayage").
			Return(nil, errors.New("rate limited"))
		embedder.On("CreateEmbedding", mock.Anything, "what are your hours").Return(vec, nil)
		store.On("UpdateEmbedding", mock.Anything, int64(10), vec).Return(nil)

		w := NewEmbeddingBackfill(store, embedder)
		err := w.ProcessJobs(context.Background())

		require.NoError(t, err)
		store.AssertNotCalled(t, "UpdateEmbedding", mock.Anything, int64(9), mock.Anything)
		store.AssertExpectations(t)
	})

	t.Run("nothing missing", func(t *testing.T) {
		store := new(MockEmbeddingStore)
		embedder := new(MockEmbeddingClient)
		store.On("ListMissingEmbeddings", mock.Anything, DefaultBackfillBatch).
			Return([]*domain.KnowledgeEntry{}, nil)

		w := NewEmbeddingBackfill(store, embedder)
		err := w.ProcessJobs(context.Background())

		require.NoError(t, err)
		embedder.AssertNotCalled(t, "CreateEmbedding")
	})
}
