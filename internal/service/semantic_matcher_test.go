package service

import (
	"context"
	"errors"
	"testing"

	"github.com/frontline-hq/frontline/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

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

type MockVectorSearcher struct {
	mock.Mock
}

func (m *MockVectorSearcher) SearchByEmbedding(ctx context.Context, embedding []float32, limit int) ([]ScoredEntry, error) {
	args := m.Called(ctx, embedding, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ScoredEntry), args.Error(1)
}

func TestSemanticMatcher_FindAnswer(t *testing.T) {
	ctx := context.Background()
	vec := []float32{0.1, 0.2, 0.3}

	entry := &domain.KnowledgeEntry{
		ID:              9,
		Question:        "do you offer balayage",
		Answer:          "Yes, starting at $150.",
		ConfidenceScore: 0.9,
		IsActive:        true,
	}

	t.Run("close neighbour above thresholds is a hit", func(t *testing.T) {
		embedder := new(MockEmbeddingClient)
		store := new(MockVectorSearcher)
		embedder.On("CreateEmbedding", ctx, "balayage pricing?").Return(vec, nil)
		store.On("SearchByEmbedding", ctx, vec, DefaultSearchLimit).
			Return([]ScoredEntry{{Entry: entry, Similarity: 0.92}}, nil)

		m := NewSemanticMatcher(store, embedder, DefaultMatchThreshold, nil)
		result, err := m.FindAnswer(ctx, "balayage pricing?")

		require.NoError(t, err)
		assert.True(t, result.Hit)
		assert.Equal(t, int64(9), result.Entry.ID)
	})

	t.Run("distant neighbour is a miss", func(t *testing.T) {
		embedder := new(MockEmbeddingClient)
		store := new(MockVectorSearcher)
		embedder.On("CreateEmbedding", ctx, mock.Anything).Return(vec, nil)
		store.On("SearchByEmbedding", ctx, vec, DefaultSearchLimit).
			Return([]ScoredEntry{{Entry: entry, Similarity: 0.4}}, nil)

		m := NewSemanticMatcher(store, embedder, DefaultMatchThreshold, nil)
		result, err := m.FindAnswer(ctx, "something unrelated")

		require.NoError(t, err)
		assert.False(t, result.Hit)
	})

	t.Run("low confidence entry is a miss even when close", func(t *testing.T) {
		embedder := new(MockEmbeddingClient)
		store := new(MockVectorSearcher)
		weak := &domain.KnowledgeEntry{ID: 9, ConfidenceScore: 0.2}
		embedder.On("CreateEmbedding", ctx, mock.Anything).Return(vec, nil)
		store.On("SearchByEmbedding", ctx, vec, DefaultSearchLimit).
			Return([]ScoredEntry{{Entry: weak, Similarity: 0.95}}, nil)

		m := NewSemanticMatcher(store, embedder, DefaultMatchThreshold, nil)
		result, err := m.FindAnswer(ctx, "balayage")

		require.NoError(t, err)
		assert.False(t, result.Hit)
	})

	t.Run("embedding failure falls back to keywords", func(t *testing.T) {
		embedder := new(MockEmbeddingClient)
		store := new(MockVectorSearcher)
		fallback := new(MockMatcher)
		embedder.On("CreateEmbedding", ctx, "balayage").Return(nil, errors.New("provider down"))
		fallback.On("FindAnswer", ctx, "balayage").
			Return(MatchResult{Hit: true, Entry: entry, Rank: 1}, nil)

		m := NewSemanticMatcher(store, embedder, DefaultMatchThreshold, fallback)
		result, err := m.FindAnswer(ctx, "balayage")

		require.NoError(t, err)
		assert.True(t, result.Hit)
		store.AssertNotCalled(t, "SearchByEmbedding")
		fallback.AssertExpectations(t)
	})

	t.Run("no embedded entries falls back to keywords", func(t *testing.T) {
		embedder := new(MockEmbeddingClient)
		store := new(MockVectorSearcher)
		fallback := new(MockMatcher)
		embedder.On("CreateEmbedding", ctx, "balayage").Return(vec, nil)
		store.On("SearchByEmbedding", ctx, vec, DefaultSearchLimit).
			Return([]ScoredEntry{}, nil)
		fallback.On("FindAnswer", ctx, "balayage").Return(MatchResult{}, nil)

		m := NewSemanticMatcher(store, embedder, DefaultMatchThreshold, fallback)
		result, err := m.FindAnswer(ctx, "balayage")

		require.NoError(t, err)
		assert.False(t, result.Hit)
		fallback.AssertExpectations(t)
	})

	t.Run("vector search error propagates", func(t *testing.T) {
		embedder := new(MockEmbeddingClient)
		store := new(MockVectorSearcher)
		embedder.On("CreateEmbedding", ctx, mock.Anything).Return(vec, nil)
		store.On("SearchByEmbedding", ctx, vec, DefaultSearchLimit).
			Return(nil, domain.ErrStorageUnavailable)

		m := NewSemanticMatcher(store, embedder, DefaultMatchThreshold, nil)
		_, err := m.FindAnswer(ctx, "balayage")

		assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
	})
}
