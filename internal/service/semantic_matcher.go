package service

import (
	"context"
	"log"

	"github.com/frontline-hq/frontline/internal/domain"
)

// EmbeddingClient produces an embedding vector for a text.
type EmbeddingClient interface {
	CreateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// ScoredEntry is a knowledge entry with its similarity to the query.
type ScoredEntry struct {
	Entry      *domain.KnowledgeEntry
	Similarity float64
}

// VectorSearcher is the slice of the knowledge store the semantic matcher
// needs: active entries with embeddings, nearest first.
type VectorSearcher interface {
	SearchByEmbedding(ctx context.Context, embedding []float32, limit int) ([]ScoredEntry, error)
}

// DefaultMinSimilarity rejects nearest neighbours that are still far away.
const DefaultMinSimilarity = 0.75

// SemanticMatcher ranks candidates by embedding cosine similarity. Entries
// whose embeddings have not been backfilled yet are invisible to it, so it
// delegates to a fallback matcher whenever it comes up empty.
type SemanticMatcher struct {
	store         VectorSearcher
	embedder      EmbeddingClient
	threshold     float64
	minSimilarity float64
	limit         int
	fallback      Matcher
}

func NewSemanticMatcher(store VectorSearcher, embedder EmbeddingClient, threshold float64, fallback Matcher) *SemanticMatcher {
	if threshold <= 0 {
		threshold = DefaultMatchThreshold
	}
	return &SemanticMatcher{
		store:         store,
		embedder:      embedder,
		threshold:     threshold,
		minSimilarity: DefaultMinSimilarity,
		limit:         DefaultSearchLimit,
		fallback:      fallback,
	}
}

func (m *SemanticMatcher) FindAnswer(ctx context.Context, question string) (MatchResult, error) {
	embedding, err := m.embedder.CreateEmbedding(ctx, question)
	if err != nil {
		// The embedding provider is an optional collaborator; a lookup must
		// not fail outright because it is down.
		log.Printf("semantic matcher: embedding failed, falling back to keywords: %v", err)
		return m.fallback.FindAnswer(ctx, question)
	}

	scored, err := m.store.SearchByEmbedding(ctx, embedding, m.limit)
	if err != nil {
		return MatchResult{}, err
	}
	if len(scored) == 0 {
		return m.fallback.FindAnswer(ctx, question)
	}

	top := scored[0]
	if top.Similarity < m.minSimilarity || top.Entry.ConfidenceScore < m.threshold {
		return MatchResult{}, nil
	}
	return MatchResult{Hit: true, Entry: top.Entry, Rank: 1}, nil
}
