package service

import (
	"context"
	"strings"

	"github.com/frontline-hq/frontline/internal/domain"
)

// DefaultMatchThreshold gates automatic reuse of a knowledge entry.
const DefaultMatchThreshold = 0.5

// DefaultSearchLimit caps the candidate set fetched per lookup.
const DefaultSearchLimit = 5

// MatchResult is the outcome of a knowledge base lookup. Entry is nil on a miss.
type MatchResult struct {
	Hit   bool
	Entry *domain.KnowledgeEntry
	Rank  int
}

// Matcher finds a usable answer for an incoming question. Implementations
// must not record usage; that is the caller's responsibility once the
// answer is actually delivered.
type Matcher interface {
	FindAnswer(ctx context.Context, question string) (MatchResult, error)
}

// CandidateSearcher is the slice of the knowledge store the keyword
// matcher needs.
type CandidateSearcher interface {
	SearchCandidates(ctx context.Context, tokens []string, limit int) ([]*domain.KnowledgeEntry, error)
}

// KeywordMatcher ranks candidates by token overlap against stored
// questions. It is the baseline policy; swap in a semantic ranker by
// providing a different Matcher to the lifecycle service.
type KeywordMatcher struct {
	store     CandidateSearcher
	threshold float64
	limit     int
}

func NewKeywordMatcher(store CandidateSearcher, threshold float64, limit int) *KeywordMatcher {
	if threshold <= 0 {
		threshold = DefaultMatchThreshold
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	return &KeywordMatcher{store: store, threshold: threshold, limit: limit}
}

// FindAnswer tokenizes the question, searches the store and gates the top
// candidate on its confidence score. Candidate ordering (usage desc,
// confidence desc, id asc) is owned by the store and is deterministic.
func (m *KeywordMatcher) FindAnswer(ctx context.Context, question string) (MatchResult, error) {
	tokens := Tokenize(question)
	if len(tokens) == 0 {
		return MatchResult{}, nil
	}

	candidates, err := m.store.SearchCandidates(ctx, tokens, m.limit)
	if err != nil {
		return MatchResult{}, err
	}
	if len(candidates) == 0 {
		return MatchResult{}, nil
	}

	top := candidates[0]
	if top.ConfidenceScore < m.threshold {
		return MatchResult{}, nil
	}

	return MatchResult{Hit: true, Entry: top, Rank: 1}, nil
}

// stopwords are filler terms that carry no matching signal.
var stopwords = map[string]struct{}{
	"do": {}, "you": {}, "does": {}, "what": {}, "is": {}, "are": {}, "the": {},
	"a": {}, "an": {}, "how": {}, "much": {}, "can": {}, "i": {}, "get": {},
	"your": {}, "have": {}, "has": {}, "when": {}, "where": {}, "who": {},
	"why": {}, "would": {}, "could": {}, "should": {},
}

// Tokenize lower-cases the text and strips stop-words and short terms.
// Falls back to the whole lower-cased text when nothing significant remains,
// so a query of pure stop-words still searches for something.
func Tokenize(text string) []string {
	trimmed := strings.TrimSpace(strings.ToLower(text))
	if trimmed == "" {
		return nil
	}

	var tokens []string
	for _, word := range strings.Fields(trimmed) {
		word = strings.Trim(word, "?.,!\"'")
		if word == "" || len(word) <= 2 {
			continue
		}
		if _, skip := stopwords[word]; skip {
			continue
		}
		tokens = append(tokens, word)
	}

	if len(tokens) == 0 {
		return []string{trimmed}
	}
	return tokens
}
