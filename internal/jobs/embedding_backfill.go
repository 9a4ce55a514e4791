package jobs

import (
	"context"
	"fmt"
	"log"

	"github.com/frontline-hq/frontline/internal/domain"
	"github.com/frontline-hq/frontline/internal/service"
)

// DefaultBackfillBatch caps how many entries one poll embeds.
const DefaultBackfillBatch = 10

// EmbeddingStore is the slice of the knowledge repository the backfill
// worker needs: active entries without embeddings, and a way to store one.
type EmbeddingStore interface {
	ListMissingEmbeddings(ctx context.Context, limit int) ([]*domain.KnowledgeEntry, error)
	UpdateEmbedding(ctx context.Context, id int64, embedding []float32) error
}

// EmbeddingBackfill embeds knowledge entries the semantic matcher cannot
// see yet. New entries are written without an embedding so resolution never
// blocks on the embedding provider; this worker catches them up.
type EmbeddingBackfill struct {
	store    EmbeddingStore
	embedder service.EmbeddingClient
}

func NewEmbeddingBackfill(store EmbeddingStore, embedder service.EmbeddingClient) *EmbeddingBackfill {
	return &EmbeddingBackfill{store: store, embedder: embedder}
}

// ProcessJobs implements the JobProcessor interface
func (w *EmbeddingBackfill) ProcessJobs(ctx context.Context) error {
	entries, err := w.store.ListMissingEmbeddings(ctx, DefaultBackfillBatch)
	if err != nil {
		return fmt.Errorf("failed to list entries missing embeddings: %w", err)
	}
	if len(entries) == 0 {
		return nil
	}

	log.Printf("Backfilling embeddings for %d knowledge entries", len(entries))

	for _, entry := range entries {
		embedding, err := w.embedder.CreateEmbedding(ctx, entry.Question)
		if err != nil {
			// Provider failures are transient; the entry stays in the
			// candidate query and is retried next poll.
			log.Printf("Embedding for entry %d failed: %v", entry.ID, err)
			continue
		}

		if err := w.store.UpdateEmbedding(ctx, entry.ID, embedding); err != nil {
			log.Printf("Failed to store embedding for entry %d: %v", entry.ID, err)
		}
	}

	return nil
}
