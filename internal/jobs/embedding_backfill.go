package jobs

import (
	"context"
	"fmt"
	"log"

	"github.com/colsp-platform/colsp/internal/domain"
)

// backfillBatchSize bounds the chunks re-embedded per poll so one slow
// oracle does not stall the loop for long.
const backfillBatchSize = 25

// BackfillChunkRepository defines the interface for chunks awaiting a vector
type BackfillChunkRepository interface {
	ListMissingEmbedding(ctx context.Context, limit int) ([]*domain.KnowledgeChunk, error)
	UpdateEmbedding(ctx context.Context, id string, embedding []float32) error
}

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingBackfill re-embeds chunks that were stored without a vector
// because the embedding oracle was down at write time. Failures are left
// in place for the next poll; there is no retry bookkeeping because the
// NULL vector itself marks the pending work.
type EmbeddingBackfill struct {
	repo      BackfillChunkRepository
	embedding EmbeddingClient
}

// NewEmbeddingBackfill creates a new EmbeddingBackfill instance
func NewEmbeddingBackfill(repo BackfillChunkRepository, embedding EmbeddingClient) *EmbeddingBackfill {
	return &EmbeddingBackfill{
		repo:      repo,
		embedding: embedding,
	}
}

// ProcessJobs implements the JobProcessor interface
func (b *EmbeddingBackfill) ProcessJobs(ctx context.Context) error {
	chunks, err := b.repo.ListMissingEmbedding(ctx, backfillBatchSize)
	if err != nil {
		return fmt.Errorf("failed to list chunks missing embeddings: %w", err)
	}

	if len(chunks) == 0 {
		return nil
	}

	log.Printf("Backfilling embeddings for %d chunks", len(chunks))

	for _, chunk := range chunks {
		vector, err := b.embedding.Embed(ctx, chunk.EmbeddingText())
		if err != nil {
			log.Printf("Backfill for chunk %s skipped, oracle unavailable: %v", chunk.ID, err)
			continue
		}
		if err := b.repo.UpdateEmbedding(ctx, chunk.ID, vector); err != nil {
			log.Printf("Failed to store backfilled embedding for chunk %s: %v", chunk.ID, err)
		}
	}

	return nil
}
