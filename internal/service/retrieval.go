package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/colsp-platform/colsp/internal/domain"
)

const (
	// vectorTopK and keywordTopK are the per-branch candidate counts; the
	// merged context set never exceeds maxContextChunks.
	vectorTopK       = 3
	keywordTopK      = 2
	maxContextChunks = 5

	emptyContextPlaceholder = "Tidak ditemukan data spesifik di database kampus."
)

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ChunkSearchRepository defines the repository interface for both
// retrieval branches.
type ChunkSearchRepository interface {
	NearestByEmbedding(ctx context.Context, embedding []float32, limit int) ([]*domain.KnowledgeChunk, error)
	SearchKeyword(ctx context.Context, query string, limit int) ([]*domain.KnowledgeChunk, error)
}

// RetrievalResult is the grounded context handed to the chat orchestrator.
// Context is always non-empty so prompt composition is never starved of
// structure, even when nothing matched.
type RetrievalResult struct {
	Chunks  []*domain.KnowledgeChunk
	Persona string
	Context string
}

// RetrievalService merges vector-similarity and keyword lookups over the
// knowledge base into a deduplicated context set.
type RetrievalService struct {
	embedding EmbeddingClient
	repo      ChunkSearchRepository
}

// NewRetrievalService creates a new RetrievalService instance
func NewRetrievalService(embedding EmbeddingClient, repo ChunkSearchRepository) *RetrievalService {
	return &RetrievalService{
		embedding: embedding,
		repo:      repo,
	}
}

// Retrieve runs both branches for the query. The vector branch is skipped
// entirely when the embedding oracle is unavailable; the keyword branch
// alone still produces usable context. Duplicates are dropped by chunk ID
// with the vector branch winning first occurrence.
func (s *RetrievalService) Retrieve(ctx context.Context, query string) (*RetrievalResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.ErrEmptyMessage
	}

	final := make([]*domain.KnowledgeChunk, 0, maxContextChunks)
	seen := make(map[string]struct{}, maxContextChunks)

	if vector, err := s.embedding.Embed(ctx, query); err != nil {
		log.Printf("retrieval: embedding unavailable, vector branch skipped: %v", err)
	} else {
		nearest, err := s.repo.NearestByEmbedding(ctx, vector, vectorTopK)
		if err != nil {
			return nil, fmt.Errorf("vector search failed: %w", err)
		}
		for _, chunk := range nearest {
			if _, ok := seen[chunk.ID]; ok {
				continue
			}
			seen[chunk.ID] = struct{}{}
			final = append(final, chunk)
		}
	}

	keyword, err := s.repo.SearchKeyword(ctx, query, keywordTopK)
	if err != nil {
		return nil, fmt.Errorf("keyword search failed: %w", err)
	}
	for _, chunk := range keyword {
		if _, ok := seen[chunk.ID]; ok {
			continue
		}
		seen[chunk.ID] = struct{}{}
		final = append(final, chunk)
	}

	if len(final) > maxContextChunks {
		final = final[:maxContextChunks]
	}

	return &RetrievalResult{
		Chunks:  final,
		Persona: personaFor(modeCategory(final)),
		Context: buildContext(final),
	}, nil
}

// modeCategory returns the most frequent category across the chunk set.
// Ties resolve to the first-seen category; an empty set returns "".
func modeCategory(chunks []*domain.KnowledgeChunk) domain.ChunkCategory {
	if len(chunks) == 0 {
		return ""
	}

	counts := make(map[domain.ChunkCategory]int, len(chunks))
	order := make([]domain.ChunkCategory, 0, len(chunks))
	for _, chunk := range chunks {
		if _, ok := counts[chunk.Category]; !ok {
			order = append(order, chunk.Category)
		}
		counts[chunk.Category]++
	}

	best := order[0]
	for _, category := range order[1:] {
		if counts[category] > counts[best] {
			best = category
		}
	}
	return best
}

func buildContext(chunks []*domain.KnowledgeChunk) string {
	if len(chunks) == 0 {
		return emptyContextPlaceholder
	}
	var sb strings.Builder
	for _, chunk := range chunks {
		sb.WriteString(fmt.Sprintf("- %s (Kategori: %s)\n", chunk.Answer, chunk.Category))
	}
	return sb.String()
}
