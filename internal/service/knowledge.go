package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/colsp-platform/colsp/internal/domain"
	"github.com/colsp-platform/colsp/internal/telemetry"
)

// ChunkRepository defines the repository interface for knowledge authoring.
type ChunkRepository interface {
	Create(ctx context.Context, chunk *domain.KnowledgeChunk) error
	GetByID(ctx context.Context, id string) (*domain.KnowledgeChunk, error)
	Update(ctx context.Context, chunk *domain.KnowledgeChunk) error
	ExistsByAnswer(ctx context.Context, answer string) (bool, error)
}

// ImportEntry is one scraped Q&A pair from an import file.
type ImportEntry struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Category string `json:"category"`
}

// ImportStats summarizes a batch import run.
type ImportStats struct {
	Imported int
	Skipped  int
}

// KnowledgeService manages the knowledge base. Embedding happens
// synchronously on write so new chunks are immediately retrievable by
// vector; when the oracle is down the chunk is stored without a vector
// and picked up later by the backfill worker.
type KnowledgeService struct {
	repo      ChunkRepository
	embedding EmbeddingClient
}

// NewKnowledgeService creates a new KnowledgeService instance
func NewKnowledgeService(repo ChunkRepository, embedding EmbeddingClient) *KnowledgeService {
	return &KnowledgeService{
		repo:      repo,
		embedding: embedding,
	}
}

// CreateChunk validates, embeds, and persists a new chunk.
func (s *KnowledgeService) CreateChunk(ctx context.Context, question, answer string, category domain.ChunkCategory) (*domain.KnowledgeChunk, error) {
	ctx, span := telemetry.StartSpan(ctx, "KnowledgeService.CreateChunk", telemetry.SpanAttributes{
		Operation: "create",
	})
	defer span.End()

	chunk := domain.NewKnowledgeChunk(
		uuid.New().String(),
		strings.TrimSpace(question),
		strings.TrimSpace(answer),
		category,
		time.Now().UTC(),
	)
	if err := domain.ValidateKnowledgeChunk(chunk); err != nil {
		return nil, err
	}

	s.embed(ctx, chunk)

	if err := s.repo.Create(ctx, chunk); err != nil {
		return nil, err
	}
	return chunk, nil
}

// GetChunk returns a single chunk by ID.
func (s *KnowledgeService) GetChunk(ctx context.Context, id string) (*domain.KnowledgeChunk, error) {
	return s.repo.GetByID(ctx, id)
}

// UpdateChunk rewrites a chunk's content. Any text change invalidates the
// stored vector, so the chunk is re-embedded before persisting.
func (s *KnowledgeService) UpdateChunk(ctx context.Context, id, question, answer string, category domain.ChunkCategory) (*domain.KnowledgeChunk, error) {
	ctx, span := telemetry.StartSpan(ctx, "KnowledgeService.UpdateChunk", telemetry.SpanAttributes{
		ChunkID:   id,
		Operation: "update",
	})
	defer span.End()

	chunk, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	question = strings.TrimSpace(question)
	answer = strings.TrimSpace(answer)
	textChanged := question != chunk.Question || answer != chunk.Answer

	chunk.Question = question
	chunk.Answer = answer
	if category != "" {
		chunk.Category = category
	}
	if err := domain.ValidateKnowledgeChunk(chunk); err != nil {
		return nil, err
	}

	if textChanged {
		chunk.Embedding = nil
		s.embed(ctx, chunk)
	}

	if err := s.repo.Update(ctx, chunk); err != nil {
		return nil, err
	}
	return chunk, nil
}

// Import batch-loads scraped Q&A entries. Entries with empty answers or
// answers already present in the knowledge base are skipped, not errors:
// import files are re-runnable.
func (s *KnowledgeService) Import(ctx context.Context, entries []ImportEntry) (ImportStats, error) {
	var stats ImportStats
	for _, entry := range entries {
		answer := strings.TrimSpace(entry.Answer)
		if answer == "" {
			stats.Skipped++
			continue
		}

		exists, err := s.repo.ExistsByAnswer(ctx, answer)
		if err != nil {
			return stats, fmt.Errorf("duplicate check failed: %w", err)
		}
		if exists {
			stats.Skipped++
			continue
		}

		if _, err := s.CreateChunk(ctx, entry.Question, answer, domain.ChunkCategory(entry.Category)); err != nil {
			return stats, fmt.Errorf("failed to import entry %q: %w", truncateForLog(answer), err)
		}
		stats.Imported++
	}
	return stats, nil
}

// embed fills in the chunk's vector, leaving it nil when the oracle is
// unavailable so the write path never blocks on classifier infrastructure.
func (s *KnowledgeService) embed(ctx context.Context, chunk *domain.KnowledgeChunk) {
	vector, err := s.embedding.Embed(ctx, chunk.EmbeddingText())
	if err != nil {
		log.Printf("knowledge: embedding unavailable for chunk %s, stored without vector: %v", chunk.ID, err)
		return
	}
	chunk.Embedding = vector
}

func truncateForLog(s string) string {
	if len(s) > 40 {
		return s[:40] + "..."
	}
	return s
}
