package domain

import (
	"fmt"
	"time"
)

// EmbeddingDimensions is the output size of the multilingual embedding
// model. Vectors of any other length are rejected before persistence.
const EmbeddingDimensions = 1024

// ChunkCategory classifies a knowledge chunk and drives persona selection
// in the chat pipeline.
type ChunkCategory string

const (
	ChunkCategoryUmum      ChunkCategory = "umum"
	ChunkCategoryAkademik  ChunkCategory = "akademik"
	ChunkCategoryFasilitas ChunkCategory = "fasilitas"
	ChunkCategoryKeuangan  ChunkCategory = "keuangan"
	ChunkCategoryAplikasi  ChunkCategory = "aplikasi"
	ChunkCategorySantai    ChunkCategory = "santai"
)

// KnowledgeChunk is one retrievable unit of the campus knowledge base.
// Question is optional (set for Q&A entries, empty for narrative material);
// Answer is the indexed content and is always required.
type KnowledgeChunk struct {
	ID        string
	Question  string
	Answer    string
	Category  ChunkCategory
	Embedding []float32
	CreatedAt time.Time
}

// NewKnowledgeChunk creates a chunk without an embedding. The embedding is
// computed by the knowledge service before the chunk is persisted.
func NewKnowledgeChunk(id, question, answer string, category ChunkCategory, createdAt time.Time) *KnowledgeChunk {
	if category == "" {
		category = ChunkCategoryUmum
	}
	return &KnowledgeChunk{
		ID:        id,
		Question:  question,
		Answer:    answer,
		Category:  category,
		CreatedAt: createdAt,
	}
}

// EmbeddingText builds the text that is sent to the embedding oracle.
// Q&A entries embed both sides so questions phrased like the stored one
// land close in vector space.
func (c *KnowledgeChunk) EmbeddingText() string {
	if c.Question != "" {
		return fmt.Sprintf("Pertanyaan: %s\nJawaban: %s", c.Question, c.Answer)
	}
	return c.Answer
}

// HasEmbedding reports whether the chunk carries a stored vector. Chunks
// without one are only reachable through the keyword branch until the
// backfill worker re-embeds them.
func (c *KnowledgeChunk) HasEmbedding() bool {
	return len(c.Embedding) == EmbeddingDimensions
}

// ValidateKnowledgeChunk validates a KnowledgeChunk instance
func ValidateKnowledgeChunk(c *KnowledgeChunk) error {
	if c == nil {
		return fmt.Errorf("knowledge chunk cannot be nil")
	}

	if c.ID == "" {
		return fmt.Errorf("knowledge chunk ID is required")
	}

	if c.Answer == "" {
		return ErrEmptyAnswer
	}

	if !isValidChunkCategory(c.Category) {
		return ErrInvalidChunkCategory
	}

	if c.Embedding != nil && len(c.Embedding) != EmbeddingDimensions {
		return fmt.Errorf("embedding has %d dimensions, expected %d", len(c.Embedding), EmbeddingDimensions)
	}

	return nil
}

func isValidChunkCategory(c ChunkCategory) bool {
	switch c {
	case ChunkCategoryUmum, ChunkCategoryAkademik, ChunkCategoryFasilitas,
		ChunkCategoryKeuangan, ChunkCategoryAplikasi, ChunkCategorySantai:
		return true
	}
	return false
}

// ChunkCategories returns every valid category, in declaration order.
func ChunkCategories() []ChunkCategory {
	return []ChunkCategory{
		ChunkCategoryUmum,
		ChunkCategoryAkademik,
		ChunkCategoryFasilitas,
		ChunkCategoryKeuangan,
		ChunkCategoryAplikasi,
		ChunkCategorySantai,
	}
}
