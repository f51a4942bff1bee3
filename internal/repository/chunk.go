package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/colsp-platform/colsp/internal/domain"
)

// ChunkRepository handles persistence of knowledge chunks, including both
// retrieval branches over the pgvector column.
type ChunkRepository struct {
	db dbtx
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{db: pool}
}

func (r *ChunkRepository) Create(ctx context.Context, c *domain.KnowledgeChunk) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO knowledge_chunks (id, question, answer, category, embedding, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, nullableString(c.Question), c.Answer, c.Category, nullableVector(c.Embedding), c.CreatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrChunkAlreadyExists
	}
	return err
}

func (r *ChunkRepository) GetByID(ctx context.Context, id string) (*domain.KnowledgeChunk, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, question, answer, category, embedding, created_at
		 FROM knowledge_chunks WHERE id = $1`,
		id,
	)
	chunk, err := scanChunk(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrChunkNotFound
		}
		return nil, err
	}
	return chunk, nil
}

func (r *ChunkRepository) Update(ctx context.Context, c *domain.KnowledgeChunk) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE knowledge_chunks SET question = $1, answer = $2, category = $3, embedding = $4
		 WHERE id = $5`,
		nullableString(c.Question), c.Answer, c.Category, nullableVector(c.Embedding), c.ID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrChunkNotFound
	}
	return nil
}

func (r *ChunkRepository) ExistsByAnswer(ctx context.Context, answer string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM knowledge_chunks WHERE answer = $1)`,
		answer,
	).Scan(&exists)
	return exists, err
}

// NearestByEmbedding returns the chunks closest to the query vector by L2
// distance. Chunks without a stored vector are not candidates.
func (r *ChunkRepository) NearestByEmbedding(ctx context.Context, embedding []float32, limit int) ([]*domain.KnowledgeChunk, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, question, answer, category, embedding, created_at
		 FROM knowledge_chunks
		 WHERE embedding IS NOT NULL
		 ORDER BY embedding <-> $1
		 LIMIT $2`,
		pgvector.NewVector(embedding), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChunkRows(rows)
}

// SearchKeyword matches the query as a case-insensitive substring of the
// question or answer, newest entries first.
func (r *ChunkRepository) SearchKeyword(ctx context.Context, query string, limit int) ([]*domain.KnowledgeChunk, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, question, answer, category, embedding, created_at
		 FROM knowledge_chunks
		 WHERE question ILIKE '%' || $1 || '%' OR answer ILIKE '%' || $1 || '%'
		 ORDER BY created_at DESC
		 LIMIT $2`,
		query, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChunkRows(rows)
}

// ListMissingEmbedding returns chunks awaiting a vector, oldest first so
// the backfill worker drains in insertion order.
func (r *ChunkRepository) ListMissingEmbedding(ctx context.Context, limit int) ([]*domain.KnowledgeChunk, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, question, answer, category, embedding, created_at
		 FROM knowledge_chunks
		 WHERE embedding IS NULL
		 ORDER BY created_at ASC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChunkRows(rows)
}

func (r *ChunkRepository) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE knowledge_chunks SET embedding = $1 WHERE id = $2`,
		pgvector.NewVector(embedding), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrChunkNotFound
	}
	return nil
}

func scanChunk(row pgx.Row) (*domain.KnowledgeChunk, error) {
	var c domain.KnowledgeChunk
	var question *string
	var embedding *pgvector.Vector
	if err := row.Scan(&c.ID, &question, &c.Answer, &c.Category, &embedding, &c.CreatedAt); err != nil {
		return nil, err
	}
	if question != nil {
		c.Question = *question
	}
	if embedding != nil {
		c.Embedding = embedding.Slice()
	}
	return &c, nil
}

func scanChunkRows(rows pgx.Rows) ([]*domain.KnowledgeChunk, error) {
	var chunks []*domain.KnowledgeChunk
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

// nullableVector maps an absent embedding to a SQL NULL instead of a
// zero-length vector.
func nullableVector(embedding []float32) any {
	if len(embedding) == 0 {
		return nil
	}
	return pgvector.NewVector(embedding)
}
