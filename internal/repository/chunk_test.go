//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colsp-platform/colsp/internal/domain"
	"github.com/colsp-platform/colsp/internal/testutil"
)

func newChunk(answer string, category domain.ChunkCategory, embedding []float32) *domain.KnowledgeChunk {
	return &domain.KnowledgeChunk{
		ID:        uuid.NewString(),
		Question:  "Pertanyaan tentang " + answer,
		Answer:    answer,
		Category:  category,
		Embedding: embedding,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
}

func unitVector(hot int) []float32 {
	vec := make([]float32, domain.EmbeddingDimensions)
	vec[hot] = 1
	return vec
}

func TestChunkRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewChunkRepository(pool)

	chunk := newChunk("Perpustakaan buka pukul 08.00.", domain.ChunkCategoryFasilitas, unitVector(0))
	require.NoError(t, repo.Create(ctx, chunk))

	retrieved, err := repo.GetByID(ctx, chunk.ID)
	require.NoError(t, err)
	assert.Equal(t, chunk.ID, retrieved.ID)
	assert.Equal(t, chunk.Question, retrieved.Question)
	assert.Equal(t, chunk.Answer, retrieved.Answer)
	assert.Equal(t, domain.ChunkCategoryFasilitas, retrieved.Category)
	assert.Len(t, retrieved.Embedding, domain.EmbeddingDimensions)
}

func TestChunkRepository_GetByID_NotFound(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewChunkRepository(pool)

	_, err := repo.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrChunkNotFound)
}

func TestChunkRepository_Create_NullQuestionAndEmbedding(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewChunkRepository(pool)

	chunk := &domain.KnowledgeChunk{
		ID:        uuid.NewString(),
		Answer:    "Jawaban tanpa pertanyaan.",
		Category:  domain.ChunkCategoryUmum,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, repo.Create(ctx, chunk))

	retrieved, err := repo.GetByID(ctx, chunk.ID)
	require.NoError(t, err)
	assert.Empty(t, retrieved.Question)
	assert.Empty(t, retrieved.Embedding)
	assert.False(t, retrieved.HasEmbedding())
}

func TestChunkRepository_Update(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewChunkRepository(pool)

	chunk := newChunk("Jawaban awal.", domain.ChunkCategoryUmum, nil)
	require.NoError(t, repo.Create(ctx, chunk))

	chunk.Answer = "Jawaban yang diperbarui."
	chunk.Category = domain.ChunkCategoryAkademik
	chunk.Embedding = unitVector(3)
	require.NoError(t, repo.Update(ctx, chunk))

	retrieved, err := repo.GetByID(ctx, chunk.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jawaban yang diperbarui.", retrieved.Answer)
	assert.Equal(t, domain.ChunkCategoryAkademik, retrieved.Category)
	assert.True(t, retrieved.HasEmbedding())
}

func TestChunkRepository_Update_NotFound(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewChunkRepository(pool)

	chunk := newChunk("Tidak pernah disimpan.", domain.ChunkCategoryUmum, nil)
	assert.ErrorIs(t, repo.Update(ctx, chunk), domain.ErrChunkNotFound)
}

func TestChunkRepository_ExistsByAnswer(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewChunkRepository(pool)

	chunk := newChunk("Pembayaran UKT melalui bank mitra.", domain.ChunkCategoryKeuangan, nil)
	require.NoError(t, repo.Create(ctx, chunk))

	exists, err := repo.ExistsByAnswer(ctx, chunk.Answer)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsByAnswer(ctx, "Jawaban yang belum pernah ada.")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestChunkRepository_NearestByEmbedding(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewChunkRepository(pool)

	near := newChunk("Chunk dekat.", domain.ChunkCategoryUmum, unitVector(0))
	far := newChunk("Chunk jauh.", domain.ChunkCategoryUmum, unitVector(500))
	unembedded := newChunk("Chunk tanpa vektor.", domain.ChunkCategoryUmum, nil)
	require.NoError(t, repo.Create(ctx, near))
	require.NoError(t, repo.Create(ctx, far))
	require.NoError(t, repo.Create(ctx, unembedded))

	query := make([]float32, domain.EmbeddingDimensions)
	query[0] = 0.9

	results, err := repo.NearestByEmbedding(ctx, query, 5)
	require.NoError(t, err)
	require.Len(t, results, 2, "chunks without a vector are not candidates")
	assert.Equal(t, near.ID, results[0].ID)
	assert.Equal(t, far.ID, results[1].ID)
}

func TestChunkRepository_SearchKeyword(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewChunkRepository(pool)

	library := newChunk("Perpustakaan buka pukul 08.00 sampai 16.00.", domain.ChunkCategoryFasilitas, nil)
	tuition := newChunk("Pembayaran UKT melalui portal keuangan.", domain.ChunkCategoryKeuangan, nil)
	require.NoError(t, repo.Create(ctx, library))
	require.NoError(t, repo.Create(ctx, tuition))

	results, err := repo.SearchKeyword(ctx, "PERPUSTAKAAN", 10)
	require.NoError(t, err)
	require.Len(t, results, 1, "match is case-insensitive")
	assert.Equal(t, library.ID, results[0].ID)

	results, err = repo.SearchKeyword(ctx, "parkir", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestChunkRepository_EmbeddingBackfillCycle(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewChunkRepository(pool)

	older := newChunk("Chunk lama tanpa vektor.", domain.ChunkCategoryUmum, nil)
	older.CreatedAt = time.Now().UTC().Add(-time.Hour).Truncate(time.Microsecond)
	newer := newChunk("Chunk baru tanpa vektor.", domain.ChunkCategoryUmum, nil)
	embedded := newChunk("Chunk sudah punya vektor.", domain.ChunkCategoryUmum, unitVector(1))
	require.NoError(t, repo.Create(ctx, older))
	require.NoError(t, repo.Create(ctx, newer))
	require.NoError(t, repo.Create(ctx, embedded))

	missing, err := repo.ListMissingEmbedding(ctx, 10)
	require.NoError(t, err)
	require.Len(t, missing, 2)
	assert.Equal(t, older.ID, missing[0].ID, "oldest chunk drains first")
	assert.Equal(t, newer.ID, missing[1].ID)

	require.NoError(t, repo.UpdateEmbedding(ctx, older.ID, unitVector(2)))

	missing, err = repo.ListMissingEmbedding(ctx, 10)
	require.NoError(t, err)
	require.Len(t, missing, 1)
	assert.Equal(t, newer.ID, missing[0].ID)
}

func TestChunkRepository_UpdateEmbedding_NotFound(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewChunkRepository(pool)

	err := repo.UpdateEmbedding(ctx, uuid.NewString(), unitVector(0))
	assert.ErrorIs(t, err, domain.ErrChunkNotFound)
}
