package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/colsp-platform/colsp/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockJobProcessor is a mock implementation of JobProcessor
type MockJobProcessor struct {
	mock.Mock
}

func (m *MockJobProcessor) ProcessJobs(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockBackfillChunkRepository is a mock implementation of BackfillChunkRepository
type MockBackfillChunkRepository struct {
	mock.Mock
}

func (m *MockBackfillChunkRepository) ListMissingEmbedding(ctx context.Context, limit int) ([]*domain.KnowledgeChunk, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.KnowledgeChunk), args.Error(1)
}

func (m *MockBackfillChunkRepository) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	args := m.Called(ctx, id, embedding)
	return args.Error(0)
}

// MockEmbedder is a mock implementation of EmbeddingClient
type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

// TestWorker_StartStop tests the worker start and stop functionality
func TestWorker_StartStop(t *testing.T) {
	mockProcessor := new(MockJobProcessor)
	mockProcessor.On("ProcessJobs", mock.Anything).Return(nil)

	worker := NewWorker(mockProcessor, 100*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	time.Sleep(250 * time.Millisecond)

	worker.Stop()
	wg.Wait()

	mockProcessor.AssertCalled(t, "ProcessJobs", mock.Anything)
}

// TestWorker_ContextCancellation tests worker stops on context cancellation
func TestWorker_ContextCancellation(t *testing.T) {
	mockProcessor := new(MockJobProcessor)
	mockProcessor.On("ProcessJobs", mock.Anything).Return(nil)

	worker := NewWorker(mockProcessor, 100*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	time.Sleep(150 * time.Millisecond)

	cancel()
	wg.Wait()

	mockProcessor.AssertCalled(t, "ProcessJobs", mock.Anything)
}

func backfillVector() []float32 {
	v := make([]float32, domain.EmbeddingDimensions)
	v[0] = 0.5
	return v
}

// TestEmbeddingBackfill_ProcessJobs_NothingPending tests the empty case
func TestEmbeddingBackfill_ProcessJobs_NothingPending(t *testing.T) {
	mockRepo := new(MockBackfillChunkRepository)
	mockEmbedder := new(MockEmbedder)

	mockRepo.On("ListMissingEmbedding", mock.Anything, backfillBatchSize).Return([]*domain.KnowledgeChunk{}, nil)

	backfill := NewEmbeddingBackfill(mockRepo, mockEmbedder)
	err := backfill.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockEmbedder.AssertNotCalled(t, "Embed", mock.Anything, mock.Anything)
}

// TestEmbeddingBackfill_ProcessJobs_Success tests successful backfill
func TestEmbeddingBackfill_ProcessJobs_Success(t *testing.T) {
	mockRepo := new(MockBackfillChunkRepository)
	mockEmbedder := new(MockEmbedder)

	chunk := &domain.KnowledgeChunk{ID: "c-1", Question: "q", Answer: "a"}
	vector := backfillVector()

	mockRepo.On("ListMissingEmbedding", mock.Anything, backfillBatchSize).Return([]*domain.KnowledgeChunk{chunk}, nil)
	mockEmbedder.On("Embed", mock.Anything, chunk.EmbeddingText()).Return(vector, nil)
	mockRepo.On("UpdateEmbedding", mock.Anything, "c-1", vector).Return(nil)

	backfill := NewEmbeddingBackfill(mockRepo, mockEmbedder)
	err := backfill.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
	mockEmbedder.AssertExpectations(t)
}

// TestEmbeddingBackfill_ProcessJobs_OracleFailureSkipsChunk tests that an
// unavailable oracle leaves the chunk for the next poll
func TestEmbeddingBackfill_ProcessJobs_OracleFailureSkipsChunk(t *testing.T) {
	mockRepo := new(MockBackfillChunkRepository)
	mockEmbedder := new(MockEmbedder)

	chunks := []*domain.KnowledgeChunk{
		{ID: "c-1", Answer: "a"},
		{ID: "c-2", Answer: "b"},
	}
	vector := backfillVector()

	mockRepo.On("ListMissingEmbedding", mock.Anything, backfillBatchSize).Return(chunks, nil)
	mockEmbedder.On("Embed", mock.Anything, "a").Return(nil, errors.New("model warming up"))
	mockEmbedder.On("Embed", mock.Anything, "b").Return(vector, nil)
	mockRepo.On("UpdateEmbedding", mock.Anything, "c-2", vector).Return(nil)

	backfill := NewEmbeddingBackfill(mockRepo, mockEmbedder)
	err := backfill.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockRepo.AssertNotCalled(t, "UpdateEmbedding", mock.Anything, "c-1", mock.Anything)
	mockRepo.AssertExpectations(t)
}

// TestEmbeddingBackfill_ProcessJobs_RepositoryError tests list failure handling
func TestEmbeddingBackfill_ProcessJobs_RepositoryError(t *testing.T) {
	mockRepo := new(MockBackfillChunkRepository)
	mockEmbedder := new(MockEmbedder)

	mockRepo.On("ListMissingEmbedding", mock.Anything, mock.Anything).Return(nil, errors.New("database error"))

	backfill := NewEmbeddingBackfill(mockRepo, mockEmbedder)
	err := backfill.ProcessJobs(context.Background())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list chunks")
}
