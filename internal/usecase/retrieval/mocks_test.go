package retrieval_test

import (
	"context"
	"io"
	"log/slog"

	"context-engine/internal/domain"

	"github.com/stretchr/testify/mock"
)

type MockChunkRepository struct {
	mock.Mock
}

func (m *MockChunkRepository) DeleteByDocumentID(ctx context.Context, documentID string) error {
	args := m.Called(ctx, documentID)
	return args.Error(0)
}

func (m *MockChunkRepository) BulkInsert(ctx context.Context, chunks []domain.Chunk) error {
	args := m.Called(ctx, chunks)
	return args.Error(0)
}

func (m *MockChunkRepository) GetByDocumentID(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Chunk), args.Error(1)
}

func (m *MockChunkRepository) DenseSearch(ctx context.Context, queryVector []float32, filters domain.SearchFilters, limit int) ([]domain.ScoredChunk, error) {
	args := m.Called(ctx, queryVector, filters, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ScoredChunk), args.Error(1)
}

func (m *MockChunkRepository) SparseSearch(ctx context.Context, query string, filters domain.SearchFilters, limit int) ([]domain.ScoredChunk, error) {
	args := m.Called(ctx, query, filters, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ScoredChunk), args.Error(1)
}

func (m *MockChunkRepository) Siblings(ctx context.Context, documentID, section string, orderIndexes []int) ([]domain.Chunk, error) {
	args := m.Called(ctx, documentID, section, orderIndexes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Chunk), args.Error(1)
}

type MockReranker struct {
	mock.Mock
}

func (m *MockReranker) Rerank(ctx context.Context, query string, candidates []domain.RerankCandidate) ([]domain.RerankResult, error) {
	args := m.Called(ctx, query, candidates)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RerankResult), args.Error(1)
}

func (m *MockReranker) ModelName() string {
	return "mock-reranker"
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func scoredChunk(docID string, chunkIndex int, section string, orderIndex int) domain.ScoredChunk {
	return domain.ScoredChunk{
		Chunk: domain.Chunk{
			DocumentID: docID,
			ChunkIndex: chunkIndex,
			Section:    section,
			OrderIndex: orderIndex,
			Content:    "content",
		},
	}
}
