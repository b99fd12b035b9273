package usecase_test

import (
	"context"
	"io"
	"log/slog"

	"context-engine/internal/domain"

	"github.com/stretchr/testify/mock"
)

type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) Upsert(ctx context.Context, doc *domain.Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockDocumentRepository) Get(ctx context.Context, id string) (*domain.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

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

// MockTransactionManager runs the function directly; transactional behavior
// is covered by the repository layer.
type MockTransactionManager struct{}

func (m *MockTransactionManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) Embed(ctx context.Context, text string, mode domain.EmbeddingMode) (domain.EmbeddingResult, error) {
	args := m.Called(ctx, text, mode)
	return args.Get(0).(domain.EmbeddingResult), args.Error(1)
}

func (m *MockEmbedder) EmbedBatch(ctx context.Context, texts []string, mode domain.EmbeddingMode) ([]domain.EmbeddingResult, error) {
	args := m.Called(ctx, texts, mode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.EmbeddingResult), args.Error(1)
}

func (m *MockEmbedder) Version() string {
	return "mock-embedder"
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
