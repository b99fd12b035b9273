package retrieval_test

import (
	"context"
	"errors"
	"testing"

	"context-engine/internal/domain"
	"context-engine/internal/usecase/retrieval"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestDualSearch(t *testing.T) {
	cfg := retrieval.SearchConfig{KDense: 60, KSparse: 40}

	t.Run("Both sides run with the same filters", func(t *testing.T) {
		filters := domain.SearchFilters{TenantID: "acme", Product: "widget"}
		embedding := []float32{0.1, 0.2}
		sc := &retrieval.StageContext{
			Query:          "how to deploy",
			Filters:        filters,
			QueryEmbedding: embedding,
		}

		repo := new(MockChunkRepository)
		repo.On("DenseSearch", mock.Anything, embedding, filters, 60).
			Return([]domain.ScoredChunk{scoredChunk("doc-a", 0, "s", 0).WithDense(0.9)}, nil)
		repo.On("SparseSearch", mock.Anything, "how to deploy", filters, 40).
			Return([]domain.ScoredChunk{scoredChunk("doc-b", 0, "s", 0).WithSparse(0.8)}, nil)

		err := retrieval.DualSearch(context.Background(), sc, repo, cfg, discardLogger())
		require.NoError(t, err)
		require.Len(t, sc.DenseHits, 1)
		require.Len(t, sc.SparseHits, 1)
		repo.AssertExpectations(t)
	})

	t.Run("Empty sides are not an error", func(t *testing.T) {
		sc := &retrieval.StageContext{Query: "q", QueryEmbedding: []float32{0.1}}

		repo := new(MockChunkRepository)
		repo.On("DenseSearch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return([]domain.ScoredChunk{}, nil)
		repo.On("SparseSearch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return([]domain.ScoredChunk{}, nil)

		err := retrieval.DualSearch(context.Background(), sc, repo, cfg, discardLogger())
		require.NoError(t, err)
		assert.Empty(t, sc.DenseHits)
		assert.Empty(t, sc.SparseHits)
	})

	t.Run("Dense failure propagates", func(t *testing.T) {
		sc := &retrieval.StageContext{Query: "q", QueryEmbedding: []float32{0.1}}

		repo := new(MockChunkRepository)
		repo.On("DenseSearch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, errors.New("index down"))
		repo.On("SparseSearch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return([]domain.ScoredChunk{}, nil).Maybe()

		err := retrieval.DualSearch(context.Background(), sc, repo, cfg, discardLogger())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "dense search")
	})

	t.Run("Sparse failure propagates", func(t *testing.T) {
		sc := &retrieval.StageContext{Query: "q", QueryEmbedding: []float32{0.1}}

		repo := new(MockChunkRepository)
		repo.On("DenseSearch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return([]domain.ScoredChunk{}, nil).Maybe()
		repo.On("SparseSearch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, errors.New("tsquery failed"))

		err := retrieval.DualSearch(context.Background(), sc, repo, cfg, discardLogger())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sparse search")
	})
}
