package retrieval_test

import (
	"testing"

	"context-engine/internal/domain"
	"context-engine/internal/usecase/retrieval"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuse(t *testing.T) {
	cfg := retrieval.FuseConfig{WeightDense: 0.7, WeightSparse: 0.3}

	t.Run("Weighted combination with missing sides as zero", func(t *testing.T) {
		// A appears in both lists, B only dense, C only sparse.
		a := scoredChunk("doc-a", 0, "s", 0)
		b := scoredChunk("doc-b", 0, "s", 0)
		c := scoredChunk("doc-c", 0, "s", 0)

		sc := &retrieval.StageContext{
			DenseHits:  []domain.ScoredChunk{a.WithDense(0.9), b.WithDense(0.6)},
			SparseHits: []domain.ScoredChunk{a.WithSparse(0.0), c.WithSparse(0.6)},
		}
		// A: 0.9*0.7 + 0.0*0.3 = 0.63
		// B: 0.6*0.7 + 0     = 0.42
		// C: 0      + 0.6*0.3 = 0.18
		retrieval.Fuse(sc, cfg, discardLogger())

		require.Len(t, sc.Fused, 3)
		assert.Equal(t, "doc-a", sc.Fused[0].Chunk.DocumentID)
		assert.InDelta(t, 0.63, *sc.Fused[0].Fused, 1e-9)
		assert.Equal(t, "doc-b", sc.Fused[1].Chunk.DocumentID)
		assert.InDelta(t, 0.42, *sc.Fused[1].Fused, 1e-9)
		assert.Equal(t, "doc-c", sc.Fused[2].Chunk.DocumentID)
		assert.InDelta(t, 0.18, *sc.Fused[2].Fused, 1e-9)
	})

	t.Run("Chunk in both lists keeps both scores", func(t *testing.T) {
		a := scoredChunk("doc-a", 0, "s", 0)
		withBoth := a.WithDense(0.5)

		sc := &retrieval.StageContext{
			DenseHits:  []domain.ScoredChunk{withBoth},
			SparseHits: []domain.ScoredChunk{a.WithSparse(0.4)},
		}
		retrieval.Fuse(sc, cfg, discardLogger())

		require.Len(t, sc.Fused, 1)
		require.NotNil(t, sc.Fused[0].Dense)
		require.NotNil(t, sc.Fused[0].Sparse)
		assert.InDelta(t, 0.5*0.7+0.4*0.3, *sc.Fused[0].Fused, 1e-9)
	})

	t.Run("Ties break deterministically by chunk key", func(t *testing.T) {
		a := scoredChunk("doc-a", 0, "s", 0)
		b := scoredChunk("doc-b", 0, "s", 0)

		sc := &retrieval.StageContext{
			DenseHits: []domain.ScoredChunk{b.WithDense(0.5), a.WithDense(0.5)},
		}
		retrieval.Fuse(sc, cfg, discardLogger())

		require.Len(t, sc.Fused, 2)
		assert.Equal(t, "doc-a", sc.Fused[0].Chunk.DocumentID)
		assert.Equal(t, "doc-b", sc.Fused[1].Chunk.DocumentID)
	})

	t.Run("Both sides empty yields empty fusion", func(t *testing.T) {
		sc := &retrieval.StageContext{}
		retrieval.Fuse(sc, cfg, discardLogger())
		assert.Empty(t, sc.Fused)
	})
}
