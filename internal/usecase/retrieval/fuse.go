package retrieval

import (
	"log/slog"
	"sort"

	"context-engine/internal/domain"
)

// FuseConfig holds the fusion stage weights. They need not sum to 1.
type FuseConfig struct {
	WeightDense  float64
	WeightSparse float64
}

// Fuse merges the dense and sparse candidate sets into one list ranked by
// weighted score combination. The full union is passed forward; no cap is
// applied at this stage.
func Fuse(sc *StageContext, cfg FuseConfig, logger *slog.Logger) {
	sc.Fused = fuseCandidates(sc.DenseHits, sc.SparseHits, cfg)

	logger.Info("fusion_completed",
		slog.String("retrieval_id", sc.RetrievalID),
		slog.Int("dense_count", len(sc.DenseHits)),
		slog.Int("sparse_count", len(sc.SparseHits)),
		slog.Int("fused_count", len(sc.Fused)))
}

// fuseCandidates merges by chunk key, treating a missing side's score as 0.
// The result is sorted descending by fused score with ties broken by chunk
// key so identical inputs always produce identical orderings.
func fuseCandidates(dense, sparse []domain.ScoredChunk, cfg FuseConfig) []domain.ScoredChunk {
	merged := make(map[string]domain.ScoredChunk, len(dense)+len(sparse))

	for _, hit := range dense {
		merged[hit.Chunk.Key()] = hit
	}
	for _, hit := range sparse {
		key := hit.Chunk.Key()
		if existing, ok := merged[key]; ok {
			existing.Sparse = hit.Sparse
			merged[key] = existing
		} else {
			merged[key] = hit
		}
	}

	out := make([]domain.ScoredChunk, 0, len(merged))
	for _, hit := range merged {
		var denseScore, sparseScore float64
		if hit.Dense != nil {
			denseScore = *hit.Dense
		}
		if hit.Sparse != nil {
			sparseScore = *hit.Sparse
		}
		fused := denseScore*cfg.WeightDense + sparseScore*cfg.WeightSparse
		hit.Fused = &fused
		out = append(out, hit)
	}

	sort.Slice(out, func(i, j int) bool {
		if *out[i].Fused != *out[j].Fused {
			return *out[i].Fused > *out[j].Fused
		}
		return out[i].Chunk.Key() < out[j].Chunk.Key()
	})

	return out
}
