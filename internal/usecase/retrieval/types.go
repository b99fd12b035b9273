package retrieval

import "context-engine/internal/domain"

// StageContext carries data between retrieval pipeline stages.
type StageContext struct {
	// Input
	RetrievalID string
	Query       string
	Filters     domain.SearchFilters

	// Stage 1: query embedding
	QueryEmbedding []float32

	// Stage 2: dual search outputs
	DenseHits  []domain.ScoredChunk
	SparseHits []domain.ScoredChunk

	// Stage 3: fusion output
	Fused []domain.ScoredChunk

	// Stage 4: rerank output (the surviving anchors)
	Reranked []domain.ScoredChunk

	// Stage 5: neighbor expansion output
	Expanded []domain.ScoredChunk
}
