package domain

import "context"

// RerankCandidate represents a chunk candidate for cross-encoder reranking.
type RerankCandidate struct {
	// Key identifies the chunk (used to map results back).
	Key string
	// Content is the text scored against the query.
	Content string
	// Score is the fused retrieval score, for logging.
	Score float64
}

// RerankResult represents a reranked candidate with its cross-encoder
// relevance score.
type RerankResult struct {
	Key   string
	Score float64
}

// Reranker defines the interface for the external cross-encoder reranking
// provider. Implementations wrap failures in RerankError.
type Reranker interface {
	// Rerank scores candidates against the query. Results are returned
	// sorted by score descending.
	Rerank(ctx context.Context, query string, candidates []RerankCandidate) ([]RerankResult, error)

	// ModelName returns the model identifier for logging.
	ModelName() string
}
