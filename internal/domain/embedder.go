package domain

import "context"

// EmbeddingMode distinguishes query-side from document-side embedding.
// Asymmetric embedding models produce different vectors for the two roles.
type EmbeddingMode string

const (
	EmbeddingModeQuery    EmbeddingMode = "query"
	EmbeddingModeDocument EmbeddingMode = "document"
)

// EmbeddingResult is the validated output of one embedding call.
type EmbeddingResult struct {
	Vector    []float32
	Dimension int
}

// Embedder defines the interface for the external embedding provider.
// Implementations truncate overlong input to the provider's character cap
// before the call and wrap failures in EmbeddingError.
type Embedder interface {
	Embed(ctx context.Context, text string, mode EmbeddingMode) (EmbeddingResult, error)
	EmbedBatch(ctx context.Context, texts []string, mode EmbeddingMode) ([]EmbeddingResult, error)
	Version() string
}
