package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"context-engine/internal/domain"
	"context-engine/internal/usecase/retrieval"

	"github.com/google/uuid"
)

// RetrieveContextUsecase turns a query into a bounded, citation-tagged
// context bundle. Stateless between requests; each call re-executes the full
// pipeline.
type RetrieveContextUsecase interface {
	Retrieve(ctx context.Context, query string, filters domain.SearchFilters) (*domain.RetrievalContext, error)
}

type retrieveContextUsecase struct {
	chunkRepo domain.ChunkRepository
	embedder  domain.Embedder
	reranker  domain.Reranker
	cfg       RagConfig
	logger    *slog.Logger
}

// NewRetrieveContextUsecase creates a new RetrieveContextUsecase.
func NewRetrieveContextUsecase(
	chunkRepo domain.ChunkRepository,
	embedder domain.Embedder,
	reranker domain.Reranker,
	cfg RagConfig,
	logger *slog.Logger,
) RetrieveContextUsecase {
	return &retrieveContextUsecase{
		chunkRepo: chunkRepo,
		embedder:  embedder,
		reranker:  reranker,
		cfg:       cfg,
		logger:    logger,
	}
}

func (u *retrieveContextUsecase) Retrieve(ctx context.Context, query string, filters domain.SearchFilters) (*domain.RetrievalContext, error) {
	if query == "" {
		return nil, fmt.Errorf("query is empty")
	}

	start := time.Now()
	sc := &retrieval.StageContext{
		RetrievalID: uuid.NewString(),
		Query:       query,
		Filters:     filters,
	}

	// Stage 1: embed the query.
	embedCtx, cancel := context.WithTimeout(ctx, u.cfg.EmbedTimeout)
	result, err := u.embedder.Embed(embedCtx, query, domain.EmbeddingModeQuery)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	sc.QueryEmbedding = result.Vector

	// Stage 2: dense and sparse search, concurrently.
	err = retrieval.DualSearch(ctx, sc, u.chunkRepo, retrieval.SearchConfig{
		KDense:  u.cfg.KDense,
		KSparse: u.cfg.KSparse,
		Timeout: u.cfg.SearchTimeout,
	}, u.logger)
	if err != nil {
		return nil, err
	}

	// Stage 3: weighted score fusion.
	retrieval.Fuse(sc, retrieval.FuseConfig{
		WeightDense:  u.cfg.FusionWeightDense,
		WeightSparse: u.cfg.FusionWeightSparse,
	}, u.logger)

	// Stage 4: cross-encoder reranking with relevance floor.
	err = retrieval.Rerank(ctx, sc, u.reranker, retrieval.RerankConfig{
		TopK:           u.cfg.RerankTopK,
		ScoreThreshold: u.cfg.RerankScoreThreshold,
		Fallback:       u.cfg.RerankFallback,
		Timeout:        u.cfg.RerankTimeout,
	}, u.logger)
	if err != nil {
		return nil, err
	}

	// Stage 5: neighbor-window expansion.
	err = retrieval.ExpandNeighbors(ctx, sc, u.chunkRepo, u.cfg.NeighborWindow, u.logger)
	if err != nil {
		return nil, err
	}

	// Stage 6: ordering, citation tags, budget truncation, rendering.
	rc := retrieval.Assemble(sc, u.cfg.MaxContextChunks)

	u.logger.Info("retrieval_completed",
		slog.String("retrieval_id", sc.RetrievalID),
		slog.Int("context_chunks", len(rc.Chunks)),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))

	return rc, nil
}
