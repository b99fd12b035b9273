package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"context-engine/internal/domain"

	"golang.org/x/sync/errgroup"
)

// SearchConfig holds dual-search stage parameters.
type SearchConfig struct {
	KDense  int
	KSparse int
	Timeout time.Duration
}

// DualSearch runs dense vector search and sparse lexical search
// concurrently against the chunk store. Both sides share the same filters
// and both must complete before fusion; an empty side is not an error.
func DualSearch(
	ctx context.Context,
	sc *StageContext,
	chunkRepo domain.ChunkRepository,
	cfg SearchConfig,
	logger *slog.Logger,
) error {
	searchCtx := ctx
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		searchCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	g, gctx := errgroup.WithContext(searchCtx)

	g.Go(func() error {
		hits, err := chunkRepo.DenseSearch(gctx, sc.QueryEmbedding, sc.Filters, cfg.KDense)
		if err != nil {
			return fmt.Errorf("dense search: %w", err)
		}
		sc.DenseHits = hits
		return nil
	})

	g.Go(func() error {
		hits, err := chunkRepo.SparseSearch(gctx, sc.Query, sc.Filters, cfg.KSparse)
		if err != nil {
			return fmt.Errorf("sparse search: %w", err)
		}
		sc.SparseHits = hits
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("dual_search_completed",
		slog.String("retrieval_id", sc.RetrievalID),
		slog.Int("dense_count", len(sc.DenseHits)),
		slog.Int("sparse_count", len(sc.SparseHits)),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))

	return nil
}
