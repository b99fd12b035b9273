package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"context-engine/internal/domain"

	"golang.org/x/sync/errgroup"
)

// ExpandNeighbors pulls in chunks adjacent by order index to each surviving
// anchor, within the same (document, section) only. Sibling lookups run in
// parallel and all complete before assembly. Neighbors carry no scores; the
// result is deduplicated by chunk key with anchors taking precedence.
func ExpandNeighbors(
	ctx context.Context,
	sc *StageContext,
	chunkRepo domain.ChunkRepository,
	window int,
	logger *slog.Logger,
) error {
	anchors := sc.Reranked
	if len(anchors) == 0 {
		sc.Expanded = nil
		return nil
	}
	if window <= 0 {
		sc.Expanded = anchors
		return nil
	}

	start := time.Now()

	seen := make(map[string]struct{}, len(anchors))
	for _, a := range anchors {
		seen[a.Chunk.Key()] = struct{}{}
	}

	var mu sync.Mutex
	var neighbors []domain.ScoredChunk

	g, gctx := errgroup.WithContext(ctx)
	for _, anchor := range anchors {
		chunk := anchor.Chunk
		g.Go(func() error {
			indexes := make([]int, 0, 2*window)
			for k := 1; k <= window; k++ {
				if chunk.OrderIndex-k >= 0 {
					indexes = append(indexes, chunk.OrderIndex-k)
				}
				indexes = append(indexes, chunk.OrderIndex+k)
			}
			if len(indexes) == 0 {
				return nil
			}

			siblings, err := chunkRepo.Siblings(gctx, chunk.DocumentID, chunk.Section, indexes)
			if err != nil {
				return fmt.Errorf("sibling lookup: %w", err)
			}

			mu.Lock()
			defer mu.Unlock()
			for _, sib := range siblings {
				key := sib.Key()
				if _, ok := seen[key]; ok {
					continue
				}
				seen[key] = struct{}{}
				neighbors = append(neighbors, domain.ScoredChunk{Chunk: sib})
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	sc.Expanded = append(append([]domain.ScoredChunk{}, anchors...), neighbors...)

	logger.Info("neighbor_expansion_completed",
		slog.String("retrieval_id", sc.RetrievalID),
		slog.Int("anchor_count", len(anchors)),
		slog.Int("neighbor_count", len(neighbors)),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))

	return nil
}
