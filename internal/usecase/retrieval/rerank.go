package retrieval

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"context-engine/internal/domain"
)

// RerankConfig holds reranking stage parameters.
type RerankConfig struct {
	// TopK caps the candidates sent to the cross-encoder.
	TopK int
	// ScoreThreshold is the relevance floor; candidates scoring below it
	// are discarded even if they ranked highly on fusion.
	ScoreThreshold float64
	// Fallback keeps the fusion ordering when the provider fails instead
	// of propagating the error.
	Fallback bool
	// Timeout bounds the provider call.
	Timeout time.Duration
}

// Rerank re-scores the top fused candidates with the cross-encoder and
// applies the relevance floor. Survivors are sorted descending by rerank
// score.
func Rerank(
	ctx context.Context,
	sc *StageContext,
	reranker domain.Reranker,
	cfg RerankConfig,
	logger *slog.Logger,
) error {
	if len(sc.Fused) == 0 {
		sc.Reranked = nil
		return nil
	}

	candidates := sc.Fused
	if cfg.TopK > 0 && len(candidates) > cfg.TopK {
		candidates = candidates[:cfg.TopK]
	}

	rerankCandidates := make([]domain.RerankCandidate, len(candidates))
	for i, hit := range candidates {
		rerankCandidates[i] = domain.RerankCandidate{
			Key:     hit.Chunk.Key(),
			Content: hit.Chunk.Content,
			Score:   *hit.Fused,
		}
	}

	start := time.Now()
	rerankCtx := ctx
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		rerankCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	results, err := reranker.Rerank(rerankCtx, sc.Query, rerankCandidates)
	if err != nil {
		if cfg.Fallback {
			logger.Warn("reranking_failed_using_fused_order",
				slog.String("retrieval_id", sc.RetrievalID),
				slog.String("error", err.Error()),
				slog.Int64("duration_ms", time.Since(start).Milliseconds()))
			sc.Reranked = candidates
			return nil
		}
		return err
	}

	scores := make(map[string]float64, len(results))
	for _, r := range results {
		scores[r.Key] = r.Score
	}

	survivors := make([]domain.ScoredChunk, 0, len(candidates))
	for _, hit := range candidates {
		score, ok := scores[hit.Chunk.Key()]
		if !ok || score < cfg.ScoreThreshold {
			continue
		}
		s := score
		hit.Rerank = &s
		survivors = append(survivors, hit)
	}

	sort.Slice(survivors, func(i, j int) bool {
		if *survivors[i].Rerank != *survivors[j].Rerank {
			return *survivors[i].Rerank > *survivors[j].Rerank
		}
		return survivors[i].Chunk.Key() < survivors[j].Chunk.Key()
	})

	sc.Reranked = survivors

	logger.Info("reranking_completed",
		slog.String("retrieval_id", sc.RetrievalID),
		slog.Int("candidate_count", len(candidates)),
		slog.Int("survivor_count", len(survivors)),
		slog.String("model", reranker.ModelName()),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))

	return nil
}
