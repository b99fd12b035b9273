package usecase

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"time"
)

// RagConfig holds the process-wide retrieval and ingestion tunables. Loaded
// once at startup and treated as immutable afterwards.
type RagConfig struct {
	// KDense is the dense (vector) candidate count.
	KDense int
	// KSparse is the sparse (lexical) candidate count.
	KSparse int
	// FusionWeightDense and FusionWeightSparse weight the two signals in
	// score fusion. They need not sum to 1.
	FusionWeightDense  float64
	FusionWeightSparse float64
	// RerankTopK caps the candidates sent to the reranking provider.
	RerankTopK int
	// RerankScoreThreshold is the relevance floor; candidates scoring below
	// it are discarded even if they ranked highly on fusion.
	RerankScoreThreshold float64
	// RerankFallback keeps the fusion ordering when the reranking provider
	// fails instead of propagating the error.
	RerankFallback bool
	// NeighborWindow is the sibling radius for neighbor expansion.
	NeighborWindow int
	// MaxContextChunks bounds the chunks admitted to the final context.
	MaxContextChunks int

	// EmbedTimeout, SearchTimeout and RerankTimeout bound the individual
	// external calls within one retrieval.
	EmbedTimeout  time.Duration
	SearchTimeout time.Duration
	RerankTimeout time.Duration
}

// DefaultRagConfig returns the documented defaults.
func DefaultRagConfig() RagConfig {
	return RagConfig{
		KDense:               60,
		KSparse:              40,
		FusionWeightDense:    0.7,
		FusionWeightSparse:   0.3,
		RerankTopK:           12,
		RerankScoreThreshold: 0.2,
		RerankFallback:       false,
		NeighborWindow:       1,
		MaxContextChunks:     20,
		EmbedTimeout:         15 * time.Second,
		SearchTimeout:        10 * time.Second,
		RerankTimeout:        30 * time.Second,
	}
}

// LoadRagConfig reads tunables from the environment, falling back to the
// defaults for missing, unparsable, or non-finite values.
func LoadRagConfig() RagConfig {
	cfg := DefaultRagConfig()
	cfg.KDense = envInt("RAG_K_DENSE", cfg.KDense)
	cfg.KSparse = envInt("RAG_K_SPARSE", cfg.KSparse)
	cfg.FusionWeightDense = envFloat("RAG_FUSION_WEIGHT_DENSE", cfg.FusionWeightDense)
	cfg.FusionWeightSparse = envFloat("RAG_FUSION_WEIGHT_SPARSE", cfg.FusionWeightSparse)
	cfg.RerankTopK = envInt("RAG_RERANK_TOP_K", cfg.RerankTopK)
	cfg.RerankScoreThreshold = envFloat("RAG_RERANK_SCORE_THRESHOLD", cfg.RerankScoreThreshold)
	cfg.RerankFallback = envBool("RAG_RERANK_FALLBACK", cfg.RerankFallback)
	cfg.NeighborWindow = envInt("RAG_NEIGHBOR_WINDOW", cfg.NeighborWindow)
	cfg.MaxContextChunks = envInt("RAG_MAX_CONTEXT_CHUNKS", cfg.MaxContextChunks)
	cfg.EmbedTimeout = envSeconds("RAG_EMBED_TIMEOUT_SECONDS", cfg.EmbedTimeout)
	cfg.SearchTimeout = envSeconds("RAG_SEARCH_TIMEOUT_SECONDS", cfg.SearchTimeout)
	cfg.RerankTimeout = envSeconds("RAG_RERANK_TIMEOUT_SECONDS", cfg.RerankTimeout)
	return cfg
}

// Validate checks the configuration values.
func (c RagConfig) Validate() error {
	if c.KDense <= 0 {
		return fmt.Errorf("kDense must be positive, got %d", c.KDense)
	}
	if c.KSparse <= 0 {
		return fmt.Errorf("kSparse must be positive, got %d", c.KSparse)
	}
	if c.FusionWeightDense < 0 || c.FusionWeightSparse < 0 {
		return fmt.Errorf("fusion weights must be non-negative, got (%f, %f)",
			c.FusionWeightDense, c.FusionWeightSparse)
	}
	if c.RerankTopK <= 0 {
		return fmt.Errorf("rerankTopK must be positive, got %d", c.RerankTopK)
	}
	if c.NeighborWindow < 0 {
		return fmt.Errorf("neighborWindow must be non-negative, got %d", c.NeighborWindow)
	}
	if c.MaxContextChunks <= 0 {
		return fmt.Errorf("maxContextChunks must be positive, got %d", c.MaxContextChunks)
	}
	return nil
}

func envInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.ParseFloat(value, 64)
		if err == nil && !math.IsNaN(parsed) && !math.IsInf(parsed, 0) {
			return parsed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func envSeconds(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return time.Duration(parsed) * time.Second
		}
	}
	return fallback
}
