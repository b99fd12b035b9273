package provider

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"context-engine/internal/domain"
	"context-engine/internal/infra/httpclient"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

const (
	// embedInputMaxChars is the provider's input character cap; longer
	// texts are truncated before the call.
	embedInputMaxChars = 8000

	// embedCacheSize bounds the document-mode embedding cache. Re-ingested
	// documents mostly carry unchanged chunk text, so the cache saves the
	// bulk of provider calls on re-runs.
	embedCacheSize = 4096
)

// modePrefixes realize query/document embedding modes as task prefixes, the
// convention asymmetric embedding models expect.
var modePrefixes = map[domain.EmbeddingMode]string{
	domain.EmbeddingModeQuery:    "search_query: ",
	domain.EmbeddingModeDocument: "search_document: ",
}

// EmbedderClient calls an Ollama-compatible embedding endpoint.
type EmbedderClient struct {
	baseURL string
	model   string
	client  *http.Client
	logger  *slog.Logger
	cache   *lru.Cache[string, []float32]
	limiter *rate.Limiter
}

// NewEmbedderClient constructs an EmbedderClient. requestsPerSecond bounds
// the call rate during bulk ingestion; zero disables throttling.
func NewEmbedderClient(baseURL, model string, timeout time.Duration, requestsPerSecond float64, logger *slog.Logger) *EmbedderClient {
	cache, _ := lru.New[string, []float32](embedCacheSize)

	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}

	return &EmbedderClient{
		baseURL: baseURL,
		model:   model,
		client:  httpclient.NewPooledClient(timeout),
		logger:  logger,
		cache:   cache,
		limiter: rate.NewLimiter(limit, 1),
	}
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed embeds a single text in the given mode.
func (c *EmbedderClient) Embed(ctx context.Context, text string, mode domain.EmbeddingMode) (domain.EmbeddingResult, error) {
	results, err := c.EmbedBatch(ctx, []string{text}, mode)
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	return results[0], nil
}

// EmbedBatch embeds texts in the given mode. Document-mode embeddings are
// cached by content hash; only misses hit the provider.
func (c *EmbedderClient) EmbedBatch(ctx context.Context, texts []string, mode domain.EmbeddingMode) ([]domain.EmbeddingResult, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	prefix := modePrefixes[mode]
	inputs := make([]string, len(texts))
	for i, t := range texts {
		inputs[i] = prefix + truncateRunes(t, embedInputMaxChars)
	}

	results := make([]domain.EmbeddingResult, len(texts))
	cacheable := mode == domain.EmbeddingModeDocument

	var missInputs []string
	var missIndexes []int
	for i, input := range inputs {
		if cacheable {
			if vec, ok := c.cache.Get(cacheKey(input)); ok {
				results[i] = domain.EmbeddingResult{Vector: vec, Dimension: len(vec)}
				continue
			}
		}
		missInputs = append(missInputs, input)
		missIndexes = append(missIndexes, i)
	}

	if len(missInputs) == 0 {
		return results, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &domain.EmbeddingError{Err: err}
	}

	start := time.Now()
	vectors, err := c.callEmbed(ctx, missInputs)
	if err != nil {
		c.logger.Error("embed_failed",
			slog.String("model", c.model),
			slog.Int("text_count", len(missInputs)),
			slog.String("error", err.Error()),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()))
		return nil, &domain.EmbeddingError{Err: err}
	}
	if len(vectors) != len(missInputs) {
		return nil, &domain.EmbeddingError{
			Err: fmt.Errorf("expected %d embeddings, got %d", len(missInputs), len(vectors)),
		}
	}

	for j, vec := range vectors {
		if len(vec) == 0 {
			return nil, &domain.EmbeddingError{Err: fmt.Errorf("empty embedding at index %d", j)}
		}
		if cacheable {
			c.cache.Add(cacheKey(missInputs[j]), vec)
		}
		results[missIndexes[j]] = domain.EmbeddingResult{Vector: vec, Dimension: len(vec)}
	}

	c.logger.Info("embed_completed",
		slog.String("model", c.model),
		slog.String("mode", string(mode)),
		slog.Int("text_count", len(texts)),
		slog.Int("cache_hits", len(texts)-len(missInputs)),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))

	return results, nil
}

func (c *EmbedderClient) callEmbed(ctx context.Context, inputs []string) ([][]float32, error) {
	jsonData, err := json.Marshal(embedRequest{Model: c.model, Input: inputs})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/api/embed", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call embedding provider: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding provider returned status %d", resp.StatusCode)
	}

	var respBody embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&respBody); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return respBody.Embeddings, nil
}

// Version returns the embedding model identifier.
func (c *EmbedderClient) Version() string {
	return c.model
}

func cacheKey(input string) string {
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}

func truncateRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

var _ domain.Embedder = (*EmbedderClient)(nil)
