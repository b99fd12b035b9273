package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"context-engine/internal/domain"
	"context-engine/internal/infra/httpclient"
)

// rerankRequest is the request payload for the rerank endpoint.
type rerankRequest struct {
	Query      string   `json:"query"`
	Candidates []string `json:"candidates"`
	Model      string   `json:"model,omitempty"`
}

// rerankResponseResult is a single result in the rerank response.
type rerankResponseResult struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// rerankResponse is the response from the rerank endpoint.
type rerankResponse struct {
	Results []rerankResponseResult `json:"results"`
	Model   string                 `json:"model"`
}

// RerankerClient implements domain.Reranker via HTTP calls to a
// cross-encoder scoring service.
type RerankerClient struct {
	baseURL string
	model   string
	client  *http.Client
	logger  *slog.Logger
}

// NewRerankerClient constructs a new RerankerClient. model is the
// cross-encoder model name (e.g. bge-reranker-v2-m3).
func NewRerankerClient(baseURL, model string, timeout time.Duration, logger *slog.Logger) *RerankerClient {
	return &RerankerClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  httpclient.NewPooledClient(timeout),
		logger:  logger,
	}
}

// Rerank scores candidates against the query using the cross-encoder. The
// provider returns results in arbitrary order; each is validated and mapped
// back to its candidate key.
func (c *RerankerClient) Rerank(ctx context.Context, query string, candidates []domain.RerankCandidate) ([]domain.RerankResult, error) {
	if len(candidates) == 0 {
		return []domain.RerankResult{}, nil
	}

	start := time.Now()

	contents := make([]string, len(candidates))
	for i, cand := range candidates {
		contents[i] = cand.Content
	}

	jsonPayload, err := json.Marshal(rerankRequest{
		Query:      query,
		Candidates: contents,
		Model:      c.model,
	})
	if err != nil {
		return nil, &domain.RerankError{Err: fmt.Errorf("failed to marshal request: %w", err)}
	}

	url := fmt.Sprintf("%s/v1/rerank", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonPayload))
	if err != nil {
		return nil, &domain.RerankError{Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("rerank_call_failed",
			slog.String("error", err.Error()),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()))
		return nil, &domain.RerankError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		c.logger.Warn("rerank_bad_status",
			slog.Int("status_code", resp.StatusCode),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()))
		return nil, &domain.RerankError{
			Err: fmt.Errorf("rerank endpoint returned %d: %s", resp.StatusCode, truncateString(string(body), 500)),
		}
	}

	var rerankResp rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&rerankResp); err != nil {
		return nil, &domain.RerankError{Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	results := make([]domain.RerankResult, len(rerankResp.Results))
	for i, r := range rerankResp.Results {
		if r.Index < 0 || r.Index >= len(candidates) {
			return nil, &domain.RerankError{
				Err: fmt.Errorf("invalid result index %d for %d candidates", r.Index, len(candidates)),
			}
		}
		results[i] = domain.RerankResult{
			Key:   candidates[r.Index].Key,
			Score: r.Score,
		}
	}

	c.logger.Info("rerank_completed",
		slog.Int("candidate_count", len(candidates)),
		slog.Int("result_count", len(results)),
		slog.String("model", c.model),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))

	return results, nil
}

// ModelName returns the model identifier for logging.
func (c *RerankerClient) ModelName() string {
	return c.model
}

func truncateString(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

var _ domain.Reranker = (*RerankerClient)(nil)
