package provider_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"context-engine/internal/adapter/provider"
	"context-engine/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCandidates() []domain.RerankCandidate {
	return []domain.RerankCandidate{
		{Key: "doc-a#0", Content: "Content about deployment", Score: 0.8},
		{Key: "doc-b#2", Content: "Content about rollback", Score: 0.7},
		{Key: "doc-c#1", Content: "Content about monitoring", Score: 0.6},
	}
}

func TestRerankerClient_Rerank(t *testing.T) {
	t.Run("Maps results back to candidate keys", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/v1/rerank", r.URL.Path)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

			var req struct {
				Query      string   `json:"query"`
				Candidates []string `json:"candidates"`
				Model      string   `json:"model"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "test query", req.Query)
			assert.Len(t, req.Candidates, 3)
			assert.Equal(t, "bge-reranker-v2-m3", req.Model)

			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"results": []map[string]any{
					{"index": 1, "score": 0.95},
					{"index": 0, "score": 0.85},
					{"index": 2, "score": 0.75},
				},
				"model": "bge-reranker-v2-m3",
			})
		}))
		defer server.Close()

		client := provider.NewRerankerClient(server.URL, "bge-reranker-v2-m3", 30*time.Second, testLogger())
		results, err := client.Rerank(context.Background(), "test query", testCandidates())
		require.NoError(t, err)

		require.Len(t, results, 3)
		assert.Equal(t, "doc-b#2", results[0].Key)
		assert.Equal(t, 0.95, results[0].Score)
		assert.Equal(t, "doc-a#0", results[1].Key)
		assert.Equal(t, "doc-c#1", results[2].Key)
	})

	t.Run("Empty candidates skip the provider", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("provider should not be called")
		}))
		defer server.Close()

		client := provider.NewRerankerClient(server.URL, "bge-reranker-v2-m3", 30*time.Second, testLogger())
		results, err := client.Rerank(context.Background(), "test query", nil)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("Out-of-range indexes are rejected", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"results": []map[string]any{
					{"index": 7, "score": 0.9},
				},
			})
		}))
		defer server.Close()

		client := provider.NewRerankerClient(server.URL, "bge-reranker-v2-m3", 30*time.Second, testLogger())
		_, err := client.Rerank(context.Background(), "test query", testCandidates())
		require.Error(t, err)

		var rerankErr *domain.RerankError
		require.ErrorAs(t, err, &rerankErr)
		assert.Contains(t, err.Error(), "invalid result index")
	})

	t.Run("Non-200 status surfaces as RerankError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model not loaded", http.StatusServiceUnavailable)
		}))
		defer server.Close()

		client := provider.NewRerankerClient(server.URL, "bge-reranker-v2-m3", 30*time.Second, testLogger())
		_, err := client.Rerank(context.Background(), "test query", testCandidates())
		require.Error(t, err)

		var rerankErr *domain.RerankError
		require.ErrorAs(t, err, &rerankErr)
		assert.Contains(t, err.Error(), "503")
	})

	t.Run("Connection failure surfaces as RerankError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close() // refuse connections

		client := provider.NewRerankerClient(server.URL, "bge-reranker-v2-m3", 1*time.Second, testLogger())
		_, err := client.Rerank(context.Background(), "test query", testCandidates())
		require.Error(t, err)

		var rerankErr *domain.RerankError
		assert.ErrorAs(t, err, &rerankErr)
	})

	t.Run("Timeout is honored", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
			_ = json.NewEncoder(w).Encode(map[string]any{"results": []map[string]any{}})
		}))
		defer server.Close()

		client := provider.NewRerankerClient(server.URL, "bge-reranker-v2-m3", 30*time.Second, testLogger())
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		_, err := client.Rerank(ctx, "test query", testCandidates())
		assert.Error(t, err)
	})
}
