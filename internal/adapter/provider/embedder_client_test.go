package provider_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"context-engine/internal/adapter/provider"
	"context-engine/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

type embedServerRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

func newEmbedServer(t *testing.T, calls *atomic.Int64, capture *embedServerRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/embed", r.URL.Path)
		if calls != nil {
			calls.Add(1)
		}

		var req embedServerRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if capture != nil {
			*capture = req
		}

		embeddings := make([][]float32, len(req.Input))
		for i := range embeddings {
			embeddings[i] = []float32{0.1, 0.2, 0.3}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"embeddings": embeddings})
	}))
}

func TestEmbedderClient_Embed(t *testing.T) {
	t.Run("Query mode applies the query prefix", func(t *testing.T) {
		var captured embedServerRequest
		server := newEmbedServer(t, nil, &captured)
		defer server.Close()

		client := provider.NewEmbedderClient(server.URL, "test-model", 5*time.Second, 0, testLogger())
		result, err := client.Embed(context.Background(), "how to deploy", domain.EmbeddingModeQuery)
		require.NoError(t, err)

		assert.Equal(t, 3, result.Dimension)
		require.Len(t, captured.Input, 1)
		assert.Equal(t, "search_query: how to deploy", captured.Input[0])
		assert.Equal(t, "test-model", captured.Model)
	})

	t.Run("Document mode applies the document prefix", func(t *testing.T) {
		var captured embedServerRequest
		server := newEmbedServer(t, nil, &captured)
		defer server.Close()

		client := provider.NewEmbedderClient(server.URL, "test-model", 5*time.Second, 0, testLogger())
		_, err := client.Embed(context.Background(), "release notes", domain.EmbeddingModeDocument)
		require.NoError(t, err)

		require.Len(t, captured.Input, 1)
		assert.Equal(t, "search_document: release notes", captured.Input[0])
	})

	t.Run("Overlong input is truncated", func(t *testing.T) {
		var captured embedServerRequest
		server := newEmbedServer(t, nil, &captured)
		defer server.Close()

		client := provider.NewEmbedderClient(server.URL, "test-model", 5*time.Second, 0, testLogger())
		long := strings.Repeat("a", 10000)
		_, err := client.Embed(context.Background(), long, domain.EmbeddingModeQuery)
		require.NoError(t, err)

		require.Len(t, captured.Input, 1)
		assert.Len(t, captured.Input[0], len("search_query: ")+8000)
	})
}

func TestEmbedderClient_EmbedBatch(t *testing.T) {
	t.Run("Returns one result per input", func(t *testing.T) {
		server := newEmbedServer(t, nil, nil)
		defer server.Close()

		client := provider.NewEmbedderClient(server.URL, "test-model", 5*time.Second, 0, testLogger())
		results, err := client.EmbedBatch(context.Background(), []string{"one", "two", "three"}, domain.EmbeddingModeDocument)
		require.NoError(t, err)
		require.Len(t, results, 3)
		for _, r := range results {
			assert.Equal(t, 3, r.Dimension)
		}
	})

	t.Run("Document mode caches repeated content", func(t *testing.T) {
		var calls atomic.Int64
		server := newEmbedServer(t, &calls, nil)
		defer server.Close()

		client := provider.NewEmbedderClient(server.URL, "test-model", 5*time.Second, 0, testLogger())
		_, err := client.EmbedBatch(context.Background(), []string{"same text"}, domain.EmbeddingModeDocument)
		require.NoError(t, err)
		_, err = client.EmbedBatch(context.Background(), []string{"same text"}, domain.EmbeddingModeDocument)
		require.NoError(t, err)

		assert.Equal(t, int64(1), calls.Load())
	})

	t.Run("Query mode is not cached", func(t *testing.T) {
		var calls atomic.Int64
		server := newEmbedServer(t, &calls, nil)
		defer server.Close()

		client := provider.NewEmbedderClient(server.URL, "test-model", 5*time.Second, 0, testLogger())
		_, err := client.EmbedBatch(context.Background(), []string{"same query"}, domain.EmbeddingModeQuery)
		require.NoError(t, err)
		_, err = client.EmbedBatch(context.Background(), []string{"same query"}, domain.EmbeddingModeQuery)
		require.NoError(t, err)

		assert.Equal(t, int64(2), calls.Load())
	})

	t.Run("Empty input returns nil without a call", func(t *testing.T) {
		var calls atomic.Int64
		server := newEmbedServer(t, &calls, nil)
		defer server.Close()

		client := provider.NewEmbedderClient(server.URL, "test-model", 5*time.Second, 0, testLogger())
		results, err := client.EmbedBatch(context.Background(), nil, domain.EmbeddingModeDocument)
		require.NoError(t, err)
		assert.Nil(t, results)
		assert.Equal(t, int64(0), calls.Load())
	})

	t.Run("Provider error surfaces as EmbeddingError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		client := provider.NewEmbedderClient(server.URL, "test-model", 5*time.Second, 0, testLogger())
		_, err := client.Embed(context.Background(), "q", domain.EmbeddingModeQuery)
		require.Error(t, err)

		var embErr *domain.EmbeddingError
		assert.ErrorAs(t, err, &embErr)
	})

	t.Run("Count mismatch is rejected", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"embeddings": [][]float32{{0.1}},
			})
		}))
		defer server.Close()

		client := provider.NewEmbedderClient(server.URL, "test-model", 5*time.Second, 0, testLogger())
		_, err := client.EmbedBatch(context.Background(), []string{"one", "two"}, domain.EmbeddingModeQuery)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "expected 2 embeddings")
	})

	t.Run("Empty vectors are rejected", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"embeddings": [][]float32{{}},
			})
		}))
		defer server.Close()

		client := provider.NewEmbedderClient(server.URL, "test-model", 5*time.Second, 0, testLogger())
		_, err := client.Embed(context.Background(), "q", domain.EmbeddingModeQuery)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "empty embedding")
	})
}
