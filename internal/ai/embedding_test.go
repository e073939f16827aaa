package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type embeddingDatum struct {
	Index     int       `json:"index"`
	Embedding []float32 `json:"embedding"`
}

func newEmbeddingServer(t *testing.T, handler func(r *http.Request) ([]embeddingDatum, int)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/embeddings", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		data, status := handler(r)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"data": data})
	}))
}

func TestEmbedReturnsVector(t *testing.T) {
	server := newEmbeddingServer(t, func(r *http.Request) ([]embeddingDatum, int) {
		return []embeddingDatum{{Index: 0, Embedding: []float32{0.1, 0.2, 0.3}}}, http.StatusOK
	})
	defer server.Close()

	client := NewEmbeddingClient(server.URL, "test-key", "text-embedding-v3", 3)
	vec, err := client.Embed(context.Background(), "hello")
	require.NoError(t, err)
	require.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
}

func TestEmbedRejectsEmptyInput(t *testing.T) {
	client := NewEmbeddingClient("http://unused", "test-key", "text-embedding-v3", 3)
	_, err := client.Embed(context.Background(), "   ")
	require.Error(t, err)
}

func TestEmbedRejectsWrongDimension(t *testing.T) {
	server := newEmbeddingServer(t, func(r *http.Request) ([]embeddingDatum, int) {
		return []embeddingDatum{{Index: 0, Embedding: []float32{0.1, 0.2}}}, http.StatusOK
	})
	defer server.Close()

	client := NewEmbeddingClient(server.URL, "test-key", "text-embedding-v3", 3)
	_, err := client.Embed(context.Background(), "hello")
	require.ErrorContains(t, err, "dimension mismatch")
}

func TestEmbedBatchHonorsResponseIndexOrder(t *testing.T) {
	server := newEmbeddingServer(t, func(r *http.Request) ([]embeddingDatum, int) {
		// Out-of-order data entries must be reassembled by index.
		return []embeddingDatum{
			{Index: 1, Embedding: []float32{0, 1, 0}},
			{Index: 0, Embedding: []float32{1, 0, 0}},
		}, http.StatusOK
	})
	defer server.Close()

	client := NewEmbeddingClient(server.URL, "test-key", "text-embedding-v3", 3)
	vecs, err := client.EmbedBatch(context.Background(), []string{"first", "second"})
	require.NoError(t, err)
	require.Equal(t, []float32{1, 0, 0}, vecs[0])
	require.Equal(t, []float32{0, 1, 0}, vecs[1])
}

func TestEmbedBatchCountMismatch(t *testing.T) {
	server := newEmbeddingServer(t, func(r *http.Request) ([]embeddingDatum, int) {
		return []embeddingDatum{{Index: 0, Embedding: []float32{1, 0, 0}}}, http.StatusOK
	})
	defer server.Close()

	client := NewEmbeddingClient(server.URL, "test-key", "text-embedding-v3", 3)
	_, err := client.EmbedBatch(context.Background(), []string{"first", "second"})
	require.ErrorContains(t, err, "count mismatch")
}

func TestEmbedSurfacesAPIError(t *testing.T) {
	server := newEmbeddingServer(t, func(r *http.Request) ([]embeddingDatum, int) {
		return nil, http.StatusTooManyRequests
	})
	defer server.Close()

	client := NewEmbeddingClient(server.URL, "test-key", "text-embedding-v3", 3)
	_, err := client.Embed(context.Background(), "hello")
	require.ErrorContains(t, err, "status 429")
}
