package rag

import (
	"context"
	"fmt"
	"strings"

	"supportchat/internal/model"
)

// ScoredChunk is one retrieval result: a chunk and its similarity to the
// query, cosine in [-1, 1].
type ScoredChunk struct {
	Chunk model.Chunk `json:"chunk"`
	Score float64     `json:"score"`
}

// ChunkSource loads chunk rows for hits returned by the index.
type ChunkSource interface {
	ListByTenantAndIDs(tenantID uint, ids []uint) ([]model.Chunk, error)
}

// Retriever answers "which chunks are most relevant to this question" for one
// tenant. It embeds the query with the same Embedder used at ingestion time
// and looks the vector up in the shared index.
type Retriever struct {
	embedder Embedder
	index    *Index
	chunks   ChunkSource
	defaultK int
}

func NewRetriever(embedder Embedder, index *Index, chunks ChunkSource, defaultK int) *Retriever {
	if defaultK < 1 {
		defaultK = 4
	}
	return &Retriever{
		embedder: embedder,
		index:    index,
		chunks:   chunks,
		defaultK: defaultK,
	}
}

// Retrieve returns the top-k chunks for the query, best first. k <= 0 selects
// the configured default. A tenant with no indexed documents gets an empty
// result rather than an error.
func (r *Retriever) Retrieve(ctx context.Context, tenantID uint, query string, k int) ([]ScoredChunk, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if k <= 0 {
		k = r.defaultK
	}

	if r.index.Count(tenantID) == 0 {
		return nil, nil
	}

	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query failed: %w", err)
	}

	hits, err := r.index.Query(tenantID, vec, k)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, nil
	}

	ids := make([]uint, len(hits))
	for i, h := range hits {
		ids[i] = h.ChunkID
	}
	rows, err := r.chunks.ListByTenantAndIDs(tenantID, ids)
	if err != nil {
		return nil, fmt.Errorf("load chunks failed: %w", err)
	}

	byID := make(map[uint]model.Chunk, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}

	results := make([]ScoredChunk, 0, len(hits))
	for _, h := range hits {
		chunk, ok := byID[h.ChunkID]
		if !ok {
			// Index briefly ahead of or behind the store; skip rather than fail.
			continue
		}
		results = append(results, ScoredChunk{Chunk: chunk, Score: h.Score})
	}
	return results, nil
}
