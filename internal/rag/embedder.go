package rag

import "context"

// Embedder turns text into fixed-length vectors. The same instance must be
// used for ingestion and for queries: vectors from different models (or
// different model versions) are not comparable, and sharing one Embedder is
// what rules that mismatch out structurally.
//
// Implementations must be safe for concurrent use.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions is the fixed length of every vector this embedder produces.
	Dimensions() int
}
