package rag

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIndexRejectsWrongDimension(t *testing.T) {
	ix := NewIndex(3)

	err := ix.Upsert(1, 1, 1, []float32{1, 0})
	require.True(t, errors.Is(err, ErrDimensionMismatch))

	_, err = ix.Query(1, []float32{1, 0, 0, 0}, 4)
	require.True(t, errors.Is(err, ErrDimensionMismatch))
}

func TestIndexQueryRanksByCosine(t *testing.T) {
	ix := NewIndex(3)
	require.NoError(t, ix.Upsert(1, 1, 10, []float32{1, 0, 0}))
	require.NoError(t, ix.Upsert(1, 2, 10, []float32{0, 1, 0}))
	require.NoError(t, ix.Upsert(1, 3, 10, []float32{0.9, 0.1, 0}))

	hits, err := ix.Query(1, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	require.Equal(t, uint(1), hits[0].ChunkID)
	require.Equal(t, uint(3), hits[1].ChunkID)
	require.InDelta(t, 1.0, hits[0].Score, 1e-9)
}

func TestIndexTieBreaksByInsertionOrder(t *testing.T) {
	ix := NewIndex(3)
	vec := []float32{0.5, 0.5, 0}
	require.NoError(t, ix.Upsert(1, 7, 10, vec))
	require.NoError(t, ix.Upsert(1, 3, 10, vec))
	require.NoError(t, ix.Upsert(1, 5, 10, vec))

	hits, err := ix.Query(1, vec, 3)
	require.NoError(t, err)
	require.Equal(t, []uint{7, 3, 5}, []uint{hits[0].ChunkID, hits[1].ChunkID, hits[2].ChunkID})
}

func TestIndexUpsertKeepsInsertionRank(t *testing.T) {
	ix := NewIndex(3)
	vec := []float32{0, 0, 1}
	require.NoError(t, ix.Upsert(1, 1, 10, vec))
	require.NoError(t, ix.Upsert(1, 2, 10, vec))

	// Re-writing chunk 1 must not demote it behind chunk 2 on ties.
	require.NoError(t, ix.Upsert(1, 1, 10, vec))

	hits, err := ix.Query(1, vec, 2)
	require.NoError(t, err)
	require.Equal(t, uint(1), hits[0].ChunkID)
	require.Equal(t, uint(2), hits[1].ChunkID)
	require.Equal(t, 2, ix.Count(1))
}

func TestIndexTenantIsolation(t *testing.T) {
	ix := NewIndex(3)
	require.NoError(t, ix.Upsert(1, 1, 10, []float32{1, 0, 0}))
	require.NoError(t, ix.Upsert(2, 2, 20, []float32{1, 0, 0}))

	hits, err := ix.Query(1, []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, uint(1), hits[0].ChunkID)

	hits, err = ix.Query(3, []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	require.Empty(t, hits)
}

func TestIndexUpsertDocumentReplacesChunkSet(t *testing.T) {
	ix := NewIndex(3)
	require.NoError(t, ix.UpsertDocument(1, 10, []DocEntry{
		{ChunkID: 1, Vector: []float32{1, 0, 0}},
		{ChunkID: 2, Vector: []float32{0, 1, 0}},
	}))
	require.Equal(t, 2, ix.Count(1))

	require.NoError(t, ix.UpsertDocument(1, 10, []DocEntry{
		{ChunkID: 3, Vector: []float32{0, 0, 1}},
	}))
	require.Equal(t, 1, ix.Count(1))

	hits, err := ix.Query(1, []float32{0, 0, 1}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, uint(3), hits[0].ChunkID)
}

func TestIndexUpsertDocumentIsAllOrNothing(t *testing.T) {
	ix := NewIndex(3)
	require.NoError(t, ix.Upsert(1, 1, 10, []float32{1, 0, 0}))

	err := ix.UpsertDocument(1, 10, []DocEntry{
		{ChunkID: 2, Vector: []float32{0, 1, 0}},
		{ChunkID: 3, Vector: []float32{0, 1}},
	})
	require.True(t, errors.Is(err, ErrDimensionMismatch))

	// The bad batch must leave the previous state intact.
	require.Equal(t, 1, ix.Count(1))
	hits, err := ix.Query(1, []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	require.Equal(t, uint(1), hits[0].ChunkID)
}

func TestIndexDeleteDocument(t *testing.T) {
	ix := NewIndex(3)
	require.NoError(t, ix.Upsert(1, 1, 10, []float32{1, 0, 0}))
	require.NoError(t, ix.Upsert(1, 2, 20, []float32{0, 1, 0}))

	ix.DeleteDocument(1, 10)
	require.Equal(t, 1, ix.Count(1))

	hits, err := ix.Query(1, []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, uint(2), hits[0].ChunkID)
}

func TestCosineSimilarityZeroVector(t *testing.T) {
	require.Equal(t, float64(0), cosineSimilarity([]float32{0, 0, 0}, []float32{1, 2, 3}))
}
