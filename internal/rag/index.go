package rag

import (
	"fmt"
	"math"
	"sort"
	"sync"
)

// Hit is one nearest-neighbor match returned by the index.
type Hit struct {
	ChunkID uint
	Score   float64
}

// DocEntry pairs a chunk ID with its vector for a whole-document upsert.
type DocEntry struct {
	ChunkID uint
	Vector  []float32
}

type indexEntry struct {
	chunkID    uint
	documentID uint
	vector     []float32
	seq        uint64
}

// Index is an in-memory nearest-neighbor index over chunk embeddings,
// partitioned by tenant. Queries never cross the tenant boundary.
//
// The index is safe for concurrent reads and writes. A document's vectors are
// published with a single lock acquisition, so a concurrent query observes
// either none or all of that document's chunks.
type Index struct {
	mu      sync.RWMutex
	dim     int
	nextSeq uint64
	tenants map[uint]map[uint]*indexEntry // tenantID -> chunkID -> entry
}

func NewIndex(dimension int) *Index {
	return &Index{
		dim:     dimension,
		tenants: make(map[uint]map[uint]*indexEntry),
	}
}

func (ix *Index) Dimensions() int { return ix.dim }

// Upsert inserts or replaces one chunk's vector. Replacing keeps the chunk's
// original insertion rank, so repeated ingestion does not reshuffle ties.
func (ix *Index) Upsert(tenantID, chunkID, documentID uint, vector []float32) error {
	if len(vector) != ix.dim {
		return fmt.Errorf("%w: got %d, index expects %d", ErrDimensionMismatch, len(vector), ix.dim)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.upsertLocked(tenantID, chunkID, documentID, vector)
	return nil
}

// UpsertDocument replaces all of a document's vectors in one atomic step.
// Every vector is dimension-checked before anything is touched; on error the
// index is unchanged.
func (ix *Index) UpsertDocument(tenantID, documentID uint, entries []DocEntry) error {
	for _, e := range entries {
		if len(e.Vector) != ix.dim {
			return fmt.Errorf("%w: chunk %d got %d, index expects %d", ErrDimensionMismatch, e.ChunkID, len(e.Vector), ix.dim)
		}
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.deleteDocumentLocked(tenantID, documentID)
	for _, e := range entries {
		ix.upsertLocked(tenantID, e.ChunkID, documentID, e.Vector)
	}
	return nil
}

// Query returns up to k nearest chunks for the tenant, best score first.
// Equal scores rank by insertion order, earlier chunk first. A tenant with no
// indexed chunks gets an empty result, not an error.
func (ix *Index) Query(tenantID uint, vector []float32, k int) ([]Hit, error) {
	if len(vector) != ix.dim {
		return nil, fmt.Errorf("%w: got %d, index expects %d", ErrDimensionMismatch, len(vector), ix.dim)
	}
	if k <= 0 {
		return nil, nil
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	entries := ix.tenants[tenantID]
	if len(entries) == 0 {
		return nil, nil
	}

	type scored struct {
		hit Hit
		seq uint64
	}
	results := make([]scored, 0, len(entries))
	for _, e := range entries {
		results = append(results, scored{
			hit: Hit{ChunkID: e.chunkID, Score: cosineSimilarity(vector, e.vector)},
			seq: e.seq,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].hit.Score != results[j].hit.Score {
			return results[i].hit.Score > results[j].hit.Score
		}
		return results[i].seq < results[j].seq
	})

	if k > len(results) {
		k = len(results)
	}
	hits := make([]Hit, k)
	for i := 0; i < k; i++ {
		hits[i] = results[i].hit
	}
	return hits, nil
}

// DeleteDocument removes every vector belonging to the document.
func (ix *Index) DeleteDocument(tenantID, documentID uint) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.deleteDocumentLocked(tenantID, documentID)
}

// Count reports how many chunks a tenant has indexed.
func (ix *Index) Count(tenantID uint) int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.tenants[tenantID])
}

func (ix *Index) upsertLocked(tenantID, chunkID, documentID uint, vector []float32) {
	entries, ok := ix.tenants[tenantID]
	if !ok {
		entries = make(map[uint]*indexEntry)
		ix.tenants[tenantID] = entries
	}

	vec := make([]float32, len(vector))
	copy(vec, vector)

	if existing, ok := entries[chunkID]; ok {
		existing.documentID = documentID
		existing.vector = vec
		return
	}
	ix.nextSeq++
	entries[chunkID] = &indexEntry{
		chunkID:    chunkID,
		documentID: documentID,
		vector:     vec,
		seq:        ix.nextSeq,
	}
}

func (ix *Index) deleteDocumentLocked(tenantID, documentID uint) {
	entries := ix.tenants[tenantID]
	for chunkID, e := range entries {
		if e.documentID == documentID {
			delete(entries, chunkID)
		}
	}
	if len(entries) == 0 {
		delete(ix.tenants, tenantID)
	}
}

func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
