package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"supportchat/internal/model"
	"supportchat/internal/rag"
)

type fakeDocumentStore struct {
	docs        map[string]*model.Document // "tenantID/externalID"
	chunks      map[uint][]model.Chunk     // documentID -> chunks
	nextDocID   uint
	nextChunkID uint
}

func newFakeDocumentStore() *fakeDocumentStore {
	return &fakeDocumentStore{
		docs:   make(map[string]*model.Document),
		chunks: make(map[uint][]model.Chunk),
	}
}

func (f *fakeDocumentStore) key(tenantID uint, externalID string) string {
	return fmt.Sprintf("%d/%s", tenantID, externalID)
}

func (f *fakeDocumentStore) GetByExternalID(tenantID uint, externalID string) (*model.Document, error) {
	doc, ok := f.docs[f.key(tenantID, externalID)]
	if !ok {
		return nil, nil
	}
	copied := *doc
	return &copied, nil
}

func (f *fakeDocumentStore) GetByIDAndTenant(id, tenantID uint) (*model.Document, error) {
	for _, doc := range f.docs {
		if doc.ID == id && doc.TenantID == tenantID {
			copied := *doc
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeDocumentStore) ListByTenant(tenantID uint) ([]model.Document, error) {
	var out []model.Document
	for _, doc := range f.docs {
		if doc.TenantID == tenantID {
			out = append(out, *doc)
		}
	}
	return out, nil
}

func (f *fakeDocumentStore) SaveWithChunks(doc *model.Document, chunks []model.Chunk) error {
	if doc.ID == 0 {
		f.nextDocID++
		doc.ID = f.nextDocID
	}
	for i := range chunks {
		f.nextChunkID++
		chunks[i].ID = f.nextChunkID
		chunks[i].DocumentID = doc.ID
	}
	doc.Processed = true
	doc.ChunkCount = len(chunks)
	stored := *doc
	f.docs[f.key(doc.TenantID, doc.ExternalID)] = &stored
	f.chunks[doc.ID] = append([]model.Chunk(nil), chunks...)
	return nil
}

func (f *fakeDocumentStore) DeleteWithChunks(id, tenantID uint) error {
	for key, doc := range f.docs {
		if doc.ID == id && doc.TenantID == tenantID {
			delete(f.docs, key)
			delete(f.chunks, id)
			return nil
		}
	}
	return nil
}

type fakeEmbedder struct {
	dim  int
	fail bool
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if f.fail {
		return nil, errors.New("embedding api unavailable")
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec := make([]float32, f.dim)
		vec[len(t)%f.dim] = 1
		out[i] = vec
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int { return f.dim }

func newIngestFixture(t *testing.T, embedder rag.Embedder) (*IngestService, *fakeDocumentStore, *rag.Index) {
	t.Helper()
	chunker, err := rag.NewChunker(20, 5)
	require.NoError(t, err)
	store := newFakeDocumentStore()
	index := rag.NewIndex(3)
	return NewIngestService(store, chunker, embedder, index), store, index
}

func TestIngestRejectsInvalidInput(t *testing.T) {
	svc, _, _ := newIngestFixture(t, &fakeEmbedder{dim: 3})

	_, err := svc.Ingest(context.Background(), IngestInput{TenantID: 0, DocumentID: "d1", Content: "x"})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Ingest(context.Background(), IngestInput{TenantID: 1, DocumentID: "", Content: "x"})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Ingest(context.Background(), IngestInput{TenantID: 1, DocumentID: "d1", Content: "   "})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestIngestSplitsEmbedsAndIndexes(t *testing.T) {
	svc, store, index := newIngestFixture(t, &fakeEmbedder{dim: 3})

	content := strings.Repeat("support article text. ", 4)
	result, err := svc.Ingest(context.Background(), IngestInput{
		TenantID:   1,
		DocumentID: "doc-1",
		Filename:   "faq.txt",
		Content:    content,
	})
	require.NoError(t, err)
	require.True(t, result.Document.Processed)
	require.Greater(t, result.ChunkCount, 1)
	require.Equal(t, result.ChunkCount, index.Count(1))

	stored := store.chunks[result.Document.ID]
	require.Len(t, stored, result.ChunkCount)
	for i, chunk := range stored {
		require.Equal(t, i, chunk.Ordinal)
		require.Equal(t, uint(1), chunk.TenantID)
	}
}

func TestIngestSameDocumentIsIdempotent(t *testing.T) {
	svc, store, index := newIngestFixture(t, &fakeEmbedder{dim: 3})

	input := IngestInput{
		TenantID:   1,
		DocumentID: "doc-1",
		Filename:   "faq.txt",
		Content:    strings.Repeat("the same text every time. ", 4),
	}

	first, err := svc.Ingest(context.Background(), input)
	require.NoError(t, err)
	second, err := svc.Ingest(context.Background(), input)
	require.NoError(t, err)

	require.Equal(t, first.Document.ID, second.Document.ID)
	require.Equal(t, first.ChunkCount, second.ChunkCount)
	require.Len(t, store.docs, 1)
	// Re-ingestion replaces the chunk set, it never accumulates duplicates.
	require.Equal(t, second.ChunkCount, index.Count(1))
}

func TestIngestEmbeddingFailureLeavesNothingBehind(t *testing.T) {
	svc, store, index := newIngestFixture(t, &fakeEmbedder{dim: 3, fail: true})

	_, err := svc.Ingest(context.Background(), IngestInput{
		TenantID:   1,
		DocumentID: "doc-1",
		Content:    "some content worth indexing",
	})

	var ingestErr *rag.IngestionError
	require.ErrorAs(t, err, &ingestErr)
	require.Equal(t, "doc-1", ingestErr.DocumentID)
	require.Empty(t, store.docs)
	require.Zero(t, index.Count(1))
}

func TestIngestKeepsTenantsSeparate(t *testing.T) {
	svc, _, index := newIngestFixture(t, &fakeEmbedder{dim: 3})

	_, err := svc.Ingest(context.Background(), IngestInput{TenantID: 1, DocumentID: "a", Content: "tenant one content"})
	require.NoError(t, err)
	_, err = svc.Ingest(context.Background(), IngestInput{TenantID: 2, DocumentID: "a", Content: "tenant two content"})
	require.NoError(t, err)

	require.Equal(t, 1, index.Count(1))
	require.Equal(t, 1, index.Count(2))

	docs, err := svc.ListDocuments(1)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Equal(t, uint(1), docs[0].TenantID)
}

func TestDeleteDocumentRemovesIndexVectors(t *testing.T) {
	svc, _, index := newIngestFixture(t, &fakeEmbedder{dim: 3})

	result, err := svc.Ingest(context.Background(), IngestInput{TenantID: 1, DocumentID: "a", Content: "to be deleted"})
	require.NoError(t, err)
	require.Equal(t, 1, index.Count(1))

	require.NoError(t, svc.DeleteDocument(1, result.Document.ID))
	require.Zero(t, index.Count(1))

	docs, err := svc.ListDocuments(1)
	require.NoError(t, err)
	require.Empty(t, docs)
}

func TestDeleteDocumentMissing(t *testing.T) {
	svc, _, _ := newIngestFixture(t, &fakeEmbedder{dim: 3})

	err := svc.DeleteDocument(1, 42)
	require.ErrorIs(t, err, ErrDocumentNotFound)
}
