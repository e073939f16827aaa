package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"supportchat/internal/model"
	"supportchat/internal/rag"
)

const embeddingBatchSize = 10 // embedding APIs commonly cap batch size

var ErrDocumentNotFound = errors.New("document not found")

// DocumentStore is the durable side of ingestion. The gorm repository
// implements it; tests substitute an in-memory fake.
type DocumentStore interface {
	GetByExternalID(tenantID uint, externalID string) (*model.Document, error)
	GetByIDAndTenant(id, tenantID uint) (*model.Document, error)
	ListByTenant(tenantID uint) ([]model.Document, error)
	SaveWithChunks(doc *model.Document, chunks []model.Chunk) error
	DeleteWithChunks(id, tenantID uint) error
}

// IngestService turns uploaded documents into retrievable chunks: split,
// embed, persist, index. A document is indexed all-or-nothing; embedding
// happens before any write, and the store replaces a document's chunks inside
// one transaction.
type IngestService struct {
	docs     DocumentStore
	chunker  *rag.Chunker
	embedder rag.Embedder
	index    *rag.Index
}

func NewIngestService(docs DocumentStore, chunker *rag.Chunker, embedder rag.Embedder, index *rag.Index) *IngestService {
	return &IngestService{
		docs:     docs,
		chunker:  chunker,
		embedder: embedder,
		index:    index,
	}
}

type IngestInput struct {
	TenantID   uint
	DocumentID string // external uuid; re-using an id replaces that document's chunks
	Filename   string
	Content    string
}

type IngestResult struct {
	Document   model.Document `json:"document"`
	ChunkCount int            `json:"chunk_count"`
}

// Ingest processes one document. Re-ingesting the same (tenant, document_id,
// content) is idempotent: chunking is deterministic and the chunk set is
// replaced wholesale, so no duplicates accumulate.
func (s *IngestService) Ingest(ctx context.Context, input IngestInput) (*IngestResult, error) {
	if input.TenantID == 0 || strings.TrimSpace(input.DocumentID) == "" {
		return nil, ErrInvalidInput
	}
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, ErrInvalidInput
	}
	filename := strings.TrimSpace(input.Filename)
	if filename == "" {
		filename = "untitled"
	}

	pieces := s.chunker.Split(content)
	if len(pieces) == 0 {
		return nil, ErrInvalidInput
	}

	// Embed everything before touching storage so a mid-batch failure leaves
	// nothing half-indexed.
	var embeddings [][]float32
	for i := 0; i < len(pieces); i += embeddingBatchSize {
		end := i + embeddingBatchSize
		if end > len(pieces) {
			end = len(pieces)
		}
		batch, err := s.embedder.EmbedBatch(ctx, pieces[i:end])
		if err != nil {
			return nil, &rag.IngestionError{DocumentID: input.DocumentID, Err: err}
		}
		embeddings = append(embeddings, batch...)
	}
	if len(embeddings) != len(pieces) {
		return nil, &rag.IngestionError{
			DocumentID: input.DocumentID,
			Err:        fmt.Errorf("embedding count mismatch: %d chunks, %d vectors", len(pieces), len(embeddings)),
		}
	}

	doc, err := s.docs.GetByExternalID(input.TenantID, input.DocumentID)
	if err != nil {
		return nil, &rag.IngestionError{DocumentID: input.DocumentID, Err: err}
	}
	if doc == nil {
		doc = &model.Document{
			ExternalID: input.DocumentID,
			TenantID:   input.TenantID,
			Filename:   filename,
		}
	}

	chunks := make([]model.Chunk, len(pieces))
	for i := range pieces {
		chunks[i] = model.Chunk{
			TenantID: input.TenantID,
			Ordinal:  i,
			Content:  pieces[i],
		}
		chunks[i].SetEmbedding(embeddings[i])
	}

	if err := s.docs.SaveWithChunks(doc, chunks); err != nil {
		return nil, &rag.IngestionError{DocumentID: input.DocumentID, Err: err}
	}

	entries := make([]rag.DocEntry, len(chunks))
	for i := range chunks {
		entries[i] = rag.DocEntry{ChunkID: chunks[i].ID, Vector: embeddings[i]}
	}
	if err := s.index.UpsertDocument(input.TenantID, doc.ID, entries); err != nil {
		return nil, &rag.IngestionError{DocumentID: input.DocumentID, Err: err}
	}

	return &IngestResult{Document: *doc, ChunkCount: len(chunks)}, nil
}

func (s *IngestService) ListDocuments(tenantID uint) ([]model.Document, error) {
	if tenantID == 0 {
		return nil, ErrInvalidInput
	}
	return s.docs.ListByTenant(tenantID)
}

// DeleteDocument removes the document, its chunk rows, and its index vectors.
func (s *IngestService) DeleteDocument(tenantID, documentID uint) error {
	if tenantID == 0 || documentID == 0 {
		return ErrInvalidInput
	}
	doc, err := s.docs.GetByIDAndTenant(documentID, tenantID)
	if err != nil {
		return err
	}
	if doc == nil {
		return ErrDocumentNotFound
	}
	if err := s.docs.DeleteWithChunks(doc.ID, tenantID); err != nil {
		return err
	}
	s.index.DeleteDocument(tenantID, doc.ID)
	return nil
}
