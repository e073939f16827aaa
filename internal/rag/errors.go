package rag

import (
	"errors"
	"fmt"
)

var (
	// ErrChunkConfig means chunking parameters are unusable. It is only ever
	// produced at construction time, never on a request path.
	ErrChunkConfig = errors.New("invalid chunking parameters")

	// ErrDimensionMismatch means a vector's length does not match the index's
	// configured embedding dimension. This is a hard error on both the ingest
	// and the query path; mixing models in one index corrupts every score.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// IngestionError wraps any embedding or storage failure during document
// ingestion. When it is returned, none of the document's chunks were indexed.
type IngestionError struct {
	DocumentID string
	Err        error
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("ingest document %s failed: %v", e.DocumentID, e.Err)
}

func (e *IngestionError) Unwrap() error { return e.Err }
