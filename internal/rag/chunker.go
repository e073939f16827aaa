package rag

import "fmt"

// Chunker splits raw document text into overlapping fixed-size windows.
// Boundaries are measured in runes so multi-byte text never splits mid-character.
// Splitting is deterministic: the same text and parameters always produce the
// same chunks, which is what makes re-ingestion idempotent.
type Chunker struct {
	size    int
	overlap int
}

func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: size must be positive, got %d", ErrChunkConfig, size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: overlap must be in [0, size), got overlap=%d size=%d", ErrChunkConfig, overlap, size)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Split cuts text into windows of c.size runes, each window starting
// size-overlap runes after the previous one. A remainder shorter than the
// window size becomes the final chunk as-is. Empty input yields no chunks.
func (c *Chunker) Split(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	step := c.size - c.overlap
	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + c.size
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			break
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
