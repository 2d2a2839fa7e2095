package index

import (
	"context"
	"errors"
)

// ErrNotIndexed is returned when a book has no index.
var ErrNotIndexed = errors.New("book has not been indexed")

// Chunk is one embedded passage of a book. Seq is its position in the book.
type Chunk struct {
	ID        string    `json:"id"`
	Seq       int       `json:"seq"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding"`
}

// Match is a chunk returned by a similarity search. Higher scores are closer.
type Match struct {
	Chunk
	Score float32 `json:"score"`
}

// VectorStore keeps one set of chunks per book.
type VectorStore interface {
	// Replace swaps the whole index of bookID for chunks.
	Replace(ctx context.Context, bookID string, chunks []Chunk) error
	// Search returns up to k chunks of bookID closest to query, best first.
	// It returns ErrNotIndexed when the book has no index.
	Search(ctx context.Context, bookID string, query []float32, k int) ([]Match, error)
	// Has reports whether bookID has an index.
	Has(ctx context.Context, bookID string) (bool, error)
}
