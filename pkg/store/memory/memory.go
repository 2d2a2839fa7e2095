// Package memory is a process-local index.VectorStore for tests.
package memory

import (
	"context"
	"sync"

	"github.com/OFFIS-RIT/bookgraph/pkg/index"
)

type Store struct {
	mu    sync.RWMutex
	books map[string][]index.Chunk
}

var _ index.VectorStore = (*Store)(nil)

func New() *Store {
	return &Store{books: make(map[string][]index.Chunk)}
}

func (s *Store) Replace(_ context.Context, bookID string, chunks []index.Chunk) error {
	cp := append([]index.Chunk(nil), chunks...)
	s.mu.Lock()
	s.books[bookID] = cp
	s.mu.Unlock()
	return nil
}

func (s *Store) Search(_ context.Context, bookID string, query []float32, k int) ([]index.Match, error) {
	s.mu.RLock()
	chunks, ok := s.books[bookID]
	s.mu.RUnlock()
	if !ok {
		return nil, index.ErrNotIndexed
	}
	return index.Rank(chunks, query, k), nil
}

func (s *Store) Has(_ context.Context, bookID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.books[bookID]
	return ok, nil
}

// Chunks returns the stored chunks of bookID.
func (s *Store) Chunks(bookID string) []index.Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]index.Chunk(nil), s.books[bookID]...)
}
