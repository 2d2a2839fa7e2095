// Package metadata keeps the catalogue of analyzed books. Every book has its
// own entry object next to its graph, so writers in different processes never
// touch the same blob; All assembles the map keyed by book ID.
package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/OFFIS-RIT/bookgraph/internal/storage"
	"github.com/OFFIS-RIT/bookgraph/pkg/logger"
)

// Book is one catalogue entry. Timestamp is the Unix time of the graph write
// in seconds.
type Book struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	GraphFile string  `json:"graph_file"`
	Timestamp float64 `json:"timestamp"`
}

// Store reads and updates the catalogue.
type Store struct {
	blobs storage.BlobStore
}

func NewStore(blobs storage.BlobStore) *Store {
	return &Store{blobs: blobs}
}

// All returns the whole catalogue. A missing catalogue is empty.
func (s *Store) All(ctx context.Context) (map[string]Book, error) {
	keys, err := s.blobs.List(ctx, storage.BooksPrefix)
	if err != nil {
		return nil, fmt.Errorf("list metadata: %w", err)
	}

	books := map[string]Book{}
	for _, key := range keys {
		id, ok := storage.BookIDFromEntryKey(key)
		if !ok {
			continue
		}
		b, found, err := s.read(ctx, key)
		if err != nil {
			return nil, err
		}
		if !found {
			// removed between List and Get
			continue
		}
		if b.ID != id {
			logger.Warn("[Metadata] Skipping entry with mismatched id", "key", key, "id", b.ID)
			continue
		}
		books[id] = b
	}
	return books, nil
}

// Get returns the entry of one book.
func (s *Store) Get(ctx context.Context, bookID string) (Book, bool, error) {
	if bookID == "" || strings.Contains(bookID, "/") {
		return Book{}, false, nil
	}
	return s.read(ctx, storage.EntryKey(bookID))
}

// Upsert records book, replacing any previous entry with the same ID. The
// entry is a single object write, which the blob store makes atomic.
func (s *Store) Upsert(ctx context.Context, book Book) error {
	if book.ID == "" || strings.Contains(book.ID, "/") {
		return fmt.Errorf("invalid book id %q", book.ID)
	}
	data, err := json.Marshal(book)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	if err := s.blobs.Put(ctx, storage.EntryKey(book.ID), data); err != nil {
		return fmt.Errorf("write metadata of %s: %w", book.ID, err)
	}
	return nil
}

func (s *Store) read(ctx context.Context, key string) (Book, bool, error) {
	data, err := s.blobs.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return Book{}, false, nil
	}
	if err != nil {
		return Book{}, false, fmt.Errorf("read metadata: %w", err)
	}
	var b Book
	if err := json.Unmarshal(data, &b); err != nil {
		return Book{}, false, fmt.Errorf("decode metadata %s: %w", key, err)
	}
	return b, true, nil
}

// UnixSeconds converts t to the fractional seconds stored in Book.Timestamp.
func UnixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
