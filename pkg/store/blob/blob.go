// Package blob stores each book index as one JSON document in a
// storage.BlobStore and searches it in memory.
package blob

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/OFFIS-RIT/bookgraph/internal/storage"
	"github.com/OFFIS-RIT/bookgraph/pkg/index"

	"golang.org/x/sync/singleflight"
)

type document struct {
	BookID     string        `json:"book_id"`
	Dimensions int           `json:"dimensions"`
	Chunks     []index.Chunk `json:"chunks"`
}

type cached struct {
	chunks   []index.Chunk
	loadedAt time.Time
}

// Store is an index.VectorStore on top of a blob store. Loaded indexes are
// cached for TTL so a book written by another process is picked up again.
type Store struct {
	blobs storage.BlobStore
	ttl   time.Duration
	now   func() time.Time

	group singleflight.Group
	mu    sync.RWMutex
	cache map[string]cached
}

var _ index.VectorStore = (*Store)(nil)

// New returns a Store. A ttl of zero selects one minute.
func New(blobs storage.BlobStore, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Store{
		blobs: blobs,
		ttl:   ttl,
		now:   time.Now,
		cache: make(map[string]cached),
	}
}

func (s *Store) Replace(ctx context.Context, bookID string, chunks []index.Chunk) error {
	doc := document{BookID: bookID, Chunks: chunks}
	if len(chunks) > 0 {
		doc.Dimensions = len(chunks[0].Embedding)
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode index: %w", err)
	}
	if err := s.blobs.Put(ctx, storage.IndexKey(bookID), data); err != nil {
		return err
	}

	s.mu.Lock()
	s.cache[bookID] = cached{chunks: append([]index.Chunk(nil), chunks...), loadedAt: s.now()}
	s.mu.Unlock()
	return nil
}

func (s *Store) Search(ctx context.Context, bookID string, query []float32, k int) ([]index.Match, error) {
	chunks, err := s.load(ctx, bookID)
	if err != nil {
		return nil, err
	}
	return index.Rank(chunks, query, k), nil
}

func (s *Store) Has(ctx context.Context, bookID string) (bool, error) {
	s.mu.RLock()
	_, ok := s.cache[bookID]
	s.mu.RUnlock()
	if ok {
		return true, nil
	}
	return s.blobs.Exists(ctx, storage.IndexKey(bookID))
}

// load returns the chunks of bookID, reading the blob at most once per TTL
// even under concurrent queries.
func (s *Store) load(ctx context.Context, bookID string) ([]index.Chunk, error) {
	if chunks, ok := s.fresh(bookID); ok {
		return chunks, nil
	}

	v, err, _ := s.group.Do(bookID, func() (any, error) {
		// a load that finished while we waited for the group counts
		if chunks, ok := s.fresh(bookID); ok {
			return chunks, nil
		}
		data, err := s.blobs.Get(ctx, storage.IndexKey(bookID))
		if errors.Is(err, storage.ErrNotFound) {
			return nil, index.ErrNotIndexed
		}
		if err != nil {
			return nil, err
		}
		var doc document
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode index of %s: %w", bookID, err)
		}

		s.mu.Lock()
		s.cache[bookID] = cached{chunks: doc.Chunks, loadedAt: s.now()}
		s.mu.Unlock()
		return doc.Chunks, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]index.Chunk), nil
}

func (s *Store) fresh(bookID string) ([]index.Chunk, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cache[bookID]
	if !ok || s.now().Sub(c.loadedAt) >= s.ttl {
		return nil, false
	}
	return c.chunks, true
}
