package metadata

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/OFFIS-RIT/bookgraph/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBlobs(t *testing.T) storage.BlobStore {
	t.Helper()
	blobs, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	return blobs
}

func TestEmptyCatalogue(t *testing.T) {
	books, err := NewStore(newBlobs(t)).All(context.Background())
	require.NoError(t, err)
	assert.Empty(t, books)
}

func TestUpsertReplacesEntry(t *testing.T) {
	ctx := context.Background()
	s := NewStore(newBlobs(t))

	require.NoError(t, s.Upsert(ctx, Book{ID: "hp1", Title: "hp1", GraphFile: storage.GraphKey("hp1"), Timestamp: 1}))
	require.NoError(t, s.Upsert(ctx, Book{ID: "hp1", Title: "Philosopher's Stone", GraphFile: storage.GraphKey("hp1"), Timestamp: 2}))

	b, ok, err := s.Get(ctx, "hp1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Philosopher's Stone", b.Title)
	assert.Equal(t, 2.0, b.Timestamp)

	books, err := s.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]Book{"hp1": b}, books)
}

func TestGetUnknownBook(t *testing.T) {
	_, ok, err := NewStore(newBlobs(t)).Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpsertRejectsInvalidID(t *testing.T) {
	s := NewStore(newBlobs(t))
	for _, id := range []string{"", "a/b"} {
		assert.Error(t, s.Upsert(context.Background(), Book{ID: id}), "id=%q", id)
	}
}

func TestAllIgnoresOtherBookArtifacts(t *testing.T) {
	ctx := context.Background()
	blobs := newBlobs(t)
	s := NewStore(blobs)

	require.NoError(t, s.Upsert(ctx, Book{ID: "dune", Title: "Dune"}))
	require.NoError(t, blobs.Put(ctx, storage.GraphKey("dune"), []byte(`{"nodes":[],"links":[]}`)))
	require.NoError(t, blobs.Put(ctx, storage.UploadKey("book.json"), []byte(`not json`)))

	books, err := s.All(ctx)
	require.NoError(t, err)
	assert.Len(t, books, 1)
	assert.Equal(t, "Dune", books["dune"].Title)
}

// Separate stores stand in for separate worker processes sharing one bucket.
func TestConcurrentUpsertsFromSeparateStores(t *testing.T) {
	ctx := context.Background()
	blobs := newBlobs(t)
	stores := []*Store{NewStore(blobs), NewStore(blobs)}

	var wg sync.WaitGroup
	for i := range 40 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := fmt.Sprintf("book-%d", i)
			s := stores[i%len(stores)]
			assert.NoError(t, s.Upsert(ctx, Book{ID: id, Title: id, Timestamp: UnixSeconds(time.Now())}))
		}()
	}
	wg.Wait()

	for _, s := range stores {
		books, err := s.All(ctx)
		require.NoError(t, err)
		assert.Len(t, books, 40)
	}
}

func TestUnixSeconds(t *testing.T) {
	ts := time.Unix(1700000000, 500_000_000)
	assert.InDelta(t, 1700000000.5, UnixSeconds(ts), 1e-6)
}
