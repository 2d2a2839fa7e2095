package blob

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/OFFIS-RIT/bookgraph/internal/storage"
	"github.com/OFFIS-RIT/bookgraph/pkg/index"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingBlobs struct {
	storage.BlobStore
	gets atomic.Int32
}

func (c *countingBlobs) Get(ctx context.Context, key string) ([]byte, error) {
	c.gets.Add(1)
	return c.BlobStore.Get(ctx, key)
}

func newBlobs(t *testing.T) *countingBlobs {
	t.Helper()
	local, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	return &countingBlobs{BlobStore: local}
}

var chunks = []index.Chunk{
	{ID: "a", Seq: 0, Text: "Harry lives under the stairs.", Embedding: []float32{1, 0}},
	{ID: "b", Seq: 1, Text: "Hagrid brings a letter.", Embedding: []float32{0, 1}},
}

func TestSearchMissingBook(t *testing.T) {
	s := New(newBlobs(t), 0)
	_, err := s.Search(context.Background(), "nope", []float32{1, 0}, 5)
	require.ErrorIs(t, err, index.ErrNotIndexed)

	ok, err := s.Has(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReplaceThenSearchFromAnotherInstance(t *testing.T) {
	ctx := context.Background()
	blobs := newBlobs(t)
	require.NoError(t, New(blobs, 0).Replace(ctx, "hp1", chunks))

	reader := New(blobs, 0)
	ok, err := reader.Has(ctx, "hp1")
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := reader.Search(ctx, "hp1", []float32{0, 1}, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Hagrid brings a letter.", got[0].Text)
}

func TestConcurrentSearchesLoadOnce(t *testing.T) {
	ctx := context.Background()
	blobs := newBlobs(t)
	require.NoError(t, New(blobs, 0).Replace(ctx, "hp1", chunks))

	reader := New(blobs, time.Hour)
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := reader.Search(ctx, "hp1", []float32{1, 0}, 5)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), blobs.gets.Load())
}

func TestCacheExpires(t *testing.T) {
	ctx := context.Background()
	blobs := newBlobs(t)
	require.NoError(t, New(blobs, 0).Replace(ctx, "hp1", chunks))

	now := time.Unix(0, 0)
	reader := New(blobs, time.Minute)
	reader.now = func() time.Time { return now }

	_, err := reader.Search(ctx, "hp1", []float32{1, 0}, 5)
	require.NoError(t, err)
	_, err = reader.Search(ctx, "hp1", []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Equal(t, int32(1), blobs.gets.Load())

	now = now.Add(2 * time.Minute)
	_, err = reader.Search(ctx, "hp1", []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Equal(t, int32(2), blobs.gets.Load())
}
