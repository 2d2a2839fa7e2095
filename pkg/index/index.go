// Package index builds the per-book retrieval index used to answer questions.
package index

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/OFFIS-RIT/bookgraph/internal/util"
	"github.com/OFFIS-RIT/bookgraph/pkg/ai"
	"github.com/OFFIS-RIT/bookgraph/pkg/chunk"
	"github.com/OFFIS-RIT/bookgraph/pkg/logger"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"golang.org/x/sync/errgroup"
)

// Indexer splits a book into fine chunks, embeds them and stores the result.
type Indexer struct {
	client   ai.GraphAIClient
	store    VectorStore
	splitter *chunk.Splitter

	batchSize  int
	parallel   int
	maxRetries int
	backoff    time.Duration
}

// NewIndexerParams configures an Indexer. Zero values select the defaults:
// 1000/100 rune chunks, 64 chunks per embedding request, 4 requests in flight
// and 3 attempts per request.
type NewIndexerParams struct {
	Client     ai.GraphAIClient
	Store      VectorStore
	Splitter   *chunk.Splitter
	BatchSize  int
	Parallel   int
	MaxRetries int
	Backoff    time.Duration
}

func NewIndexer(p NewIndexerParams) *Indexer {
	ix := &Indexer{
		client:     p.Client,
		store:      p.Store,
		splitter:   p.Splitter,
		batchSize:  p.BatchSize,
		parallel:   p.Parallel,
		maxRetries: p.MaxRetries,
		backoff:    p.Backoff,
	}
	if ix.splitter == nil {
		ix.splitter = chunk.MustNew(1000, 100)
	}
	if ix.batchSize <= 0 {
		ix.batchSize = 64
	}
	if ix.parallel <= 0 {
		ix.parallel = 4
	}
	if ix.maxRetries <= 0 {
		ix.maxRetries = 3
	}
	if ix.backoff <= 0 {
		ix.backoff = 500 * time.Millisecond
	}
	return ix
}

// Build indexes text for bookID, replacing any earlier index of the book.
// It returns the number of stored chunks.
func (ix *Indexer) Build(ctx context.Context, bookID string, text string) (int, error) {
	texts := ix.splitter.Split(text)
	if len(texts) == 0 {
		return 0, errors.New("nothing to index: text is empty")
	}

	start := time.Now()
	chunks := make([]Chunk, len(texts))
	for i, t := range texts {
		id, err := gonanoid.New()
		if err != nil {
			return 0, err
		}
		chunks[i] = Chunk{ID: id, Seq: i, Text: t}
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(ix.parallel)
	for lo := 0; lo < len(chunks); lo += ix.batchSize {
		batch := chunks[lo:min(lo+ix.batchSize, len(chunks))]
		g.Go(func() error {
			return ix.embed(gCtx, batch)
		})
	}
	if err := g.Wait(); err != nil {
		return 0, fmt.Errorf("embed chunks of %s: %w", bookID, err)
	}

	if err := ix.store.Replace(ctx, bookID, chunks); err != nil {
		return 0, fmt.Errorf("store index of %s: %w", bookID, err)
	}

	logger.Info("[Index] Book indexed", "book_id", bookID, "chunks", len(chunks), "duration", time.Since(start))
	return len(chunks), nil
}

// embed fills in the embeddings of batch in place.
func (ix *Indexer) embed(ctx context.Context, batch []Chunk) error {
	inputs := make([][]byte, len(batch))
	for i := range batch {
		inputs[i] = []byte(batch[i].Text)
	}

	vecs, err := util.RetryWithContext(ctx, ix.maxRetries, ix.backoff, func(ctx context.Context) ([][]float32, error) {
		v, err := ix.client.GenerateEmbeddings(ctx, inputs)
		if err != nil {
			logger.Debug("[Index] Embedding request failed", "err", err, "inputs", len(inputs))
		}
		return v, err
	})
	if err != nil {
		return err
	}
	if len(vecs) != len(batch) {
		return fmt.Errorf("got %d embeddings for %d chunks", len(vecs), len(batch))
	}
	for i := range batch {
		batch[i].Embedding = vecs[i]
	}
	return nil
}
