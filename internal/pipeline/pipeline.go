// Package pipeline runs the analysis of one book: ingest, index, chunk,
// batched extraction, merge and persist.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/OFFIS-RIT/bookgraph/internal/metadata"
	"github.com/OFFIS-RIT/bookgraph/internal/metrics"
	"github.com/OFFIS-RIT/bookgraph/internal/storage"
	"github.com/OFFIS-RIT/bookgraph/pkg/chunk"
	"github.com/OFFIS-RIT/bookgraph/pkg/graph"
	"github.com/OFFIS-RIT/bookgraph/pkg/index"
	"github.com/OFFIS-RIT/bookgraph/pkg/loader"
	"github.com/OFFIS-RIT/bookgraph/pkg/logger"
)

const DefaultBatchSize = 5

// Request names the upload to analyze. BookID and Title default to the
// upload's file stem.
type Request struct {
	BookID  string
	Title   string
	FileKey string
}

// Result summarizes a finished run.
type Result struct {
	BookID    string `json:"book_id"`
	Nodes     int    `json:"nodes"`
	Edges     int    `json:"edges"`
	GraphPath string `json:"graph_path"`
}

type Pipeline struct {
	loader    *loader.Loader
	blobs     storage.BlobStore
	books     *metadata.Store
	extractor *graph.Extractor
	indexer   *index.Indexer
	splitter  *chunk.Splitter
	batchSize int
	metrics   *metrics.Metrics
	now       func() time.Time
}

// Params wires a Pipeline. Indexer and Metrics are optional; without an
// indexer the retrieval index is not built.
type Params struct {
	Blobs     storage.BlobStore
	Books     *metadata.Store
	Extractor *graph.Extractor
	Indexer   *index.Indexer
	Splitter  *chunk.Splitter
	BatchSize int
	Metrics   *metrics.Metrics
}

func New(p Params) *Pipeline {
	pl := &Pipeline{
		loader:    loader.New(p.Blobs),
		blobs:     p.Blobs,
		books:     p.Books,
		extractor: p.Extractor,
		indexer:   p.Indexer,
		splitter:  p.Splitter,
		batchSize: p.BatchSize,
		metrics:   p.Metrics,
		now:       time.Now,
	}
	if pl.splitter == nil {
		pl.splitter = chunk.MustNew(2000, 200)
	}
	if pl.batchSize <= 0 {
		pl.batchSize = DefaultBatchSize
	}
	if pl.books == nil {
		pl.books = metadata.NewStore(p.Blobs)
	}
	if pl.metrics != nil {
		pl.extractor.OnError(func(error) { pl.metrics.ExtractionFailed() })
	}
	return pl
}

// Analyze runs the whole pipeline for req. Only an unreadable or empty
// upload, a cancelled ctx or a failed write abort the run; extraction and
// indexing failures degrade the result instead.
func (p *Pipeline) Analyze(ctx context.Context, req Request, sink ProgressSink) (*Result, error) {
	if sink == nil {
		sink = discard{}
	}
	if req.BookID == "" {
		req.BookID = loader.BookID(req.FileKey)
	}
	if req.Title == "" {
		req.Title = req.BookID
	}

	logger.Info("[Pipeline] Starting analysis", "book_id", req.BookID, "title", req.Title)
	sink.OnProgress(10, "Ingesting and chunking...")

	text, err := p.loader.Load(ctx, req.FileKey)
	if err != nil {
		return nil, fmt.Errorf("ingest %s: %w", req.FileKey, err)
	}

	p.buildIndex(ctx, req.BookID, text)

	chunks := p.splitter.Split(text)
	logger.Info("[Pipeline] Text split into chunks", "book_id", req.BookID, "chunks", len(chunks))

	results, err := p.extractAll(ctx, chunks, sink)
	if err != nil {
		return nil, err
	}

	g := graph.Build(results...)
	logger.Info("[Pipeline] Graph built", "book_id", req.BookID, "nodes", g.NodeCount(), "edges", g.EdgeCount())

	sink.OnProgress(95, "Saving graph...")
	graphKey, err := p.save(ctx, req, g)
	if err != nil {
		return nil, err
	}

	return &Result{
		BookID:    req.BookID,
		Nodes:     g.NodeCount(),
		Edges:     g.EdgeCount(),
		GraphPath: graphKey,
	}, nil
}

// buildIndex is best effort; queries on a book without index get the
// not-indexed answer.
func (p *Pipeline) buildIndex(ctx context.Context, bookID, text string) {
	if p.indexer == nil {
		return
	}
	n, err := p.indexer.Build(ctx, bookID, text)
	p.metrics.IndexBuilt(n, err)
	if err != nil {
		logger.Warn("[Pipeline] Index build failed, continuing without index", "book_id", bookID, "err", err)
		return
	}
	logger.Debug("[Pipeline] Index built", "book_id", bookID, "chunks", n)
}

// extractAll runs one batch at a time. Chunks of a batch are extracted
// concurrently and the next batch starts after all of them returned. Results
// keep chunk order. Extraction fails open, so a batch that ran while ctx was
// cancelled aborts the run instead of yielding a partial graph.
func (p *Pipeline) extractAll(ctx context.Context, chunks []string, sink ProgressSink) ([]graph.ExtractionResult, error) {
	results := make([]graph.ExtractionResult, len(chunks))
	total := (len(chunks) + p.batchSize - 1) / p.batchSize

	for b := range total {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("analysis cancelled: %w", err)
		}

		start := b * p.batchSize
		end := min(start+p.batchSize, len(chunks))

		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				results[i] = p.extractor.Extract(ctx, chunks[i])
				return ctx.Err()
			})
		}
		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("analysis cancelled: %w", err)
		}
		p.metrics.ChunksExtracted(end - start)

		logger.Debug("[Pipeline] Processed batch", "batch", b+1, "total", total)
		sink.OnProgress(batchProgress(b+1, total), fmt.Sprintf("Analyzing chunk batch %d/%d", b+1, total))
	}
	return results, nil
}

func (p *Pipeline) save(ctx context.Context, req Request, g *graph.Graph) (string, error) {
	data, err := json.Marshal(g)
	if err != nil {
		return "", fmt.Errorf("encode graph: %w", err)
	}
	key := storage.GraphKey(req.BookID)
	if err := p.blobs.Put(ctx, key, data); err != nil {
		return "", fmt.Errorf("save graph: %w", err)
	}
	err = p.books.Upsert(ctx, metadata.Book{
		ID:        req.BookID,
		Title:     req.Title,
		GraphFile: key,
		Timestamp: metadata.UnixSeconds(p.now()),
	})
	if err != nil {
		return "", err
	}
	return key, nil
}
