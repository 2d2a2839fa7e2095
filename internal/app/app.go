// Package app assembles the stores, queue and model clients shared by the
// server, the worker and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/OFFIS-RIT/bookgraph/internal/metadata"
	"github.com/OFFIS-RIT/bookgraph/internal/metrics"
	"github.com/OFFIS-RIT/bookgraph/internal/pipeline"
	"github.com/OFFIS-RIT/bookgraph/internal/queue"
	"github.com/OFFIS-RIT/bookgraph/internal/storage"
	"github.com/OFFIS-RIT/bookgraph/internal/task"
	"github.com/OFFIS-RIT/bookgraph/pkg/ai"
	oai "github.com/OFFIS-RIT/bookgraph/pkg/ai/ollama"
	gai "github.com/OFFIS-RIT/bookgraph/pkg/ai/openai"
	"github.com/OFFIS-RIT/bookgraph/pkg/chunk"
	"github.com/OFFIS-RIT/bookgraph/pkg/graph"
	"github.com/OFFIS-RIT/bookgraph/pkg/index"
	"github.com/OFFIS-RIT/bookgraph/pkg/logger"
	"github.com/OFFIS-RIT/bookgraph/pkg/query"
	"github.com/OFFIS-RIT/bookgraph/pkg/store/blob"
	pgstore "github.com/OFFIS-RIT/bookgraph/pkg/store/pgx"
)

// ClientFactory builds a model client. apiKey overrides the configured keys
// when not empty.
type ClientFactory func(apiKey string) (ai.GraphAIClient, error)

// App holds the long-lived dependencies of a process.
type App struct {
	Config     Config
	Blobs      storage.BlobStore
	Books      *metadata.Store
	Vectors    index.VectorStore
	Tasks      task.Store
	Dispatcher queue.Dispatcher
	Metrics    *metrics.Metrics
	NewClient  ClientFactory

	coarse  *chunk.Splitter
	fine    *chunk.Splitter
	closers []func() error
}

// Options select what New wires besides the stores. The worker needs no
// dispatcher; the CLI runs jobs in-process.
type Options struct {
	WithDispatcher bool
}

// New connects everything cfg names. Close releases what was opened.
func New(ctx context.Context, cfg Config, opts Options) (*App, error) {
	a := &App{Config: cfg, Metrics: metrics.New()}
	a.NewClient = a.clientFromConfig

	var err error
	if a.coarse, err = chunk.New(cfg.ChunkSize, cfg.ChunkOverlap); err != nil {
		return nil, fmt.Errorf("CHUNK_SIZE/CHUNK_OVERLAP: %w", err)
	}
	if a.fine, err = chunk.New(cfg.IndexChunkSize, cfg.IndexChunkOverlap); err != nil {
		return nil, fmt.Errorf("INDEX_CHUNK_SIZE/INDEX_CHUNK_OVERLAP: %w", err)
	}

	if err := a.openBlobs(ctx); err != nil {
		return nil, err
	}
	a.Books = metadata.NewStore(a.Blobs)

	if err := a.openVectors(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.openTasks(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if opts.WithDispatcher {
		if err := a.openDispatcher(); err != nil {
			a.Close()
			return nil, err
		}
	}
	return a, nil
}

func (a *App) openBlobs(ctx context.Context) error {
	switch a.Config.StorageAdapter {
	case "s3":
		s, err := storage.NewS3Store(ctx, a.Config.S3)
		if err != nil {
			return err
		}
		a.Blobs = s
	case "local", "":
		s, err := storage.NewLocalStore(a.Config.DataDir)
		if err != nil {
			return err
		}
		a.Blobs = s
	default:
		return fmt.Errorf("unknown STORAGE_ADAPTER %q", a.Config.StorageAdapter)
	}
	logger.Debug("[App] Blob storage ready", "adapter", a.Config.StorageAdapter)
	return nil
}

func (a *App) openVectors(ctx context.Context) error {
	switch a.Config.VectorAdapter {
	case "pgvector":
		if a.Config.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the pgvector store")
		}
		s, err := pgstore.Open(ctx, a.Config.DatabaseURL)
		if err != nil {
			return err
		}
		a.Vectors = s
		a.closers = append(a.closers, func() error { s.Close(); return nil })
	case "blob", "":
		a.Vectors = blob.New(a.Blobs, a.Config.VectorTTL)
	default:
		return fmt.Errorf("unknown VECTOR_ADAPTER %q", a.Config.VectorAdapter)
	}
	return nil
}

func (a *App) openTasks(ctx context.Context) error {
	switch a.Config.TaskAdapter {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     a.Config.RedisAddr,
			Password: a.Config.RedisPassword,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.Tasks = task.NewRedisStore(client, a.Config.TaskTTL)
		a.closers = append(a.closers, client.Close)
	case "memory", "":
		a.Tasks = task.NewMemoryStore()
	default:
		return fmt.Errorf("unknown TASK_ADAPTER %q", a.Config.TaskAdapter)
	}
	return nil
}

func (a *App) openDispatcher() error {
	switch a.Config.QueueAdapter {
	case "amqp":
		if a.Config.TaskAdapter != "redis" {
			logger.Warn("[App] AMQP dispatch with a process-local task store; workers cannot report progress")
		}
		conn, err := queue.Dial(a.Config.AMQP)
		if err != nil {
			return err
		}
		d, err := queue.NewAMQPDispatcher(conn)
		if err != nil {
			_ = conn.Close()
			return err
		}
		a.Dispatcher = d
		a.closers = append(a.closers, d.Close, conn.Close)
	case "local", "":
		d := queue.NewLocalDispatcher(a.Runner())
		a.Dispatcher = d
		a.closers = append(a.closers, func() error { d.Wait(); return nil })
	default:
		return fmt.Errorf("unknown QUEUE_ADAPTER %q", a.Config.QueueAdapter)
	}
	return nil
}

func (a *App) clientFromConfig(apiKey string) (ai.GraphAIClient, error) {
	chatKey, embedKey := a.Config.ChatKey, a.Config.EmbedKey
	if apiKey != "" {
		chatKey, embedKey = apiKey, apiKey
	}
	if embedKey == "" {
		embedKey = chatKey
	}

	switch a.Config.AIAdapter {
	case "ollama":
		return oai.NewGraphOllamaClient(oai.NewGraphOllamaClientParams{
			ChatModel:             a.Config.ChatModel,
			EmbeddingModel:        a.Config.EmbedModel,
			BaseURL:               a.Config.ChatURL,
			ApiKey:                chatKey,
			MaxConcurrentRequests: a.Config.ParallelRequests,
			Timeout:               a.Config.Timeout,
		})
	case "openai", "":
		embedURL := a.Config.EmbedURL
		if embedURL == "" {
			embedURL = a.Config.ChatURL
		}
		return gai.NewGraphOpenAIClient(gai.NewGraphOpenAIClientParams{
			ChatModel:             a.Config.ChatModel,
			EmbeddingModel:        a.Config.EmbedModel,
			ChatURL:               a.Config.ChatURL,
			ChatKey:               chatKey,
			EmbeddingURL:          embedURL,
			EmbeddingKey:          embedKey,
			MaxConcurrentRequests: a.Config.ParallelRequests,
			RequestsPerSecond:     a.Config.RequestsPerSecond,
			Timeout:               a.Config.Timeout,
		}), nil
	default:
		return nil, fmt.Errorf("unknown AI_ADAPTER %q", a.Config.AIAdapter)
	}
}

// Pipeline builds an analysis pipeline on a fresh model client.
func (a *App) Pipeline(apiKey string) (*pipeline.Pipeline, ai.GraphAIClient, error) {
	client, err := a.NewClient(apiKey)
	if err != nil {
		return nil, nil, err
	}
	pl := pipeline.New(pipeline.Params{
		Blobs:     a.Blobs,
		Books:     a.Books,
		Extractor: graph.NewExtractor(client),
		Indexer: index.NewIndexer(index.NewIndexerParams{
			Client:     client,
			Store:      a.Vectors,
			Splitter:   a.fine,
			MaxRetries: a.Config.IndexMaxRetries,
		}),
		Splitter:  a.coarse,
		BatchSize: a.Config.BatchSize,
		Metrics:   a.Metrics,
	})
	return pl, client, nil
}

// Answerer builds a question answerer on a fresh model client.
func (a *App) Answerer(apiKey string) (*query.Answerer, error) {
	client, err := a.NewClient(apiKey)
	if err != nil {
		return nil, err
	}
	return query.NewAnswerer(client, a.Vectors), nil
}

// Runner executes jobs against this app's stores.
func (a *App) Runner() *queue.Runner {
	return queue.NewRunner(a.Tasks, a.Pipeline, a.Metrics)
}

// Close waits for in-process jobs and releases connections in reverse
// order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warn("[App] Failed to close resource", "err", err)
		}
	}
	a.closers = nil
}
