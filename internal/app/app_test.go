package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OFFIS-RIT/bookgraph/internal/queue"
	"github.com/OFFIS-RIT/bookgraph/internal/storage"
	"github.com/OFFIS-RIT/bookgraph/internal/task"
	"github.com/OFFIS-RIT/bookgraph/pkg/ai"
	"github.com/OFFIS-RIT/bookgraph/pkg/ai/aitest"
	oai "github.com/OFFIS-RIT/bookgraph/pkg/ai/ollama"
	gai "github.com/OFFIS-RIT/bookgraph/pkg/ai/openai"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	cfg := ConfigFromEnv()
	cfg.DataDir = t.TempDir()
	cfg.StorageAdapter = "local"
	cfg.VectorAdapter = "blob"
	cfg.TaskAdapter = "memory"
	cfg.QueueAdapter = "local"
	return cfg
}

func TestConfigDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "BATCH_SIZE", "CHUNK_SIZE", "AI_TIMEOUT_MIN", "TASK_TTL"} {
		t.Setenv(key, "")
	}
	cfg := ConfigFromEnv()
	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, 5, cfg.BatchSize)
	assert.Equal(t, 2000, cfg.ChunkSize)
	assert.Equal(t, 200, cfg.ChunkOverlap)
	assert.Equal(t, 1000, cfg.IndexChunkSize)
	assert.Equal(t, 100, cfg.IndexChunkOverlap)
	assert.Equal(t, 5*time.Minute, cfg.Timeout)
	assert.Equal(t, 24*time.Hour, cfg.TaskTTL)
}

func TestConfigFromEnvOverrides(t *testing.T) {
	t.Setenv("BATCH_SIZE", "8")
	t.Setenv("AI_TIMEOUT_MIN", "0.5")
	t.Setenv("TASK_ADAPTER", "redis")
	t.Setenv("RABBITMQ_HOST", "rabbit")

	cfg := ConfigFromEnv()
	assert.Equal(t, 8, cfg.BatchSize)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, "redis", cfg.TaskAdapter)
	assert.Equal(t, "rabbit", cfg.AMQP.Host)
}

func TestNewRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{name: "overlap too large", modify: func(c *Config) { c.ChunkOverlap = c.ChunkSize }},
		{name: "storage adapter", modify: func(c *Config) { c.StorageAdapter = "ftp" }},
		{name: "vector adapter", modify: func(c *Config) { c.VectorAdapter = "faiss" }},
		{name: "pgvector without url", modify: func(c *Config) { c.VectorAdapter = "pgvector"; c.DatabaseURL = "" }},
		{name: "task adapter", modify: func(c *Config) { c.TaskAdapter = "etcd" }},
		{name: "queue adapter", modify: func(c *Config) { c.QueueAdapter = "kafka" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.modify(&cfg)
			_, err := New(context.Background(), cfg, Options{WithDispatcher: true})
			require.Error(t, err)
		})
	}
}

func TestClientFromConfig(t *testing.T) {
	cfg := testConfig(t)
	a, err := New(context.Background(), cfg, Options{})
	require.NoError(t, err)
	defer a.Close()

	client, err := a.NewClient("sk-request")
	require.NoError(t, err)
	assert.IsType(t, &gai.GraphOpenAIClient{}, client)

	a.Config.AIAdapter = "ollama"
	a.Config.ChatURL = "http://localhost:11434"
	client, err = a.NewClient("")
	require.NoError(t, err)
	assert.IsType(t, &oai.GraphOllamaClient{}, client)

	a.Config.AIAdapter = "bard"
	_, err = a.NewClient("")
	require.Error(t, err)
}

func TestLocalDispatchEndToEnd(t *testing.T) {
	a, err := New(context.Background(), testConfig(t), Options{WithDispatcher: true})
	require.NoError(t, err)

	model := &aitest.Client{
		Format: func(context.Context, string) (string, error) {
			return `{"entities": [{"name": "Frodo"}, {"name": "Sam"}],
				"relationships": [{"source": "Frodo", "target": "Sam", "type": "friend"}]}`, nil
		},
		Complete: func(context.Context, string) (string, error) { return "Sam.", nil },
	}
	a.NewClient = func(string) (ai.GraphAIClient, error) { return model, nil }

	ctx := context.Background()
	require.NoError(t, a.Blobs.Put(ctx, storage.UploadKey("lotr.txt"), []byte("Frodo and Sam walk to Mordor.")))
	created, err := a.Tasks.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, a.Dispatcher.Submit(ctx, queue.Job{TaskID: created.ID, BookID: "lotr", Filename: "lotr.txt"}))

	// Close waits for local jobs
	a.Close()

	got, err := a.Tasks.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusCompleted, got.Status)

	books, err := a.Books.All(ctx)
	require.NoError(t, err)
	assert.Contains(t, books, "lotr")

	answerer, err := a.Answerer("")
	require.NoError(t, err)
	ans, err := answerer.Answer(ctx, "lotr", "Who walks with Frodo?")
	require.NoError(t, err)
	assert.Equal(t, "Sam.", ans.Answer)
	assert.Equal(t, []string{"Frodo and Sam walk to Mordor."}, ans.Sources)
}
