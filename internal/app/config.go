package app

import (
	"time"

	"github.com/OFFIS-RIT/bookgraph/internal/queue"
	"github.com/OFFIS-RIT/bookgraph/internal/storage"
	"github.com/OFFIS-RIT/bookgraph/internal/util"
)

// Config is the process configuration, read from the environment.
type Config struct {
	Port     string
	Debug    bool
	APIToken string

	DataDir        string
	StorageAdapter string
	S3             storage.S3Config

	AIAdapter         string
	ChatURL           string
	ChatKey           string
	ChatModel         string
	EmbedURL          string
	EmbedKey          string
	EmbedModel        string
	ParallelRequests  int64
	RequestsPerSecond float64
	Timeout           time.Duration

	BatchSize         int
	ChunkSize         int
	ChunkOverlap      int
	IndexChunkSize    int
	IndexChunkOverlap int
	IndexMaxRetries   int

	VectorAdapter string
	VectorTTL     time.Duration
	DatabaseURL   string

	TaskAdapter   string
	RedisAddr     string
	RedisPassword string
	TaskTTL       time.Duration

	QueueAdapter string
	AMQP         queue.AMQPConfig
}

func ConfigFromEnv() Config {
	dataDir := util.GetEnvString("DATA_DIR", "./data")
	return Config{
		Port:     util.GetEnvString("PORT", "8000"),
		Debug:    util.GetEnvBool("DEBUG", false),
		APIToken: util.GetEnv("API_TOKEN"),

		DataDir:        dataDir,
		StorageAdapter: util.GetEnvString("STORAGE_ADAPTER", "local"),
		S3: storage.S3Config{
			Region:    util.GetEnvString("AWS_REGION", "us-east-1"),
			Endpoint:  util.GetEnv("AWS_ENDPOINT"),
			AccessKey: util.GetEnv("AWS_ACCESS_KEY"),
			SecretKey: util.GetEnv("AWS_SECRET_KEY"),
			Bucket:    util.GetEnvString("AWS_BUCKET", "bookgraph"),
		},

		AIAdapter:         util.GetEnvString("AI_ADAPTER", "openai"),
		ChatURL:           util.GetEnv("AI_CHAT_URL"),
		ChatKey:           util.GetEnv("AI_CHAT_KEY"),
		ChatModel:         util.GetEnvString("AI_CHAT_MODEL", "gpt-4o-mini"),
		EmbedURL:          util.GetEnv("AI_EMBED_URL"),
		EmbedKey:          util.GetEnv("AI_EMBED_KEY"),
		EmbedModel:        util.GetEnvString("AI_EMBED_MODEL", "text-embedding-3-small"),
		ParallelRequests:  int64(util.GetEnvNumeric("AI_PARALLEL_REQ", 15)),
		RequestsPerSecond: util.GetEnvNumeric("AI_REQ_PER_SEC", 0),
		Timeout:           time.Duration(util.GetEnvNumeric("AI_TIMEOUT_MIN", 5) * float64(time.Minute)),

		BatchSize:         util.GetEnvInt("BATCH_SIZE", 5),
		ChunkSize:         util.GetEnvInt("CHUNK_SIZE", 2000),
		ChunkOverlap:      util.GetEnvInt("CHUNK_OVERLAP", 200),
		IndexChunkSize:    util.GetEnvInt("INDEX_CHUNK_SIZE", 1000),
		IndexChunkOverlap: util.GetEnvInt("INDEX_CHUNK_OVERLAP", 100),
		IndexMaxRetries:   util.GetEnvInt("INDEX_MAX_RETRIES", 3),

		VectorAdapter: util.GetEnvString("VECTOR_ADAPTER", "blob"),
		VectorTTL:     util.GetEnvDuration("VECTOR_CACHE_TTL", time.Minute),
		DatabaseURL:   util.GetEnv("DATABASE_URL"),

		TaskAdapter:   util.GetEnvString("TASK_ADAPTER", "memory"),
		RedisAddr:     util.GetEnvString("REDIS_ADDR", "localhost:6379"),
		RedisPassword: util.GetEnv("REDIS_PASSWORD"),
		TaskTTL:       util.GetEnvDuration("TASK_TTL", 24*time.Hour),

		QueueAdapter: util.GetEnvString("QUEUE_ADAPTER", "local"),
		AMQP: queue.AMQPConfig{
			User:     util.GetEnvString("RABBITMQ_USER", "guest"),
			Password: util.GetEnvString("RABBITMQ_PASSWORD", "guest"),
			Host:     util.GetEnvString("RABBITMQ_HOST", "localhost"),
			Port:     util.GetEnvString("RABBITMQ_PORT", "5672"),
		},
	}
}
