package openai

import (
	"context"
	"time"

	"github.com/OFFIS-RIT/bookgraph/pkg/ai"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// GraphOpenAIClient talks to any OpenAI compatible API. Chat and embedding
// requests may go to different endpoints with different keys.
//
// A GraphOpenAIClient should be created using NewGraphOpenAIClient.
type GraphOpenAIClient struct {
	chatModel      string
	embeddingModel string

	timeout time.Duration
	reqLock *semaphore.Weighted
	limiter *rate.Limiter

	metrics ai.MetricsRecorder

	ChatClient      *openai.Client
	EmbeddingClient *openai.Client
}

// NewGraphOpenAIClientParams configures a GraphOpenAIClient.
//
// MaxConcurrentRequests bounds in-flight requests across chat and embeddings.
// RequestsPerSecond enables a client-side rate limit when positive.
// Timeout applies to each request and defaults to five minutes.
type NewGraphOpenAIClientParams struct {
	ChatModel      string
	EmbeddingModel string

	ChatURL      string
	ChatKey      string
	EmbeddingURL string
	EmbeddingKey string

	MaxConcurrentRequests int64
	RequestsPerSecond     float64
	Timeout               time.Duration
}

// NewGraphOpenAIClient creates a client with separate chat and embedding
// connections.
//
// Example:
//
//	client := openai.NewGraphOpenAIClient(openai.NewGraphOpenAIClientParams{
//		ChatModel:      "gpt-4o-mini",
//		EmbeddingModel: "text-embedding-3-small",
//		ChatKey:        os.Getenv("OPENAI_API_KEY"),
//		EmbeddingKey:   os.Getenv("OPENAI_API_KEY"),
//	})
func NewGraphOpenAIClient(params NewGraphOpenAIClientParams) *GraphOpenAIClient {
	parallel := params.MaxConcurrentRequests
	if parallel <= 0 {
		parallel = 15
	}
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	var limiter *rate.Limiter
	if params.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(params.RequestsPerSecond), max(1, int(params.RequestsPerSecond)))
	}

	return &GraphOpenAIClient{
		chatModel:      params.ChatModel,
		embeddingModel: params.EmbeddingModel,

		timeout: timeout,
		reqLock: semaphore.NewWeighted(parallel),
		limiter: limiter,

		ChatClient:      newOpenaiClient(params.ChatURL, params.ChatKey),
		EmbeddingClient: newOpenaiClient(params.EmbeddingURL, params.EmbeddingKey),
	}
}

func newOpenaiClient(baseURL string, apiKey string) *openai.Client {
	options := []option.RequestOption{
		option.WithAPIKey(apiKey),
		// retries are handled by the callers
		option.WithMaxRetries(0),
	}

	if baseURL != "" {
		options = append(options, option.WithBaseURL(baseURL))
	}

	client := openai.NewClient(options...)

	return &client
}

// acquire waits for a request slot and the rate limiter. The returned
// context carries the per-request timeout; release must always be called.
func (c *GraphOpenAIClient) acquire(ctx context.Context) (context.Context, func(), error) {
	rCtx, cancel := context.WithTimeout(ctx, c.timeout)
	if err := c.reqLock.Acquire(rCtx, 1); err != nil {
		cancel()
		return nil, nil, err
	}
	release := func() {
		c.reqLock.Release(1)
		cancel()
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(rCtx); err != nil {
			release()
			return nil, nil, err
		}
	}
	return rCtx, release, nil
}

// ResetMetrics clears all accumulated token and timing metrics.
func (c *GraphOpenAIClient) ResetMetrics() {
	c.metrics.Reset()
}

// GetMetrics returns the accumulated token usage and timing metrics since the last reset.
func (c *GraphOpenAIClient) GetMetrics() ai.ModelMetrics {
	return c.metrics.Snapshot()
}
