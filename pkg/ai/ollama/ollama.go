package ollama

import (
	"net/http"
	"net/url"
	"time"

	"github.com/OFFIS-RIT/bookgraph/pkg/ai"

	"github.com/ollama/ollama/api"
	"golang.org/x/sync/semaphore"
)

// GraphOllamaClient implements ai.GraphAIClient against a local or remote
// Ollama server.
type GraphOllamaClient struct {
	chatModel      string
	embeddingModel string

	timeout time.Duration
	reqLock *semaphore.Weighted

	metrics ai.MetricsRecorder

	Client *api.Client
}

// NewGraphOllamaClientParams contains configuration options for creating a new GraphOllamaClient.
// An empty BaseURL falls back to OLLAMA_HOST.
type NewGraphOllamaClientParams struct {
	ChatModel      string
	EmbeddingModel string

	BaseURL string
	ApiKey  string

	MaxConcurrentRequests int64
	Timeout               time.Duration
}

type headerTransport struct {
	headers map[string]string
	rt      http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	for k, v := range t.headers {
		if r.Header.Get(k) == "" {
			r.Header.Set(k, v)
		}
	}
	return t.rt.RoundTrip(r)
}

// NewGraphOllamaClient creates a new Ollama-based AI client with the specified configuration.
func NewGraphOllamaClient(params NewGraphOllamaClientParams) (*GraphOllamaClient, error) {
	var cli *api.Client
	if params.BaseURL == "" {
		var err error
		cli, err = api.ClientFromEnvironment()
		if err != nil {
			return nil, err
		}
	} else {
		u, err := url.Parse(params.BaseURL)
		if err != nil {
			return nil, err
		}
		httpClient := http.DefaultClient
		if params.ApiKey != "" {
			httpClient = &http.Client{
				Transport: &headerTransport{
					headers: map[string]string{"Authorization": "Bearer " + params.ApiKey},
					rt:      http.DefaultTransport,
				},
			}
		}
		cli = api.NewClient(u, httpClient)
	}

	parallel := params.MaxConcurrentRequests
	if parallel <= 0 {
		parallel = 4
	}
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	return &GraphOllamaClient{
		chatModel:      params.ChatModel,
		embeddingModel: params.EmbeddingModel,
		timeout:        timeout,
		reqLock:        semaphore.NewWeighted(parallel),
		Client:         cli,
	}, nil
}

// ResetMetrics clears all accumulated token and timing metrics to zero.
func (c *GraphOllamaClient) ResetMetrics() {
	c.metrics.Reset()
}

// GetMetrics returns the accumulated token usage and timing metrics since the last reset.
func (c *GraphOllamaClient) GetMetrics() ai.ModelMetrics {
	return c.metrics.Snapshot()
}
