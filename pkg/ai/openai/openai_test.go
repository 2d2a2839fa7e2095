package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExtraction struct {
	Names []string `json:"names"`
}

func newFakeAPI(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		content := "plain answer"
		if _, ok := body["response_format"]; ok {
			content = `{"names":["Harry","Ron"]}`
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   body["model"],
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
			"usage": map[string]any{"prompt_tokens": 7, "completion_tokens": 3, "total_tokens": 10},
		})
	})
	mux.HandleFunc("/embeddings", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		data := make([]map[string]any, len(body.Input))
		// answer out of order to exercise index mapping
		for i := range body.Input {
			j := len(body.Input) - 1 - i
			data[i] = map[string]any{
				"object":    "embedding",
				"index":     j,
				"embedding": []float64{float64(len(body.Input[j])), 1},
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   data,
			"model":  "text-embedding-3-small",
			"usage":  map[string]any{"prompt_tokens": 4, "total_tokens": 4},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(url string) *GraphOpenAIClient {
	return NewGraphOpenAIClient(NewGraphOpenAIClientParams{
		ChatModel:             "gpt-4o-mini",
		EmbeddingModel:        "text-embedding-3-small",
		ChatURL:               url,
		ChatKey:               "test",
		EmbeddingURL:          url,
		EmbeddingKey:          "test",
		MaxConcurrentRequests: 2,
		RequestsPerSecond:     100,
	})
}

func TestGenerateCompletion(t *testing.T) {
	srv := newFakeAPI(t)
	c := newTestClient(srv.URL)

	got, err := c.GenerateCompletion(context.Background(), "Who is Harry?")
	require.NoError(t, err)
	assert.Equal(t, "plain answer", got)
	assert.Equal(t, 10, c.GetMetrics().TotalTokens)
}

func TestGenerateCompletionWithFormat(t *testing.T) {
	srv := newFakeAPI(t)
	c := newTestClient(srv.URL)

	var out fakeExtraction
	err := c.GenerateCompletionWithFormat(context.Background(), "extraction", "names", "Text: ...", &out)
	require.NoError(t, err)
	assert.Equal(t, []string{"Harry", "Ron"}, out.Names)
}

func TestGenerateEmbeddings(t *testing.T) {
	srv := newFakeAPI(t)
	c := newTestClient(srv.URL)

	got, err := c.GenerateEmbeddings(context.Background(), [][]byte{[]byte("a"), []byte("abc")})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, []float32{1, 1}, got[0])
	assert.Equal(t, []float32{3, 1}, got[1])

	c.ResetMetrics()
	assert.Zero(t, c.GetMetrics().Requests)
}

func TestGenerateEmbeddingsRejectsBlankInput(t *testing.T) {
	c := newTestClient("http://127.0.0.1:0")
	_, err := c.GenerateEmbeddings(context.Background(), [][]byte{[]byte("  ")})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "empty"))
}
