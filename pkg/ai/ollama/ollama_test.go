package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFakeOllama(t *testing.T) (*httptest.Server, *[]map[string]any) {
	t.Helper()
	var chats []map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		chats = append(chats, body)

		content := "Hogwarts"
		if _, ok := body["format"]; ok {
			content = `{"names":["Dumbledore"]}`
		}
		w.Header().Set("Content-Type", "application/x-ndjson")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model":             body["model"],
			"message":           map[string]any{"role": "assistant", "content": content},
			"done":              true,
			"prompt_eval_count": 12,
			"eval_count":        4,
		})
	})
	mux.HandleFunc("/api/embed", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		vecs := make([][]float32, len(body.Input))
		for i, in := range body.Input {
			vecs[i] = []float32{float32(len(in)), 0.5}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model":             "nomic-embed-text",
			"embeddings":        vecs,
			"prompt_eval_count": len(body.Input),
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &chats
}

func TestOllamaCompletionAndFormat(t *testing.T) {
	srv, chats := newFakeOllama(t)
	c, err := NewGraphOllamaClient(NewGraphOllamaClientParams{
		ChatModel:      "llama3.1",
		EmbeddingModel: "nomic-embed-text",
		BaseURL:        srv.URL,
		ApiKey:         "secret",
	})
	require.NoError(t, err)

	got, err := c.GenerateCompletion(context.Background(), "Where does Harry study?")
	require.NoError(t, err)
	assert.Equal(t, "Hogwarts", got)

	var out struct {
		Names []string `json:"names"`
	}
	require.NoError(t, c.GenerateCompletionWithFormat(context.Background(), "x", "y", "Text: ...", &out))
	assert.Equal(t, []string{"Dumbledore"}, out.Names)

	require.Len(t, *chats, 2)
	assert.Equal(t, "llama3.1", (*chats)[0]["model"])
	assert.Equal(t, 32, c.GetMetrics().TotalTokens)
}

func TestOllamaFormatRequiresPointer(t *testing.T) {
	srv, _ := newFakeOllama(t)
	c, err := NewGraphOllamaClient(NewGraphOllamaClientParams{BaseURL: srv.URL})
	require.NoError(t, err)

	var out struct{}
	require.Error(t, c.GenerateCompletionWithFormat(context.Background(), "x", "y", "p", out))
}

func TestOllamaEmbeddings(t *testing.T) {
	srv, _ := newFakeOllama(t)
	c, err := NewGraphOllamaClient(NewGraphOllamaClientParams{
		EmbeddingModel: "nomic-embed-text",
		BaseURL:        srv.URL,
	})
	require.NoError(t, err)

	got, err := c.GenerateEmbeddings(context.Background(), [][]byte{[]byte("ab"), []byte("abcd")})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{2, 0.5}, {4, 0.5}}, got)

	_, err = c.GenerateEmbedding(context.Background(), []byte(" "))
	require.Error(t, err)
}
