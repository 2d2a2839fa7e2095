// Package aitest provides a scripted ai.GraphAIClient for tests.
package aitest

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"strings"
	"sync"
	"unicode"

	"github.com/OFFIS-RIT/bookgraph/pkg/ai"
)

// Dimensions of the vectors produced by HashEmbedding.
const Dimensions = 64

// Client answers model calls from the configured funcs. Nil funcs fall back
// to an empty JSON object, an empty completion and HashEmbedding.
type Client struct {
	// Format returns the raw model reply for a structured request.
	Format func(ctx context.Context, prompt string) (string, error)
	// Complete returns the reply for a free-text request.
	Complete func(ctx context.Context, prompt string) (string, error)
	// Embed returns the vector for one input.
	Embed func(ctx context.Context, input string) ([]float32, error)

	mu          sync.Mutex
	prompts     []string
	completions []string
	embeds      int

	metrics ai.MetricsRecorder
}

var _ ai.GraphAIClient = (*Client)(nil)

func (c *Client) GenerateCompletion(ctx context.Context, prompt string, _ ...ai.GenerateOption) (string, error) {
	c.mu.Lock()
	c.completions = append(c.completions, prompt)
	c.mu.Unlock()
	c.metrics.Add(ai.ModelMetrics{InputTokens: len(prompt) / 4, TotalTokens: len(prompt) / 4})

	if c.Complete == nil {
		return "", nil
	}
	return c.Complete(ctx, prompt)
}

func (c *Client) GenerateCompletionWithFormat(
	ctx context.Context,
	_ string,
	_ string,
	prompt string,
	out any,
	_ ...ai.GenerateOption,
) error {
	c.mu.Lock()
	c.prompts = append(c.prompts, prompt)
	c.mu.Unlock()
	c.metrics.Add(ai.ModelMetrics{InputTokens: len(prompt) / 4, TotalTokens: len(prompt) / 4})

	raw := "{}"
	if c.Format != nil {
		var err error
		raw, err = c.Format(ctx, prompt)
		if err != nil {
			return err
		}
	}
	return ai.UnmarshalFlexible(raw, out)
}

func (c *Client) GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error) {
	out, err := c.GenerateEmbeddings(ctx, [][]byte{input})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (c *Client) GenerateEmbeddings(ctx context.Context, inputs [][]byte) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.embeds += len(inputs)
	c.mu.Unlock()

	out := make([][]float32, len(inputs))
	for i, in := range inputs {
		if c.Embed == nil {
			out[i] = HashEmbedding(string(in))
			continue
		}
		v, err := c.Embed(ctx, string(in))
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (c *Client) ResetMetrics()               { c.metrics.Reset() }
func (c *Client) GetMetrics() ai.ModelMetrics { return c.metrics.Snapshot() }

// FormatPrompts returns the prompts of all structured requests so far.
func (c *Client) FormatPrompts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.prompts...)
}

// CompletionPrompts returns the prompts of all free-text requests so far.
func (c *Client) CompletionPrompts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.completions...)
}

// EmbeddedInputs returns how many inputs were embedded so far.
func (c *Client) EmbeddedInputs() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.embeds
}

// ErrScripted is a canned model failure.
var ErrScripted = errors.New("aitest: scripted failure")

// HashEmbedding maps text to a normalized bag-of-words vector. Texts sharing
// words end up close in cosine distance.
func HashEmbedding(text string) []float32 {
	v := make([]float32, Dimensions)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		v[h.Sum32()%Dimensions]++
	}
	var norm float64
	for _, x := range v {
		norm += float64(x * x)
	}
	if norm == 0 {
		return v
	}
	n := float32(math.Sqrt(norm))
	for i := range v {
		v[i] /= n
	}
	return v
}
