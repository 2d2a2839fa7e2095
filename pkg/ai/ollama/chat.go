package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"

	"github.com/OFFIS-RIT/bookgraph/pkg/ai"
	"github.com/OFFIS-RIT/bookgraph/pkg/chunk"

	"github.com/ollama/ollama/api"
)

// Ollama defaults to a small context window, so long prompts get an explicit
// num_ctx with some headroom for the reply.
const (
	defaultContext = 4096
	replyHeadroom  = 1024
)

func (c *GraphOllamaClient) chat(ctx context.Context, req *api.ChatRequest, prompt string) (string, error) {
	if tokens := chunk.EstimateTokens(prompt) + replyHeadroom; tokens > defaultContext {
		req.Options["num_ctx"] = tokens
	}

	rCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.reqLock.Acquire(rCtx, 1); err != nil {
		return "", err
	}
	defer c.reqLock.Release(1)

	var final api.ChatResponse
	if err := c.Client.Chat(rCtx, req, func(cr api.ChatResponse) error {
		final.Message.Content += cr.Message.Content
		if cr.Done {
			final.Done = true
			final.Metrics = cr.Metrics
		}
		return nil
	}); err != nil {
		return "", err
	}

	c.metrics.Add(ai.ModelMetrics{
		InputTokens:  final.Metrics.PromptEvalCount,
		OutputTokens: final.Metrics.EvalCount,
		TotalTokens:  final.Metrics.PromptEvalCount + final.Metrics.EvalCount,
		DurationMs:   final.Metrics.TotalDuration.Milliseconds(),
	})

	return final.Message.Content, nil
}

func messages(options ai.GenerateOptions, prompt string) []api.Message {
	msgs := make([]api.Message, 0, len(options.SystemPrompts)+1)
	for _, sp := range options.SystemPrompts {
		msgs = append(msgs, api.Message{Role: "system", Content: sp})
	}
	return append(msgs, api.Message{Role: "user", Content: prompt})
}

// GenerateCompletion sends a single-turn prompt and returns assistant text.
func (c *GraphOllamaClient) GenerateCompletion(
	ctx context.Context,
	prompt string,
	opts ...ai.GenerateOption,
) (string, error) {
	options := ai.ApplyOptions(ai.GenerateOptions{
		Model:       c.chatModel,
		Temperature: 0.7,
	}, opts...)

	stream := false
	req := &api.ChatRequest{
		Model:    options.Model,
		Messages: messages(options, prompt),
		Stream:   &stream,
		Options:  map[string]any{"temperature": options.Temperature},
	}
	return c.chat(ctx, req, prompt)
}

// GenerateCompletionWithFormat enforces a JSON schema and unmarshals into out.
func (c *GraphOllamaClient) GenerateCompletionWithFormat(
	ctx context.Context,
	_ string,
	_ string,
	prompt string,
	out any,
	opts ...ai.GenerateOption,
) error {
	rv := reflect.ValueOf(out)
	if out == nil || rv.Kind() != reflect.Pointer || rv.IsNil() {
		return errors.New("out must be a non-nil pointer")
	}

	formatBytes, err := json.Marshal(ai.GenerateSchema(out))
	if err != nil {
		return err
	}

	options := ai.ApplyOptions(ai.GenerateOptions{
		Model:       c.chatModel,
		Temperature: 0,
	}, opts...)

	stream := false
	req := &api.ChatRequest{
		Model:    options.Model,
		Messages: messages(options, prompt),
		Stream:   &stream,
		Format:   json.RawMessage(formatBytes),
		Options:  map[string]any{"temperature": options.Temperature},
	}

	content, err := c.chat(ctx, req, prompt)
	if err != nil {
		return err
	}
	return ai.UnmarshalFlexible(content, out)
}
