// Package query answers questions about an indexed book from its most
// similar passages.
package query

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/OFFIS-RIT/bookgraph/pkg/ai"
	"github.com/OFFIS-RIT/bookgraph/pkg/index"
	"github.com/OFFIS-RIT/bookgraph/pkg/logger"
)

// DefaultTopK is how many passages are retrieved per question.
const DefaultTopK = 5

// NotIndexedAnswer is returned as the answer text for books without an index.
const NotIndexedAnswer = "Error: Book has not been indexed yet."

// Answer is the reply to a question. Sources are exactly the passages the
// model was given as context, best match first.
type Answer struct {
	Answer     string   `json:"answer"`
	Sources    []string `json:"sources"`
	NotIndexed bool     `json:"-"`
}

// Answerer retrieves context for a question and asks the model to answer
// from that context only.
type Answerer struct {
	client ai.GraphAIClient
	store  index.VectorStore
	topK   int
	opts   []ai.GenerateOption
}

// NewAnswerer returns an Answerer retrieving DefaultTopK passages.
func NewAnswerer(client ai.GraphAIClient, store index.VectorStore, opts ...ai.GenerateOption) *Answerer {
	return &Answerer{client: client, store: store, topK: DefaultTopK, opts: opts}
}

// WithTopK overrides the number of retrieved passages.
func (a *Answerer) WithTopK(k int) *Answerer {
	if k > 0 {
		a.topK = k
	}
	return a
}

// Answer answers question about bookID. A book without index is not an
// error; it yields an Answer with NotIndexed set and no sources.
func (a *Answerer) Answer(ctx context.Context, bookID string, question string) (Answer, error) {
	ok, err := a.store.Has(ctx, bookID)
	if err != nil {
		return Answer{}, fmt.Errorf("check index of %s: %w", bookID, err)
	}
	if !ok {
		return notIndexed(), nil
	}

	embedding, err := a.client.GenerateEmbedding(ctx, []byte(question))
	if err != nil {
		return Answer{}, fmt.Errorf("embed question: %w", err)
	}

	matches, err := a.store.Search(ctx, bookID, embedding, a.topK)
	if errors.Is(err, index.ErrNotIndexed) {
		return notIndexed(), nil
	}
	if err != nil {
		return Answer{}, fmt.Errorf("search index of %s: %w", bookID, err)
	}

	sources := make([]string, len(matches))
	for i, m := range matches {
		sources[i] = m.Text
	}

	reply, err := a.client.GenerateCompletion(ctx, ai.AnswerPrompt(strings.Join(sources, "\n\n"), question), a.opts...)
	if err != nil {
		return Answer{}, fmt.Errorf("generate answer: %w", err)
	}

	logger.Debug("[Query] Answered question", "book_id", bookID, "sources", len(sources))
	return Answer{Answer: reply, Sources: sources}, nil
}

func notIndexed() Answer {
	return Answer{Answer: NotIndexedAnswer, Sources: []string{}, NotIndexed: true}
}
