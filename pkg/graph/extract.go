package graph

import (
	"context"
	"strings"

	"github.com/OFFIS-RIT/bookgraph/pkg/ai"
	"github.com/OFFIS-RIT/bookgraph/pkg/logger"
)

// Extractor asks the model for the characters and relationships in a chunk.
type Extractor struct {
	client  ai.GraphAIClient
	opts    []ai.GenerateOption
	onError func(error)
}

// NewExtractor returns an Extractor using client. opts are passed to every
// model call after the extraction system prompt.
func NewExtractor(client ai.GraphAIClient, opts ...ai.GenerateOption) *Extractor {
	return &Extractor{
		client: client,
		opts:   append([]ai.GenerateOption{ai.WithSystemPrompts(ai.ExtractSystemPrompt)}, opts...),
	}
}

// OnError registers fn to be called for every swallowed extraction failure.
func (e *Extractor) OnError(fn func(error)) *Extractor {
	e.onError = fn
	return e
}

// Extract never fails. Model errors, timeouts and unusable output are logged
// and reported as an empty result so one bad chunk cannot sink a book.
func (e *Extractor) Extract(ctx context.Context, chunk string) ExtractionResult {
	if strings.TrimSpace(chunk) == "" {
		return ExtractionResult{}
	}

	var raw ExtractionResult
	err := e.client.GenerateCompletionWithFormat(
		ctx,
		"character_extraction",
		"Characters and relationships found in a text chunk of a book",
		ai.ExtractPrompt(chunk),
		&raw,
		e.opts...,
	)
	if err != nil {
		logger.Warn("[Extract] Extraction failed, using empty result", "err", err, "chunk_len", len(chunk))
		if e.onError != nil {
			e.onError(err)
		}
		return ExtractionResult{}
	}

	return normalize(raw)
}

// normalize applies the defaults the model may omit and drops records
// without usable names.
func normalize(raw ExtractionResult) ExtractionResult {
	out := ExtractionResult{
		Entities:      make([]Entity, 0, len(raw.Entities)),
		Relationships: make([]Relationship, 0, len(raw.Relationships)),
	}
	for _, en := range raw.Entities {
		en.Name = strings.TrimSpace(en.Name)
		if en.Name == "" {
			continue
		}
		en.Type = strings.TrimSpace(en.Type)
		if en.Type == "" {
			en.Type = DefaultEntityType
		}
		en.Description = strings.TrimSpace(en.Description)
		out.Entities = append(out.Entities, en)
	}
	for _, rel := range raw.Relationships {
		rel.Source = strings.TrimSpace(rel.Source)
		rel.Target = strings.TrimSpace(rel.Target)
		if rel.Source == "" || rel.Target == "" {
			continue
		}
		rel.Type = strings.TrimSpace(rel.Type)
		rel.Description = strings.TrimSpace(rel.Description)
		out.Relationships = append(out.Relationships, rel)
	}
	return out
}
