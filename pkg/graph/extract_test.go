package graph

import (
	"context"
	"testing"

	"github.com/OFFIS-RIT/bookgraph/pkg/ai/aitest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractAppliesDefaults(t *testing.T) {
	client := &aitest.Client{
		Format: func(context.Context, string) (string, error) {
			return `{
				"entities": [
					{"name": " Harry ", "description": "The boy who lived"},
					{"name": "", "type": "Person"},
					{"name": "Hogwarts", "type": "Location"}
				],
				"relationships": [
					{"source": "Harry", "target": "Hogwarts", "type": "student"},
					{"source": "Harry", "target": "", "type": "friend"}
				]
			}`, nil
		},
	}

	got := NewExtractor(client).Extract(context.Background(), "Harry went to Hogwarts.")
	assert.Equal(t, []Entity{
		{Name: "Harry", Type: "Person", Description: "The boy who lived"},
		{Name: "Hogwarts", Type: "Location"},
	}, got.Entities)
	assert.Equal(t, []Relationship{{Source: "Harry", Target: "Hogwarts", Type: "student"}}, got.Relationships)

	prompts := client.FormatPrompts()
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], "Harry went to Hogwarts.")
}

func TestExtractFailsOpen(t *testing.T) {
	tests := []struct {
		name   string
		format func(context.Context, string) (string, error)
	}{
		{
			name:   "model error",
			format: func(context.Context, string) (string, error) { return "", aitest.ErrScripted },
		},
		{
			name:   "garbage output",
			format: func(context.Context, string) (string, error) { return "I cannot help with that", nil },
		},
		{
			name: "timeout",
			format: func(ctx context.Context, _ string) (string, error) {
				<-ctx.Done()
				return "", ctx.Err()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			var failures int
			ex := NewExtractor(&aitest.Client{Format: tt.format}).OnError(func(error) { failures++ })
			got := ex.Extract(ctx, "some chunk")
			assert.True(t, got.Empty())
			assert.Equal(t, 1, failures)
		})
	}
}

func TestExtractSkipsBlankChunks(t *testing.T) {
	client := &aitest.Client{}
	got := NewExtractor(client).Extract(context.Background(), "   \n")
	assert.True(t, got.Empty())
	assert.Empty(t, client.FormatPrompts())
}
