package query

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/OFFIS-RIT/bookgraph/pkg/ai/aitest"
	"github.com/OFFIS-RIT/bookgraph/pkg/index"
	"github.com/OFFIS-RIT/bookgraph/pkg/store/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnswerWithoutIndex(t *testing.T) {
	client := &aitest.Client{}
	a := NewAnswerer(client, memory.New())

	got, err := a.Answer(context.Background(), "unknown", "Who is Harry?")
	require.NoError(t, err)
	assert.True(t, got.NotIndexed)
	assert.Equal(t, "Error: Book has not been indexed yet.", got.Answer)
	assert.Empty(t, got.Sources)
	assert.Zero(t, client.EmbeddedInputs())
	assert.Empty(t, client.CompletionPrompts())
}

func TestAnswerIsGroundedInRetrievedPassages(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	var chunks []index.Chunk
	for i := range 8 {
		text := fmt.Sprintf("Passage %d about Quidditch and brooms.", i)
		if i >= 5 {
			text = fmt.Sprintf("Passage %d about potions in the dungeon.", i)
		}
		chunks = append(chunks, index.Chunk{ID: fmt.Sprint(i), Seq: i, Text: text, Embedding: aitest.HashEmbedding(text)})
	}
	require.NoError(t, store.Replace(ctx, "hp1", chunks))

	client := &aitest.Client{
		Complete: func(context.Context, string) (string, error) { return "Harry plays Seeker.", nil },
	}
	got, err := NewAnswerer(client, store).Answer(ctx, "hp1", "What about Quidditch and brooms?")
	require.NoError(t, err)

	assert.False(t, got.NotIndexed)
	assert.Equal(t, "Harry plays Seeker.", got.Answer)
	require.Len(t, got.Sources, DefaultTopK)
	for _, s := range got.Sources {
		assert.Contains(t, s, "Quidditch")
	}

	prompts := client.CompletionPrompts()
	require.Len(t, prompts, 1)
	wantContext := strings.Join(got.Sources, "\n\n")
	assert.Equal(t,
		"Answer the question based ONLY on the following context:\n"+wantContext+"\n\nQuestion: What about Quidditch and brooms?\n",
		prompts[0],
	)
}

func TestAnswerPropagatesModelErrors(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.Replace(ctx, "hp1", []index.Chunk{{Text: "x", Embedding: aitest.HashEmbedding("x")}}))

	client := &aitest.Client{
		Complete: func(context.Context, string) (string, error) { return "", aitest.ErrScripted },
	}
	_, err := NewAnswerer(client, store).Answer(ctx, "hp1", "q")
	require.ErrorIs(t, err, aitest.ErrScripted)
}

func TestAnswerWithSmallIndex(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.Replace(ctx, "hp1", []index.Chunk{
		{Text: "only passage", Embedding: aitest.HashEmbedding("only passage")},
	}))

	got, err := NewAnswerer(&aitest.Client{}, store).WithTopK(3).Answer(ctx, "hp1", "anything")
	require.NoError(t, err)
	assert.Equal(t, []string{"only passage"}, got.Sources)
}
