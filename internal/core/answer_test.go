package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat/internal/index"
)

type failingEmbedder struct{ err error }

func (f failingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, f.err
}

func (f failingEmbedder) ModelName() string { return "failing" }

func TestNewAnswerEngineRejectsEmptyIndex(t *testing.T) {
	_, err := NewAnswerEngine(nil, stubEmbedder{}, &stubGenerator{}, 4)
	assert.ErrorIs(t, err, index.ErrEmpty)

	_, err = NewAnswerEngine(&index.Index{}, stubEmbedder{}, &stubGenerator{}, 4)
	assert.ErrorIs(t, err, index.ErrEmpty)
}

func TestAnswerPropagatesEmbedderFailure(t *testing.T) {
	embedErr := errors.New("embedding backend down")
	svc := newTestService(t, &stubGenerator{answer: "unused"}, &mockConversations{})

	require.NoError(t, svc.builder.Build(context.Background(), svc.cfg.IndexPath, []string{"a passage"}))
	idx, err := svc.builder.Load(context.Background(), svc.cfg.IndexPath)
	require.NoError(t, err)

	engine, err := NewAnswerEngine(idx, failingEmbedder{err: embedErr}, svc.generator, 4)
	require.NoError(t, err)

	_, err = engine.Answer(context.Background(), "q?")
	assert.ErrorIs(t, err, embedErr)
}

func TestBuildPromptContainsPassagesAndQuestion(t *testing.T) {
	prompt := buildPrompt([]index.Result{
		{Content: "first passage"},
		{Content: "second passage"},
	}, "what now?")

	assert.Contains(t, prompt, answerInstruction)
	assert.Contains(t, prompt, "first passage")
	assert.Contains(t, prompt, "second passage")
	assert.Contains(t, prompt, "what now?")
	assert.Less(t, len(answerInstruction), len(prompt))
}
