package index

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbedder returns fixed vectors keyed by text, with a fallback for
// unknown inputs.
type fakeEmbedder struct {
	name    string
	vectors map[string][]float32
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("no vector registered for %q", text)
}

func (f *fakeEmbedder) ModelName() string {
	if f.name != "" {
		return f.name
	}
	return "fake-embed"
}

func newFakeEmbedder(passages ...string) *fakeEmbedder {
	vectors := make(map[string][]float32)
	for i, p := range passages {
		v := make([]float32, len(passages))
		v[i] = 1
		vectors[p] = v
	}
	return &fakeEmbedder{vectors: vectors}
}

func TestBuildLoadRoundTrip(t *testing.T) {
	passages := []string{"alpha passage", "beta passage", "gamma passage"}
	embedder := newFakeEmbedder(passages...)
	builder := NewBuilder(embedder)
	location := filepath.Join(t.TempDir(), "idx")

	require.NoError(t, builder.Build(context.Background(), location, passages))

	idx, err := builder.Load(context.Background(), location)
	require.NoError(t, err)
	assert.Equal(t, len(passages), idx.Len())

	// Querying with a passage's own embedding must rank that passage first.
	for i, p := range passages {
		query, err := embedder.Embed(context.Background(), p)
		require.NoError(t, err)
		results, err := idx.Search(query, 1)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, p, results[0].Content, "passage %d should be its own best match", i)
	}
}

func TestBuildOverwritesPreviousIndex(t *testing.T) {
	location := filepath.Join(t.TempDir(), "idx")

	first := []string{"old content"}
	builder := NewBuilder(newFakeEmbedder(first...))
	require.NoError(t, builder.Build(context.Background(), location, first))

	second := []string{"new one", "new two"}
	builder = NewBuilder(newFakeEmbedder(second...))
	require.NoError(t, builder.Build(context.Background(), location, second))

	idx, err := builder.Load(context.Background(), location)
	require.NoError(t, err)
	assert.Equal(t, 2, idx.Len())
}

func TestLoadMissingIndex(t *testing.T) {
	builder := NewBuilder(newFakeEmbedder())
	_, err := builder.Load(context.Background(), filepath.Join(t.TempDir(), "never-built"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadCorruptIndex(t *testing.T) {
	location := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(location, dbFileName), []byte("not a sqlite file"), 0o644))

	builder := NewBuilder(newFakeEmbedder())
	_, err := builder.Load(context.Background(), location)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestLoadEmbeddingModelMismatch(t *testing.T) {
	passages := []string{"one"}
	location := filepath.Join(t.TempDir(), "idx")

	embedder := newFakeEmbedder(passages...)
	embedder.name = "model-a"
	require.NoError(t, NewBuilder(embedder).Build(context.Background(), location, passages))

	other := newFakeEmbedder(passages...)
	other.name = "model-b"
	_, err := NewBuilder(other).Load(context.Background(), location)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestSearchRankingAndTieBreak(t *testing.T) {
	idx := &Index{passages: []Passage{
		{Position: 0, Content: "closest", Embedding: []float32{1, 0}},
		{Position: 1, Content: "tied-low-position", Embedding: []float32{0, 1}},
		{Position: 2, Content: "tied-high-position", Embedding: []float32{0, 1}},
	}}

	results, err := idx.Search([]float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "closest", results[0].Content)
	// Equal scores break ties on passage position.
	assert.Equal(t, "tied-low-position", results[1].Content)
	assert.Equal(t, "tied-high-position", results[2].Content)

	// Repeated searches are deterministic.
	again, err := idx.Search([]float32{1, 0}, 3)
	require.NoError(t, err)
	assert.Equal(t, results, again)
}

func TestSearchBounds(t *testing.T) {
	idx := &Index{passages: []Passage{
		{Position: 0, Content: "only", Embedding: []float32{1}},
	}}

	results, err := idx.Search([]float32{1}, 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)

	results, err = idx.Search([]float32{1}, 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchEmptyIndex(t *testing.T) {
	idx := &Index{}
	_, err := idx.Search([]float32{1}, 4)
	assert.ErrorIs(t, err, ErrEmpty)
}
