package vector

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/dgraph-io/badger/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osier-labs/weave/internal/domain"
	"github.com/osier-labs/weave/internal/ports"
)

func newTestStore(t *testing.T) (*Store, *badger.DB) {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := domain.VectorConfig{ChunkSize: 64, ChunkOverlap: 8, DefaultTopK: 3}
	return NewStore(db, cfg, nil, slog.New(slog.NewTextHandler(io.Discard, nil))), db
}

func TestCreateIndexAndSearch(t *testing.T) {
	store, _ := newTestStore(t)

	docs := []string{
		"badger is an embedded key value store written in go",
		"the workflow engine executes nodes in dependency order",
		"cosine similarity ranks vector matches by angle",
	}
	info, err := store.CreateIndex(context.Background(), "docs", docs, "", ports.VectorIndexOptions{})
	require.NoError(t, err)
	assert.Equal(t, "docs", info.Name)
	assert.Greater(t, info.ChunkCount, 0)
	assert.Greater(t, info.Dimensions, 0)

	matches, err := store.Search(context.Background(), "docs", "workflow engine dependency order", 2)
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	assert.LessOrEqual(t, len(matches), 2)
	assert.Contains(t, matches[0].Chunk, "workflow engine")
	assert.Greater(t, matches[0].Score, 0.0)
}

func TestSearchSurvivesCacheMiss(t *testing.T) {
	store, db := newTestStore(t)

	_, err := store.CreateIndex(context.Background(), "persisted", []string{"some searchable content"}, "", ports.VectorIndexOptions{})
	require.NoError(t, err)

	// A fresh store over the same db must load the index from disk.
	fresh := NewStore(db, domain.VectorConfig{DefaultTopK: 3}, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	matches, err := fresh.Search(context.Background(), "persisted", "searchable", 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
}

func TestSearchUnknownIndex(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Search(context.Background(), "nope", "query", 1)
	assert.True(t, domain.IsNotFound(err))
}

func TestCreateIndexEmptyContent(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.CreateIndex(context.Background(), "empty", nil, "", ports.VectorIndexOptions{})
	assert.Error(t, err)
}

func TestChunkingWithOverlap(t *testing.T) {
	chunks := chunk("abcdefghij", 4, 2)
	assert.Equal(t, []string{"abcd", "cdef", "efgh", "ghij"}, chunks)
}

func TestChunkingShortText(t *testing.T) {
	chunks := chunk("short", 100, 10)
	assert.Equal(t, []string{"short"}, chunks)
}

func TestChunkingDropsBlankWindows(t *testing.T) {
	chunks := chunk("ab        ", 4, 0)
	assert.Equal(t, []string{"ab"}, chunks)
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, cosine([]float64{1, 2, 3}, []float64{1, 2, 3}), 1e-9)
	assert.InDelta(t, 0.0, cosine([]float64{1, 0}, []float64{0, 1}), 1e-9)
	assert.Equal(t, 0.0, cosine([]float64{1}, []float64{1, 2}))
	assert.Equal(t, 0.0, cosine([]float64{0, 0}, []float64{1, 1}))
}

func TestHashEmbedderDeterministic(t *testing.T) {
	embed := HashEmbedder(32)

	a, err := embed(context.Background(), "", []string{"hello world"})
	require.NoError(t, err)
	b, err := embed(context.Background(), "", []string{"hello world"})
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a[0], 32)
}
