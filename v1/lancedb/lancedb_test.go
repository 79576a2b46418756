package lancedb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aleph-Alpha/vectorinspector/v1/logger"
	"github.com/Aleph-Alpha/vectorinspector/v1/vectordb"
)

func TestLanceDBDefaults(t *testing.T) {
	conn := New(Config{}, logger.NewNop(), nil)
	info := conn.ConnectionInfo()
	assert.Equal(t, vectordb.ProviderLanceDB, info.Provider)
	assert.Equal(t, "persistent", info.Mode)
	assert.Equal(t, DefaultPath, info.Details["uri"])
	assert.False(t, info.Connected)
}

func TestLanceDBTables(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	conn := New(Config{Path: dir}, logger.NewNop(), nil)
	require.True(t, conn.Connect(ctx))

	assert.ErrorIs(t, conn.CreateCollection(ctx, "bad name!", 2, "cosine"), vectordb.ErrInvalidArgument)
	require.NoError(t, conn.CreateCollection(ctx, "docs_v1", 2, "cosine"))
	require.NoError(t, conn.AddItems(ctx, "docs_v1", vectordb.AddRequest{
		IDs:        []string{"a", "b"},
		Documents:  []string{"alpha", "beta"},
		Metadatas:  []map[string]any{{"n": 1}, {"n": 2}},
		Embeddings: [][]float32{{1, 0}, {0, 1}},
	}))
	require.NoError(t, conn.Disconnect(ctx))

	// Tables survive a reopen of the directory.
	conn = New(Config{Path: dir}, logger.NewNop(), nil)
	require.True(t, conn.Connect(ctx))
	defer conn.Disconnect(ctx)

	names, err := conn.ListCollections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"docs_v1"}, names)

	res, err := conn.Query(ctx, "docs_v1", vectordb.QueryRequest{Embedding: []float32{1, 0}, NResults: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, res.IDs)
	assert.InDelta(t, 0, res.Distances[0], 1e-6)
}
