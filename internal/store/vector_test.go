package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorStore_AddAndSearch_FindsNearestNeighbor(t *testing.T) {
	vs, err := NewVectorStore(DefaultVectorStoreConfig(3))
	require.NoError(t, err)

	err = vs.Add(context.Background(), []string{"a", "b", "c"}, [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0.9, 0.1, 0},
	})
	require.NoError(t, err)

	results, err := vs.Search(context.Background(), []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.True(t, results[0].ID == "a" || results[0].ID == "c")
}

func TestVectorStore_Add_RejectsDimensionMismatch(t *testing.T) {
	vs, err := NewVectorStore(DefaultVectorStoreConfig(3))
	require.NoError(t, err)

	err = vs.Add(context.Background(), []string{"a"}, [][]float32{{1, 0}})
	require.Error(t, err)
	var mismatch ErrDimensionMismatch
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 3, mismatch.Expected)
	assert.Equal(t, 2, mismatch.Got)
}

func TestVectorStore_Delete_RemovesFromResults(t *testing.T) {
	vs, err := NewVectorStore(DefaultVectorStoreConfig(3))
	require.NoError(t, err)

	err = vs.Add(context.Background(), []string{"a", "b"}, [][]float32{{1, 0, 0}, {0, 1, 0}})
	require.NoError(t, err)

	err = vs.Delete(context.Background(), []string{"a"})
	require.NoError(t, err)

	assert.False(t, vs.Contains("a"))
	assert.Equal(t, 1, vs.Count())

	results, err := vs.Search(context.Background(), []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	for _, r := range results {
		assert.NotEqual(t, "a", r.ID)
	}
}

func TestVectorStore_Delete_RebuildsWhenOrphanRatioExceeded(t *testing.T) {
	cfg := DefaultVectorStoreConfig(2)
	cfg.OrphanRebuildRatio = 0.4
	vs, err := NewVectorStore(cfg)
	require.NoError(t, err)

	err = vs.Add(context.Background(), []string{"a", "b", "c", "d", "e"}, [][]float32{
		{1, 0}, {0, 1}, {1, 1}, {2, 2}, {3, 3},
	})
	require.NoError(t, err)

	err = vs.Delete(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)

	stats := vs.Stats()
	assert.Equal(t, 2, stats.ValidIDs)
	assert.Equal(t, 2, stats.GraphNodes, "graph should have been rebuilt, dropping orphaned nodes")
	assert.Equal(t, 0, stats.Orphans)
}

func TestVectorStore_SaveAndLoad_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vectors.hnsw")

	vs, err := NewVectorStore(DefaultVectorStoreConfig(2))
	require.NoError(t, err)
	require.NoError(t, vs.Add(context.Background(), []string{"a"}, [][]float32{{1, 0}}))
	require.NoError(t, vs.Save(path))

	loaded, err := NewVectorStore(DefaultVectorStoreConfig(2))
	require.NoError(t, err)
	require.NoError(t, loaded.Load(path))

	assert.True(t, loaded.Contains("a"))
	assert.Equal(t, 1, loaded.Count())

	_, err = os.Stat(path + ".meta")
	require.NoError(t, err)
}

func TestReadVectorStoreDimensions_ReturnsZeroWhenMissing(t *testing.T) {
	dims, err := ReadVectorStoreDimensions(filepath.Join(t.TempDir(), "missing.hnsw"))
	require.NoError(t, err)
	assert.Equal(t, 0, dims)
}
