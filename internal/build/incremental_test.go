package build

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_IndexFile_ThenRemoveFile(t *testing.T) {
	b, root := setupTestBuilder(t)
	writeTestFile(t, root, "sample.go", sampleGoSource)

	require.NoError(t, b.IndexFile(context.Background(), "sample.go"))

	got, err := b.cfg.Store.GetFile(context.Background(), "sample.go")
	require.NoError(t, err)
	require.NotNil(t, got)

	require.NoError(t, b.RemoveFile(context.Background(), "sample.go"))

	got, err = b.cfg.Store.GetFile(context.Background(), "sample.go")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestBuilder_RemoveFile_NeverIndexedIsNoop(t *testing.T) {
	b, _ := setupTestBuilder(t)
	assert.NoError(t, b.RemoveFile(context.Background(), "never-indexed.go"))
}

func TestBuilder_IndexFile_ReindexClearsStaleSymbols(t *testing.T) {
	b, root := setupTestBuilder(t)
	writeTestFile(t, root, "sample.go", sampleGoSource)
	require.NoError(t, b.IndexFile(context.Background(), "sample.go"))

	// Shrink the file so it declares only one symbol.
	writeTestFile(t, root, "sample.go", "package sample\n\nfunc Add(a, b int) int {\n\treturn a + b\n}\n")
	require.NoError(t, b.IndexFile(context.Background(), "sample.go"))

	got, err := b.cfg.Store.GetFile(context.Background(), "sample.go")
	require.NoError(t, err)
	require.NotNil(t, got)
}

func TestBuilder_Reconcile_DetectsAddedModifiedDeleted(t *testing.T) {
	b, root := setupTestBuilder(t)
	writeTestFile(t, root, "a.go", sampleGoSource)
	writeTestFile(t, root, "b.go", "package sample\n\nfunc B() int { return 2 }\n")

	_, err := b.Build(context.Background())
	require.NoError(t, err)

	// a.go is deleted, b.go is modified, c.go is newly added.
	require.NoError(t, removeTestFile(root, "a.go"))
	writeTestFile(t, root, "b.go", "package sample\n\nfunc B() int { return 22 }\n")
	writeTestFile(t, root, "c.go", "package sample\n\nfunc C() int { return 3 }\n")

	stats, err := b.Reconcile(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.FilesRemoved)
	assert.Equal(t, 2, stats.FilesIndexed) // b.go modified + c.go added

	aFile, err := b.cfg.Store.GetFile(context.Background(), "a.go")
	require.NoError(t, err)
	assert.Nil(t, aFile)

	cFile, err := b.cfg.Store.GetFile(context.Background(), "c.go")
	require.NoError(t, err)
	assert.NotNil(t, cFile)
}

func TestBuilder_Reconcile_NoopWhenNothingChanged(t *testing.T) {
	b, root := setupTestBuilder(t)
	writeTestFile(t, root, "a.go", sampleGoSource)

	_, err := b.Build(context.Background())
	require.NoError(t, err)

	stats, err := b.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.FilesIndexed)
	assert.Equal(t, 0, stats.FilesRemoved)
}
