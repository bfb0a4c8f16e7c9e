package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cerberus-code/cerberus/pkg/cerberus/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func writeSampleFile(t *testing.T, s *Store, path string) int64 {
	t.Helper()
	var fileID int64
	err := s.Tx(context.Background(), func(tx *sql.Tx) error {
		id, err := WriteFile(context.Background(), tx, &model.File{
			Path:      path,
			AbsPath:   "/repo/" + path,
			Size:      42,
			ModTime:   time.Now(),
			Language:  "go",
			IndexedAt: time.Now(),
		})
		fileID = id
		return err
	})
	require.NoError(t, err)
	return fileID
}

func TestStore_WriteFile_UpsertsOnConflict(t *testing.T) {
	s := newTestStore(t)
	id1 := writeSampleFile(t, s, "a.go")
	id2 := writeSampleFile(t, s, "a.go")
	assert.Equal(t, id1, id2)
}

func TestStore_WriteSymbolsBatch_AndQuery(t *testing.T) {
	s := newTestStore(t)
	fileID := writeSampleFile(t, s, "a.go")

	symbols := []model.Symbol{
		{Name: "Add", Kind: model.KindFunction, StartLine: 1, EndLine: 3, Signature: "func Add(a, b int) int"},
		{Name: "Sub", Kind: model.KindFunction, StartLine: 5, EndLine: 7, Signature: "func Sub(a, b int) int"},
	}
	err := s.Tx(context.Background(), func(tx *sql.Tx) error {
		return WriteSymbolsBatch(context.Background(), tx, fileID, symbols)
	})
	require.NoError(t, err)

	cursor := s.QuerySymbols(SymbolFilter{FileID: fileID})
	page, err := cursor.Next(context.Background())
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "Add", page[0].Name)

	next, err := cursor.Next(context.Background())
	require.NoError(t, err)
	assert.Empty(t, next)
}

func TestStore_FindSymbolByLine_ReturnsInnermost(t *testing.T) {
	s := newTestStore(t)
	fileID := writeSampleFile(t, s, "a.go")

	symbols := []model.Symbol{
		{Name: "Outer", Kind: model.KindClass, StartLine: 1, EndLine: 20},
		{Name: "Inner", Kind: model.KindMethod, StartLine: 5, EndLine: 8},
	}
	err := s.Tx(context.Background(), func(tx *sql.Tx) error {
		return WriteSymbolsBatch(context.Background(), tx, fileID, symbols)
	})
	require.NoError(t, err)

	sym, err := s.FindSymbolByLine(context.Background(), fileID, 6)
	require.NoError(t, err)
	require.NotNil(t, sym)
	assert.Equal(t, "Inner", sym.Name)
}

func TestStore_DeleteFile_CascadesAndReturnsVectorIDs(t *testing.T) {
	s := newTestStore(t)
	fileID := writeSampleFile(t, s, "a.go")

	var symbolID int64
	err := s.Tx(context.Background(), func(tx *sql.Tx) error {
		if err := WriteSymbolsBatch(context.Background(), tx, fileID, []model.Symbol{
			{Name: "Add", Kind: model.KindFunction, StartLine: 1, EndLine: 3},
		}); err != nil {
			return err
		}
		return tx.QueryRow(`SELECT id FROM symbols WHERE file_id = ?`, fileID).Scan(&symbolID)
	})
	require.NoError(t, err)

	err = s.Tx(context.Background(), func(tx *sql.Tx) error {
		return WriteEmbeddingMetadata(context.Background(), tx, model.EmbeddingMetadata{
			SymbolID: symbolID, VectorID: "vec-1", Model: "static-768",
		})
	})
	require.NoError(t, err)

	vectorIDs, err := s.DeleteFile(context.Background(), "a.go")
	require.NoError(t, err)
	assert.Equal(t, []string{"vec-1"}, vectorIDs)

	stats, err := s.GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Files)
	assert.Equal(t, 0, stats.Symbols)
	assert.Equal(t, 0, stats.EmbeddingsLinked)
}

func TestStore_FTSSearch_EscapesNonBooleanTokens(t *testing.T) {
	assert.Equal(t, `"foo"`, escapeFTSQuery("foo"))
	assert.Equal(t, `"foo" AND "bar"`, escapeFTSQuery("foo AND bar"))
	assert.Equal(t, `"foo*" OR "bar:baz"`, escapeFTSQuery(`foo* OR bar:baz`))
}

func TestStore_FTSSearch_FindsIndexedDoc(t *testing.T) {
	s := newTestStore(t)
	fileID := writeSampleFile(t, s, "a.go")

	var symbolID int64
	err := s.Tx(context.Background(), func(tx *sql.Tx) error {
		if err := WriteSymbolsBatch(context.Background(), tx, fileID, []model.Symbol{
			{Name: "ComputeChecksum", Kind: model.KindFunction, StartLine: 1, EndLine: 3},
		}); err != nil {
			return err
		}
		if err := tx.QueryRow(`SELECT id FROM symbols WHERE file_id = ?`, fileID).Scan(&symbolID); err != nil {
			return err
		}
		return IndexFTS(context.Background(), tx, symbolID, "ComputeChecksum func ComputeChecksum computes a checksum")
	})
	require.NoError(t, err)

	results, err := s.FTSSearch(context.Background(), "checksum", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, symbolID, results[0].SymbolID)
}

func TestStore_FTSSearch_EmptyQueryReturnsEmpty(t *testing.T) {
	s := newTestStore(t)
	results, err := s.FTSSearch(context.Background(), "", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestStore_Metadata_RoundTrips(t *testing.T) {
	s := newTestStore(t)
	err := s.SetMetadata(context.Background(), MetaKeyProjectRoot, "/repo")
	require.NoError(t, err)

	value, err := s.GetMetadata(context.Background(), MetaKeyProjectRoot)
	require.NoError(t, err)
	assert.Equal(t, "/repo", value)

	missing, err := s.GetMetadata(context.Background(), "nonexistent")
	require.NoError(t, err)
	assert.Equal(t, "", missing)
}

func TestStore_QueryCallsByCallee(t *testing.T) {
	s := newTestStore(t)
	fileID := writeSampleFile(t, s, "a.go")

	err := s.Tx(context.Background(), func(tx *sql.Tx) error {
		return WriteCallsBatch(context.Background(), tx, fileID, []model.CallReference{
			{CalleeName: "Add", Line: 10},
			{CalleeName: "Sub", Line: 11},
		})
	})
	require.NoError(t, err)

	calls, err := s.QueryCallsByCallee(context.Background(), "Add")
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.Equal(t, 10, calls[0].Line)
}
