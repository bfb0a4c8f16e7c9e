package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // pure-Go SQLite driver, no CGO

	"github.com/cerberus-code/cerberus/internal/cerrors"
	"github.com/cerberus-code/cerberus/pkg/cerberus/model"
)

// Store is the Index Store (spec §4.D): a relational schema over SQLite
// with a single-writer, multi-reader concurrency model.
type Store struct {
	mu     sync.Mutex // serializes writers; readers go through db's own pool
	db     *sql.DB
	path   string
	closed bool
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS metadata (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS files (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	path         TEXT NOT NULL UNIQUE,
	abs_path     TEXT NOT NULL,
	size         INTEGER NOT NULL,
	mod_time     INTEGER NOT NULL,
	content_hash TEXT,
	language     TEXT,
	indexed_at   INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS symbols (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	file_id    INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
	name       TEXT NOT NULL,
	kind       TEXT NOT NULL,
	start_line INTEGER NOT NULL,
	end_line   INTEGER NOT NULL,
	signature  TEXT,
	doc_first  TEXT,
	metadata   TEXT,
	UNIQUE(file_id, name, start_line, kind)
);
CREATE INDEX IF NOT EXISTS idx_symbols_file ON symbols(file_id);
CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(name);

CREATE TABLE IF NOT EXISTS imports (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	file_id INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
	module  TEXT NOT NULL,
	line    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_imports_file ON imports(file_id);

CREATE TABLE IF NOT EXISTS import_links (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	file_id            INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
	module             TEXT NOT NULL,
	imported_symbols   TEXT,
	line               INTEGER NOT NULL,
	resolved           INTEGER NOT NULL DEFAULT 0,
	definition_file_id INTEGER,
	definition_symbol  TEXT
);
CREATE INDEX IF NOT EXISTS idx_import_links_file ON import_links(file_id);

CREATE TABLE IF NOT EXISTS calls (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	caller_file_id INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
	callee_name    TEXT NOT NULL,
	line           INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_calls_file ON calls(caller_file_id);
CREATE INDEX IF NOT EXISTS idx_calls_callee ON calls(callee_name);

CREATE TABLE IF NOT EXISTS method_calls (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	caller_file_id INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
	line           INTEGER NOT NULL,
	receiver       TEXT NOT NULL,
	method         TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_method_calls_file ON method_calls(caller_file_id);
CREATE INDEX IF NOT EXISTS idx_method_calls_method ON method_calls(method);

CREATE TABLE IF NOT EXISTS type_infos (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	file_id    INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
	name       TEXT NOT NULL,
	line       INTEGER NOT NULL,
	type_annot TEXT,
	inferred   TEXT
);
CREATE INDEX IF NOT EXISTS idx_type_infos_file ON type_infos(file_id);

CREATE TABLE IF NOT EXISTS symbol_references (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	source_file_id    INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
	source_line       INTEGER NOT NULL,
	source_symbol     TEXT NOT NULL,
	target_file_id    INTEGER,
	target_symbol     TEXT NOT NULL,
	target_kind       TEXT,
	kind              TEXT NOT NULL,
	confidence        REAL NOT NULL,
	resolution_method TEXT
);
CREATE INDEX IF NOT EXISTS idx_symrefs_source ON symbol_references(source_file_id);
CREATE INDEX IF NOT EXISTS idx_symrefs_target ON symbol_references(target_symbol);

CREATE TABLE IF NOT EXISTS embeddings_metadata (
	symbol_id INTEGER PRIMARY KEY REFERENCES symbols(id) ON DELETE CASCADE,
	vector_id TEXT NOT NULL,
	model     TEXT NOT NULL
);

CREATE VIRTUAL TABLE IF NOT EXISTS fts_symbols USING fts5(
	doc_id UNINDEXED,
	content,
	tokenize='unicode61'
);
`

// Open creates or opens a Store at path. An empty path opens an
// in-memory database, used by tests.
func Open(path string) (*Store, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, cerrors.StoreWriteError("failed to create index directory", err)
		}
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, cerrors.StoreWriteError("failed to open index database", err)
	}

	// Single writer per spec §4.D ("a single writer at a time").
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -65536",
		"PRAGMA temp_store = MEMORY",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, cerrors.StoreWriteError("failed to set pragma", err)
		}
	}

	s := &Store{db: db, path: path}
	if _, err := db.Exec(schemaDDL); err != nil {
		_ = db.Close()
		return nil, cerrors.IndexCorruption("failed to initialize schema", err)
	}
	return s, nil
}

// Close closes the underlying database, checkpointing WAL first.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return s.db.Close()
}

// Tx is a scoped write transaction: commits on success, rolls back on
// any error returned by fn or any panic.
func (s *Store) Tx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return cerrors.StoreWriteError("failed to begin transaction", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		if ctx.Err() != nil {
			return cerrors.Cancelled(ctx.Err())
		}
		return err
	}
	if err = tx.Commit(); err != nil {
		return cerrors.StoreWriteError("failed to commit transaction", err)
	}
	return nil
}

// WriteFile inserts or replaces a file row, returning its id.
func WriteFile(ctx context.Context, tx *sql.Tx, f *model.File) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO files(path, abs_path, size, mod_time, content_hash, language, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			abs_path=excluded.abs_path, size=excluded.size, mod_time=excluded.mod_time,
			content_hash=excluded.content_hash, language=excluded.language, indexed_at=excluded.indexed_at
	`, f.Path, f.AbsPath, f.Size, timeToUnix(f.ModTime), f.ContentHash, f.Language, timeToUnix(f.IndexedAt))
	if err != nil {
		return 0, cerrors.StoreWriteError("failed to write file row", err)
	}
	if id, err := res.LastInsertId(); err == nil && id != 0 {
		return id, nil
	}
	var id int64
	if err := tx.QueryRowContext(ctx, `SELECT id FROM files WHERE path = ?`, f.Path).Scan(&id); err != nil {
		return 0, cerrors.StoreWriteError("failed to resolve file id", err)
	}
	return id, nil
}

const batchChunkSize = 1000

// WriteSymbolsBatch writes symbols in chunks of batchChunkSize, per spec
// §4.D. Duplicate (file,name,start_line,kind) rows dedupe on write.
func WriteSymbolsBatch(ctx context.Context, tx *sql.Tx, fileID int64, symbols []model.Symbol) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO symbols(file_id, name, kind, start_line, end_line, signature, doc_first, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(file_id, name, start_line, kind) DO UPDATE SET
			end_line=excluded.end_line, signature=excluded.signature,
			doc_first=excluded.doc_first, metadata=excluded.metadata
	`)
	if err != nil {
		return cerrors.StoreWriteError("failed to prepare symbol insert", err)
	}
	defer stmt.Close()

	for start := 0; start < len(symbols); start += batchChunkSize {
		end := min(start+batchChunkSize, len(symbols))
		for _, sym := range symbols[start:end] {
			meta, _ := json.Marshal(sym.Metadata)
			if _, err := stmt.ExecContext(ctx, fileID, sym.Name, string(sym.Kind), sym.StartLine, sym.EndLine, sym.Signature, sym.DocFirst, string(meta)); err != nil {
				return cerrors.StoreWriteError("failed to write symbol batch", err)
			}
		}
	}
	return nil
}

// WriteImportsBatch writes coarse import facts.
func WriteImportsBatch(ctx context.Context, tx *sql.Tx, fileID int64, imports []model.ImportReference) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO imports(file_id, module, line) VALUES (?, ?, ?)`)
	if err != nil {
		return cerrors.StoreWriteError("failed to prepare import insert", err)
	}
	defer stmt.Close()
	for _, imp := range imports {
		if _, err := stmt.ExecContext(ctx, fileID, imp.Module, imp.Line); err != nil {
			return cerrors.StoreWriteError("failed to write import batch", err)
		}
	}
	return nil
}

// WriteImportLinksBatch writes fine-grained named-import facts.
func WriteImportLinksBatch(ctx context.Context, tx *sql.Tx, fileID int64, links []model.ImportLink) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO import_links(file_id, module, imported_symbols, line, resolved, definition_file_id, definition_symbol)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return cerrors.StoreWriteError("failed to prepare import_link insert", err)
	}
	defer stmt.Close()
	for _, l := range links {
		names, _ := json.Marshal(l.ImportedSymbols)
		var defFileID any
		if l.Resolved && l.DefinitionFileID != 0 {
			defFileID = l.DefinitionFileID
		}
		if _, err := stmt.ExecContext(ctx, fileID, l.Module, string(names), l.Line, l.Resolved, defFileID, l.DefinitionSymbol); err != nil {
			return cerrors.StoreWriteError("failed to write import_link batch", err)
		}
	}
	return nil
}

// WriteCallsBatch writes name-based call references.
func WriteCallsBatch(ctx context.Context, tx *sql.Tx, fileID int64, calls []model.CallReference) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO calls(caller_file_id, callee_name, line) VALUES (?, ?, ?)`)
	if err != nil {
		return cerrors.StoreWriteError("failed to prepare call insert", err)
	}
	defer stmt.Close()
	for _, c := range calls {
		if _, err := stmt.ExecContext(ctx, fileID, c.CalleeName, c.Line); err != nil {
			return cerrors.StoreWriteError("failed to write call batch", err)
		}
	}
	return nil
}

// WriteMethodCallsBatch writes receiver.method(...) call sites.
func WriteMethodCallsBatch(ctx context.Context, tx *sql.Tx, fileID int64, calls []model.MethodCall) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO method_calls(caller_file_id, line, receiver, method) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return cerrors.StoreWriteError("failed to prepare method_call insert", err)
	}
	defer stmt.Close()
	for _, c := range calls {
		if _, err := stmt.ExecContext(ctx, fileID, c.Line, c.Receiver, c.Method); err != nil {
			return cerrors.StoreWriteError("failed to write method_call batch", err)
		}
	}
	return nil
}

// WriteTypeInfosBatch writes explicit/inferred type facts.
func WriteTypeInfosBatch(ctx context.Context, tx *sql.Tx, fileID int64, infos []model.TypeInfo) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO type_infos(file_id, name, line, type_annot, inferred) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return cerrors.StoreWriteError("failed to prepare type_info insert", err)
	}
	defer stmt.Close()
	for _, ti := range infos {
		if _, err := stmt.ExecContext(ctx, fileID, ti.Name, ti.Line, ti.TypeAnnot, ti.Inferred); err != nil {
			return cerrors.StoreWriteError("failed to write type_info batch", err)
		}
	}
	return nil
}

// WriteSymbolReferencesBatch writes resolved edges from the Resolution Engine.
func WriteSymbolReferencesBatch(ctx context.Context, tx *sql.Tx, refs []model.SymbolReference) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO symbol_references(source_file_id, source_line, source_symbol, target_file_id, target_symbol, target_kind, kind, confidence, resolution_method)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return cerrors.StoreWriteError("failed to prepare symbol_reference insert", err)
	}
	defer stmt.Close()
	for _, r := range refs {
		if _, err := stmt.ExecContext(ctx, r.SourceFileID, r.SourceLine, r.SourceSymbol, r.TargetFileID, r.TargetSymbol, string(r.TargetKind), string(r.Kind), r.Confidence, string(r.ResolutionMethod)); err != nil {
			return cerrors.StoreWriteError("failed to write symbol_reference batch", err)
		}
	}
	return nil
}

// WriteEmbeddingMetadata links a symbol row to one vector-store entry.
func WriteEmbeddingMetadata(ctx context.Context, tx *sql.Tx, meta model.EmbeddingMetadata) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO embeddings_metadata(symbol_id, vector_id, model) VALUES (?, ?, ?)
		ON CONFLICT(symbol_id) DO UPDATE SET vector_id=excluded.vector_id, model=excluded.model
	`, meta.SymbolID, meta.VectorID, meta.Model)
	if err != nil {
		return cerrors.StoreWriteError("failed to write embedding metadata", err)
	}
	return nil
}

// DeleteFile removes a file and (via ON DELETE CASCADE) every row that
// references it, returning the vector ids that must be evicted from the
// Vector Store (spec §3 invariant 1).
func (s *Store) DeleteFile(ctx context.Context, path string) ([]string, error) {
	var vectorIDs []string
	err := s.Tx(ctx, func(tx *sql.Tx) error {
		var fileID int64
		err := tx.QueryRowContext(ctx, `SELECT id FROM files WHERE path = ?`, path).Scan(&fileID)
		if err == sql.ErrNoRows {
			return nil
		}
		if err != nil {
			return cerrors.StoreWriteError("failed to look up file for deletion", err)
		}

		rows, err := tx.QueryContext(ctx, `
			SELECT em.vector_id FROM embeddings_metadata em
			JOIN symbols s ON s.id = em.symbol_id
			WHERE s.file_id = ?`, fileID)
		if err != nil {
			return cerrors.StoreWriteError("failed to collect vector ids", err)
		}
		for rows.Next() {
			var vid string
			if err := rows.Scan(&vid); err != nil {
				rows.Close()
				return cerrors.StoreWriteError("failed to scan vector id", err)
			}
			vectorIDs = append(vectorIDs, vid)
		}
		rows.Close()

		docIDs, err := symbolDocIDs(ctx, tx, fileID)
		if err != nil {
			return err
		}
		if err := deleteFTSDocs(ctx, tx, docIDs); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM files WHERE id = ?`, fileID); err != nil {
			return cerrors.StoreWriteError("failed to delete file row", err)
		}
		return nil
	})
	return vectorIDs, err
}

func symbolDocIDs(ctx context.Context, tx *sql.Tx, fileID int64) ([]string, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id FROM symbols WHERE file_id = ?`, fileID)
	if err != nil {
		return nil, cerrors.StoreWriteError("failed to list symbols for FTS cleanup", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, cerrors.StoreWriteError("failed to scan symbol id", err)
		}
		ids = append(ids, fmt.Sprintf("symbol:%d", id))
	}
	return ids, nil
}

func deleteFTSDocs(ctx context.Context, tx *sql.Tx, docIDs []string) error {
	if len(docIDs) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `DELETE FROM fts_symbols WHERE doc_id = ?`)
	if err != nil {
		return cerrors.StoreWriteError("failed to prepare FTS delete", err)
	}
	defer stmt.Close()
	for _, id := range docIDs {
		if _, err := stmt.ExecContext(ctx, id); err != nil {
			return cerrors.StoreWriteError("failed to delete FTS doc", err)
		}
	}
	return nil
}

// IndexFTS (re)indexes a symbol's searchable document: name + signature +
// a snippet of its span, per spec §4.G's "per-symbol document."
func IndexFTS(ctx context.Context, tx *sql.Tx, symbolID int64, content string) error {
	docID := fmt.Sprintf("symbol:%d", symbolID)
	if _, err := tx.ExecContext(ctx, `DELETE FROM fts_symbols WHERE doc_id = ?`, docID); err != nil {
		return cerrors.StoreWriteError("failed to clear stale FTS doc", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO fts_symbols(doc_id, content) VALUES (?, ?)`, docID, content); err != nil {
		return cerrors.StoreWriteError("failed to index FTS doc", err)
	}
	return nil
}

// SymbolCursor restartably pages through query_symbols results in
// constant memory (spec §4.D: "lazy sequence ... restartable").
type SymbolCursor struct {
	store    *Store
	filter   SymbolFilter
	lastID   int64
	pageSize int
}

// QuerySymbols returns a restartable cursor over symbols matching filter.
func (s *Store) QuerySymbols(filter SymbolFilter) *SymbolCursor {
	return &SymbolCursor{store: s, filter: filter, pageSize: 500}
}

// Next returns up to the cursor's page size of symbols (with their ids),
// or an empty slice when exhausted.
func (c *SymbolCursor) Next(ctx context.Context) ([]StoredSymbol, error) {
	query := `SELECT id, file_id, name, kind, start_line, end_line, signature, doc_first, metadata FROM symbols WHERE id > ?`
	args := []any{c.lastID}

	if c.filter.FileID != 0 {
		query += " AND file_id = ?"
		args = append(args, c.filter.FileID)
	}
	if c.filter.Kind != "" {
		query += " AND kind = ?"
		args = append(args, c.filter.Kind)
	}
	if c.filter.Name != "" {
		query += " AND name = ?"
		args = append(args, c.filter.Name)
	}
	query += " ORDER BY id LIMIT ?"
	args = append(args, c.pageSize)

	rows, err := c.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, cerrors.StoreWriteError("failed to query symbols", err)
	}
	defer rows.Close()

	var out []StoredSymbol
	for rows.Next() {
		var row StoredSymbol
		var metaJSON string
		if err := rows.Scan(&row.ID, &row.FileID, &row.Name, &row.Kind, &row.StartLine, &row.EndLine, &row.Signature, &row.DocFirst, &metaJSON); err != nil {
			return nil, cerrors.StoreWriteError("failed to scan symbol row", err)
		}
		_ = json.Unmarshal([]byte(metaJSON), &row.Metadata)
		out = append(out, row)
		c.lastID = row.ID
	}
	return out, rows.Err()
}

// StoredSymbol is a symbols row with its store-assigned identity.
type StoredSymbol struct {
	ID        int64
	FileID    int64
	Name      string
	Kind      string
	StartLine int
	EndLine   int
	Signature string
	DocFirst  string
	Metadata  map[string]string
}

// VectorIDForSymbol returns the canonical vector-store id for a symbol,
// shared with the FTS doc_id convention ("symbol:<id>") so both indices
// key off the same identity.
func VectorIDForSymbol(symbolID int64) string {
	return fmt.Sprintf("symbol:%d", symbolID)
}

// SymbolIDFromVectorID parses a vector-store id produced by
// VectorIDForSymbol, returning ok=false if it isn't one of ours.
func SymbolIDFromVectorID(vectorID string) (int64, bool) {
	var id int64
	if _, err := fmt.Sscanf(vectorID, "symbol:%d", &id); err != nil {
		return 0, false
	}
	return id, true
}

// GetSymbolByID fetches a single symbol row together with its file's
// path and language, or (nil, ...) if it doesn't exist.
func (s *Store) GetSymbolByID(ctx context.Context, symbolID int64) (*StoredSymbol, string, string, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT s.id, s.file_id, s.name, s.kind, s.start_line, s.end_line, s.signature, s.doc_first, s.metadata,
		       f.path, f.language
		FROM symbols s JOIN files f ON f.id = s.file_id
		WHERE s.id = ?
	`, symbolID)

	var sym StoredSymbol
	var metaJSON, path, language string
	err := row.Scan(&sym.ID, &sym.FileID, &sym.Name, &sym.Kind, &sym.StartLine, &sym.EndLine, &sym.Signature, &sym.DocFirst, &metaJSON, &path, &language)
	if err == sql.ErrNoRows {
		return nil, "", "", nil
	}
	if err != nil {
		return nil, "", "", cerrors.StoreWriteError("failed to get symbol by id", err)
	}
	_ = json.Unmarshal([]byte(metaJSON), &sym.Metadata)
	return &sym, path, language, nil
}

// FindSymbolByLine returns the innermost symbol whose span contains line.
func (s *Store) FindSymbolByLine(ctx context.Context, fileID int64, line int) (*StoredSymbol, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, file_id, name, kind, start_line, end_line, signature, doc_first, metadata
		FROM symbols
		WHERE file_id = ? AND start_line <= ? AND end_line >= ?
		ORDER BY (end_line - start_line) ASC
		LIMIT 1
	`, fileID, line, line)

	var sym StoredSymbol
	var metaJSON string
	err := row.Scan(&sym.ID, &sym.FileID, &sym.Name, &sym.Kind, &sym.StartLine, &sym.EndLine, &sym.Signature, &sym.DocFirst, &metaJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, cerrors.StoreWriteError("failed to find symbol by line", err)
	}
	_ = json.Unmarshal([]byte(metaJSON), &sym.Metadata)
	return &sym, nil
}

// FindOwningType returns the smallest class/struct/interface symbol in
// fileID whose span strictly encloses [startLine,endLine], or nil if the
// span isn't nested inside one — the resolver uses this to decide real
// method ownership instead of matching on signature text.
func (s *Store) FindOwningType(ctx context.Context, fileID int64, excludeID int64, startLine, endLine int) (*StoredSymbol, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, file_id, name, kind, start_line, end_line, signature, doc_first, metadata
		FROM symbols
		WHERE file_id = ? AND kind IN ('class', 'struct', 'interface')
		  AND id != ? AND start_line <= ? AND end_line >= ?
		ORDER BY (end_line - start_line) ASC
		LIMIT 1
	`, fileID, excludeID, startLine, endLine)

	var sym StoredSymbol
	var metaJSON string
	err := row.Scan(&sym.ID, &sym.FileID, &sym.Name, &sym.Kind, &sym.StartLine, &sym.EndLine, &sym.Signature, &sym.DocFirst, &metaJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, cerrors.StoreWriteError("failed to find owning type", err)
	}
	_ = json.Unmarshal([]byte(metaJSON), &sym.Metadata)
	return &sym, nil
}

// GetFile looks up a tracked file by its repo-relative path, returning
// nil (no error) when it isn't tracked yet — the incremental builder uses
// this to decide whether a scanned path is new, modified, or unchanged.
func (s *Store) GetFile(ctx context.Context, path string) (*model.File, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, path, abs_path, size, mod_time, content_hash, language, indexed_at
		FROM files WHERE path = ?
	`, path)

	var f model.File
	var modTime, indexedAt int64
	err := row.Scan(&f.ID, &f.Path, &f.AbsPath, &f.Size, &modTime, &f.ContentHash, &f.Language, &indexedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, cerrors.StoreWriteError("failed to look up file", err)
	}
	f.ModTime = unixToTime(modTime)
	f.IndexedAt = unixToTime(indexedAt)
	return &f, nil
}

// ListFiles returns every tracked file, for incremental reconciliation
// passes that need to detect files deleted since the last build.
func (s *Store) ListFiles(ctx context.Context) ([]model.File, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, path, abs_path, size, mod_time, content_hash, language, indexed_at FROM files
	`)
	if err != nil {
		return nil, cerrors.StoreWriteError("failed to list files", err)
	}
	defer rows.Close()

	var files []model.File
	for rows.Next() {
		var f model.File
		var modTime, indexedAt int64
		if err := rows.Scan(&f.ID, &f.Path, &f.AbsPath, &f.Size, &modTime, &f.ContentHash, &f.Language, &indexedAt); err != nil {
			return nil, cerrors.StoreWriteError("failed to scan file row", err)
		}
		f.ModTime = unixToTime(modTime)
		f.IndexedAt = unixToTime(indexedAt)
		files = append(files, f)
	}
	return files, rows.Err()
}

// FTSResult is a single hit from FTSSearch.
type FTSResult struct {
	SymbolID int64
	Score    float64
}

var ftsBooleanOps = map[string]bool{"AND": true, "OR": true, "NOT": true}

// escapeFTSQuery neutralizes wildcard/quote/operator syntax (spec §4.D
// "safely escaped ... recognized boolean operators (AND/OR/NOT) pass
// through verbatim"). Every other token is double-quoted, which makes
// FTS5 treat its contents as a literal string regardless of `"*^:()`.
func escapeFTSQuery(query string) string {
	fields := strings.Fields(query)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if ftsBooleanOps[f] {
			out = append(out, f)
			continue
		}
		escaped := strings.ReplaceAll(f, `"`, `""`)
		out = append(out, `"`+escaped+`"`)
	}
	return strings.Join(out, " ")
}

// FTSSearch performs the lexical half of the Hybrid Retriever's search
// (spec §4.G; query escaping is P4's testable property).
func (s *Store) FTSSearch(ctx context.Context, query string, topK int) ([]FTSResult, error) {
	if strings.TrimSpace(query) == "" {
		return []FTSResult{}, nil
	}

	escaped := escapeFTSQuery(query)
	rows, err := s.db.QueryContext(ctx, `
		SELECT doc_id, bm25(fts_symbols) as score
		FROM fts_symbols
		WHERE content MATCH ?
		ORDER BY score
		LIMIT ?
	`, escaped, topK)
	if err != nil {
		if strings.Contains(err.Error(), "fts5") || strings.Contains(err.Error(), "syntax error") {
			return []FTSResult{}, nil
		}
		return nil, cerrors.StoreWriteError("fts search failed", err)
	}
	defer rows.Close()

	var results []FTSResult
	for rows.Next() {
		var docID string
		var score float64
		if err := rows.Scan(&docID, &score); err != nil {
			return nil, cerrors.StoreWriteError("failed to scan FTS result", err)
		}
		var symbolID int64
		if _, err := fmt.Sscanf(docID, "symbol:%d", &symbolID); err != nil {
			continue
		}
		results = append(results, FTSResult{SymbolID: symbolID, Score: -score})
	}
	return results, rows.Err()
}

// QueryCallsByFile returns every bare-name call site recorded for fileID.
func (s *Store) QueryCallsByFile(ctx context.Context, fileID int64) ([]model.CallReference, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT callee_name, line FROM calls WHERE caller_file_id = ?`, fileID)
	if err != nil {
		return nil, cerrors.StoreWriteError("failed to query calls by file", err)
	}
	defer rows.Close()
	var out []model.CallReference
	for rows.Next() {
		var c model.CallReference
		if err := rows.Scan(&c.CalleeName, &c.Line); err != nil {
			return nil, cerrors.StoreWriteError("failed to scan call row", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// QueryMethodCallsByFile returns every receiver.method() call site
// recorded for fileID.
func (s *Store) QueryMethodCallsByFile(ctx context.Context, fileID int64) ([]model.MethodCall, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT line, receiver, method FROM method_calls WHERE caller_file_id = ?`, fileID)
	if err != nil {
		return nil, cerrors.StoreWriteError("failed to query method calls by file", err)
	}
	defer rows.Close()
	var out []model.MethodCall
	for rows.Next() {
		var m model.MethodCall
		if err := rows.Scan(&m.Line, &m.Receiver, &m.Method); err != nil {
			return nil, cerrors.StoreWriteError("failed to scan method call row", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// QueryTypeInfosByFile returns every type annotation/inference recorded
// for fileID, used to resolve a method-call receiver's declared type.
func (s *Store) QueryTypeInfosByFile(ctx context.Context, fileID int64) ([]model.TypeInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, line, type_annot, inferred FROM type_infos WHERE file_id = ?`, fileID)
	if err != nil {
		return nil, cerrors.StoreWriteError("failed to query type infos by file", err)
	}
	defer rows.Close()
	var out []model.TypeInfo
	for rows.Next() {
		var ti model.TypeInfo
		if err := rows.Scan(&ti.Name, &ti.Line, &ti.TypeAnnot, &ti.Inferred); err != nil {
			return nil, cerrors.StoreWriteError("failed to scan type info row", err)
		}
		out = append(out, ti)
	}
	return out, rows.Err()
}

// QueryCallsByCallee returns every call site naming calleeName.
func (s *Store) QueryCallsByCallee(ctx context.Context, calleeName string) ([]model.CallReference, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT caller_file_id, callee_name, line FROM calls WHERE callee_name = ?`, calleeName)
	if err != nil {
		return nil, cerrors.StoreWriteError("failed to query calls by callee", err)
	}
	defer rows.Close()
	var out []model.CallReference
	for rows.Next() {
		var fileID int64
		var c model.CallReference
		if err := rows.Scan(&fileID, &c.CalleeName, &c.Line); err != nil {
			return nil, cerrors.StoreWriteError("failed to scan call row", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// QueryMethodCallsFiltered returns method calls matching receiver and/or
// method name (either may be empty to mean "any").
func (s *Store) QueryMethodCallsFiltered(ctx context.Context, receiver, method string) ([]model.MethodCall, error) {
	query := `SELECT line, receiver, method FROM method_calls WHERE 1=1`
	var args []any
	if receiver != "" {
		query += " AND receiver = ?"
		args = append(args, receiver)
	}
	if method != "" {
		query += " AND method = ?"
		args = append(args, method)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, cerrors.StoreWriteError("failed to query method calls", err)
	}
	defer rows.Close()
	var out []model.MethodCall
	for rows.Next() {
		var m model.MethodCall
		if err := rows.Scan(&m.Line, &m.Receiver, &m.Method); err != nil {
			return nil, cerrors.StoreWriteError("failed to scan method call row", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// QuerySymbolReferencesFiltered returns resolved edges matching kind
// and/or target symbol name (either may be empty to mean "any").
func (s *Store) QuerySymbolReferencesFiltered(ctx context.Context, kind model.ReferenceKind, targetSymbol string) ([]model.SymbolReference, error) {
	query := `SELECT source_file_id, source_line, source_symbol, target_file_id, target_symbol, target_kind, kind, confidence, resolution_method FROM symbol_references WHERE 1=1`
	var args []any
	if kind != "" {
		query += " AND kind = ?"
		args = append(args, string(kind))
	}
	if targetSymbol != "" {
		query += " AND target_symbol = ?"
		args = append(args, targetSymbol)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, cerrors.StoreWriteError("failed to query symbol references", err)
	}
	defer rows.Close()
	var out []model.SymbolReference
	for rows.Next() {
		var r model.SymbolReference
		var targetFileID sql.NullInt64
		var targetKind, resMethod string
		if err := rows.Scan(&r.SourceFileID, &r.SourceLine, &r.SourceSymbol, &targetFileID, &r.TargetSymbol, &targetKind, &r.Kind, &r.Confidence, &resMethod); err != nil {
			return nil, cerrors.StoreWriteError("failed to scan symbol reference row", err)
		}
		r.TargetFileID = targetFileID.Int64
		r.TargetKind = model.SymbolKind(targetKind)
		r.ResolutionMethod = model.ResolutionMethod(resMethod)
		out = append(out, r)
	}
	return out, rows.Err()
}

// QueryImportLinks returns fine-grained import facts for a file.
func (s *Store) QueryImportLinks(ctx context.Context, fileID int64) ([]model.ImportLink, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT module, imported_symbols, line, resolved, definition_file_id, definition_symbol
		FROM import_links WHERE file_id = ?
	`, fileID)
	if err != nil {
		return nil, cerrors.StoreWriteError("failed to query import links", err)
	}
	defer rows.Close()
	var out []model.ImportLink
	for rows.Next() {
		var l model.ImportLink
		var names string
		var defFileID sql.NullInt64
		if err := rows.Scan(&l.Module, &names, &l.Line, &l.Resolved, &defFileID, &l.DefinitionSymbol); err != nil {
			return nil, cerrors.StoreWriteError("failed to scan import link row", err)
		}
		_ = json.Unmarshal([]byte(names), &l.ImportedSymbols)
		l.DefinitionFileID = defFileID.Int64
		out = append(out, l)
	}
	return out, rows.Err()
}

// GetStats reports row counts per table and the on-disk size, per §4.D.
func (s *Store) GetStats(ctx context.Context) (Stats, error) {
	var stats Stats
	counts := []struct {
		table string
		dest  *int
	}{
		{"files", &stats.Files},
		{"symbols", &stats.Symbols},
		{"imports", &stats.Imports},
		{"import_links", &stats.ImportLinks},
		{"calls", &stats.Calls},
		{"method_calls", &stats.MethodCalls},
		{"type_infos", &stats.TypeInfos},
		{"symbol_references", &stats.SymbolReferences},
		{"embeddings_metadata", &stats.EmbeddingsLinked},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+c.table).Scan(c.dest); err != nil {
			return stats, cerrors.StoreWriteError("failed to count "+c.table, err)
		}
	}
	if s.path != "" {
		if info, err := os.Stat(s.path); err == nil {
			stats.OnDiskBytes = info.Size()
		}
	}
	return stats, nil
}

// SetMetadata upserts a key in the metadata bag.
func (s *Store) SetMetadata(ctx context.Context, key, value string) error {
	return s.Tx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO metadata(key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value
		`, key, value)
		if err != nil {
			return cerrors.StoreWriteError("failed to set metadata", err)
		}
		return nil
	})
}

// GetMetadata reads a key from the metadata bag, returning "" if absent.
func (s *Store) GetMetadata(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", cerrors.StoreWriteError("failed to read metadata", err)
	}
	return value, nil
}

var _ = regexp.MustCompile // reserved for future query-sanitization rules
