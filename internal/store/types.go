// Package store is the Index Store (§4.D) and Vector Store (§4.E): a
// relational schema over SQLite (files/symbols/imports/import_links/
// calls/method_calls/type_infos/symbol_references/embeddings_metadata/
// metadata) plus an HNSW-backed vector index keyed by the same symbol ids.
package store

import (
	"fmt"
	"time"
)

// CurrentSchemaVersion is the schema version stamped into the metadata table.
const CurrentSchemaVersion = 1

// Metadata bag keys (spec §3 invariant 6: "schema version, project root,
// last-build VCS revision, embedding model name").
const (
	MetaKeySchemaVersion  = "schema_version"
	MetaKeyProjectRoot    = "project_root"
	MetaKeyVCSRevision    = "last_vcs_revision"
	MetaKeyEmbeddingModel = "embedding_model"
	MetaKeyLastBuildAt    = "last_build_at"

	// MetaKeyGitignoreHash and MetaKeyGitignoreContent back the watcher
	// coordinator's .gitignore reconciliation: the hash detects any
	// change since the last build/run, the cached content lets it diff
	// the root .gitignore's patterns instead of always rescanning.
	MetaKeyGitignoreHash    = "gitignore_hash"
	MetaKeyGitignoreContent = "gitignore_content"
)

// SymbolFilter narrows query_symbols (spec §4.D).
type SymbolFilter struct {
	FileID int64  // 0 means any file
	Kind   string // "" means any kind
	Name   string // "" means any name; otherwise exact match
}

// Stats mirrors get_stats(): counts per table and on-disk size.
type Stats struct {
	Files             int
	Symbols           int
	Imports           int
	ImportLinks       int
	Calls             int
	MethodCalls       int
	TypeInfos         int
	SymbolReferences  int
	EmbeddingsLinked  int
	OnDiskBytes       int64
}

// ErrDimensionMismatch indicates a query/insert vector doesn't match the
// store's configured dimension.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d (rebuild the index)", e.Expected, e.Got)
}

// VectorStoreConfig configures the HNSW-backed Vector Store.
type VectorStoreConfig struct {
	Dimensions     int
	Metric         string // "cos" or "l2"
	M              int
	EfConstruction int
	EfSearch       int
	// OrphanRebuildRatio is the fraction of lazily-deleted nodes (relative
	// to the graph's total) that triggers a rebuild on the next Delete
	// (spec §4.E: "requires a rebuild ... the store hides this ...
	// rebuilding lazily").
	OrphanRebuildRatio float64
}

// DefaultVectorStoreConfig returns sane defaults for dimension d.
func DefaultVectorStoreConfig(d int) VectorStoreConfig {
	return VectorStoreConfig{
		Dimensions:         d,
		Metric:             "cos",
		M:                  16,
		EfConstruction:     128,
		EfSearch:           64,
		OrphanRebuildRatio: 0.3,
	}
}

// VectorResult is a single ANN search hit.
type VectorResult struct {
	ID       string
	Distance float32
	Score    float32
}

func timeToUnix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func unixToTime(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
