// Package model defines the entities shared by every Cerberus component:
// the scanner, parser, resolution engine, index store, vector store, and
// mutation engine all read and write these same structs.
package model

import "time"

// SymbolKind is the kind of a code symbol.
type SymbolKind string

const (
	KindFunction  SymbolKind = "function"
	KindMethod    SymbolKind = "method"
	KindClass     SymbolKind = "class"
	KindStruct    SymbolKind = "struct"
	KindInterface SymbolKind = "interface"
	KindEnum      SymbolKind = "enum"
	KindVariable  SymbolKind = "variable"
	KindModule    SymbolKind = "module"
)

// ReferenceKind is the kind of a resolved SymbolReference edge.
type ReferenceKind string

const (
	RefCalls       ReferenceKind = "calls"
	RefInherits    ReferenceKind = "inherits"
	RefImports     ReferenceKind = "imports"
	RefInstantiates ReferenceKind = "instantiates"
)

// File is a tracked source file. Natural key: Path.
type File struct {
	ID          int64
	Path        string // repo-relative
	AbsPath     string
	Size        int64
	ModTime     time.Time
	ContentHash string // optional, used by the incremental detector
	Language    string
	IndexedAt   time.Time
}

// Symbol is a named code entity. Natural key: (FileID, Name, StartLine, Kind).
type Symbol struct {
	ID         int64
	FileID     int64
	Name       string
	Kind       SymbolKind
	StartLine  int // 1-indexed
	EndLine    int // inclusive; EndLine > StartLine for multi-line bodies
	Signature  string
	Params     []string
	DocFirst   string // docstring first line, if any
	Language   string
	Metadata   map[string]string // e.g. {"parser": "regex"} for degraded results
}

// ImportReference is a coarse "this file imports this module" fact.
type ImportReference struct {
	ID       int64
	FileID   int64
	Module   string
	Line     int
}

// ImportLink is a fine-grained "these names are pulled from this module" fact.
type ImportLink struct {
	ID                int64
	FileID            int64
	Module            string
	ImportedSymbols    []string
	Line              int
	Resolved          bool
	DefinitionFileID  int64 // valid iff Resolved
	DefinitionSymbol  string
}

// CallReference is an unresolved, name-based call site.
type CallReference struct {
	ID         int64
	CallerFileID int64
	CalleeName string
	Line       int
}

// MethodCall is a `receiver.method(...)` call site.
type MethodCall struct {
	ID            int64
	CallerFileID  int64
	Line          int
	Receiver      string // dotted path, e.g. "self.optimizer"
	Method        string
}

// TypeInfo is an explicit annotation or inferred constructor type.
type TypeInfo struct {
	ID         int64
	Name       string
	FileID     int64
	Line       int
	TypeAnnot  string // explicit annotation, if present
	Inferred   string // inferred from construction, if present
}

// ResolutionMethod tags how a SymbolReference was derived, for debuggability.
type ResolutionMethod string

const (
	ResolutionExactNamespace   ResolutionMethod = "exact_namespace"
	ResolutionTypeAnnotation   ResolutionMethod = "type_annotation"
	ResolutionConstructorInfer ResolutionMethod = "constructor_inference"
	ResolutionSpeculative      ResolutionMethod = "speculative"
)

// SymbolReference is a resolved edge between two symbols.
type SymbolReference struct {
	ID               int64
	SourceFileID     int64
	SourceLine       int
	SourceSymbol     string
	TargetFileID     int64
	TargetSymbol     string
	TargetKind       SymbolKind
	Kind             ReferenceKind
	Confidence       float64 // in [0, 1]
	ResolutionMethod ResolutionMethod
}

// EmbeddingMetadata links a Symbol row to one vector in the vector store.
type EmbeddingMetadata struct {
	SymbolID int64
	VectorID string
	Model    string
}

// MutationOp is the kind of change a MutationLedgerEntry records.
type MutationOp string

const (
	OpEdit   MutationOp = "edit"
	OpDelete MutationOp = "delete"
)

// MutationLedgerEntry is an append-only record of a Mutation Engine write.
type MutationLedgerEntry struct {
	Timestamp         time.Time
	Operation         MutationOp
	File              string
	Symbol            string
	LinesChanged      int
	LinesTotal        int
	TokensSavedEstimate int
	BackupPath        string
}
