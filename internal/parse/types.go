// Package parse turns file bytes into symbols, import/call references, and
// type annotations (spec §4.B). Two backends share one schema: an AST
// backend built on tree-sitter, and a regex fallback used when a grammar
// for the file's language isn't compiled in.
package parse

// Result is everything a single file yields: spec §4.B says both backends
// "MUST emit identical schemas."
type Result struct {
	Symbols    []Symbol
	Imports    []ImportReference
	ImportLinks []ImportLink
	Calls      []CallReference
	MethodCalls []MethodCall
	TypeInfos  []TypeInfo
}

// Symbol mirrors model.Symbol but without FileID/Kind resolved to the
// store's foreign keys yet — the caller (index builder) stamps those in.
type Symbol struct {
	Name       string
	Kind       SymbolKind
	StartLine  int // 1-indexed
	EndLine    int // inclusive
	Signature  string
	DocFirst   string
	Metadata   map[string]string
}

// SymbolKind is the kind of a code symbol as seen by the parser, before
// the resolution engine reconciles it against model.SymbolKind.
type SymbolKind string

const (
	KindFunction  SymbolKind = "function"
	KindMethod    SymbolKind = "method"
	KindClass     SymbolKind = "class"
	KindStruct    SymbolKind = "struct"
	KindInterface SymbolKind = "interface"
	KindEnum      SymbolKind = "enum"
	KindVariable  SymbolKind = "variable"
	KindConstant  SymbolKind = "constant"
	KindModule    SymbolKind = "module"
)

// ImportReference is the coarse "this file imports this module" fact.
type ImportReference struct {
	Module string
	Line   int
}

// ImportLink is the fine-grained "these names came from this module" fact.
type ImportLink struct {
	Module           string
	ImportedSymbols  []string
	Line             int
}

// CallReference is a name-followed-by-`(` call site not part of a definition head.
type CallReference struct {
	CalleeName string
	Line       int
}

// MethodCall is a `receiver.method(` call site.
type MethodCall struct {
	Line     int
	Receiver string
	Method   string
}

// TypeInfo is an explicit type annotation or a simple constructor-call inference.
type TypeInfo struct {
	Name      string
	Line      int
	TypeAnnot string
	Inferred  string
}

// Tree is the parser's own AST shape, backend-agnostic.
type Tree struct {
	Root     *Node
	Source   []byte
	Language string
}

// Node is a node in Tree.
type Node struct {
	Type       string
	StartByte  uint32
	EndByte    uint32
	StartPoint Point
	EndPoint   Point
	Children   []*Node
	HasError   bool
}

// Point is a row/column position in source.
type Point struct {
	Row    uint32 // 0-indexed
	Column uint32
}

// GetContent returns the source slice covered by n.
func (n *Node) GetContent(source []byte) string {
	if n.StartByte >= n.EndByte || int(n.EndByte) > len(source) {
		return ""
	}
	return string(source[n.StartByte:n.EndByte])
}

// FindChildByType returns the first direct child of the given type.
func (n *Node) FindChildByType(nodeType string) *Node {
	for _, child := range n.Children {
		if child.Type == nodeType {
			return child
		}
	}
	return nil
}

// FindChildrenByType returns all direct children of the given type.
func (n *Node) FindChildrenByType(nodeType string) []*Node {
	var result []*Node
	for _, child := range n.Children {
		if child.Type == nodeType {
			result = append(result, child)
		}
	}
	return result
}

// FindAllByType recursively finds every node of the given type.
func (n *Node) FindAllByType(nodeType string) []*Node {
	var result []*Node
	if n.Type == nodeType {
		result = append(result, n)
	}
	for _, child := range n.Children {
		result = append(result, child.FindAllByType(nodeType)...)
	}
	return result
}

// Walk traverses depth-first, calling fn for each node. fn returning false
// stops descent into that node's children (but not its siblings).
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, child := range n.Children {
		child.Walk(fn)
	}
}

// LanguageConfig holds the tree-sitter node-type vocabulary for one language.
type LanguageConfig struct {
	Name       string
	Extensions []string

	FunctionTypes  []string
	ClassTypes     []string
	InterfaceTypes []string
	MethodTypes    []string
	TypeDefTypes   []string
	ConstantTypes  []string
	VariableTypes  []string

	ImportTypes []string // top-level import statement node types
	CallTypes   []string // call-expression node types

	NameField string
}
