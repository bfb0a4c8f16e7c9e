package parse

import (
	"strings"
)

// Extractor walks a parsed Tree and emits the full schema spec §4.B
// requires: Symbols, ImportReferences/ImportLinks, CallReferences,
// MethodCalls, and TypeInfos. Both backends (AST, regex) produce the
// same Result shape; only completeness differs.
type Extractor struct {
	registry *LanguageRegistry
}

// NewExtractor creates an extractor against the default registry.
func NewExtractor() *Extractor {
	return &Extractor{registry: DefaultRegistry()}
}

// NewExtractorWithRegistry creates an extractor against a custom registry.
func NewExtractorWithRegistry(registry *LanguageRegistry) *Extractor {
	return &Extractor{registry: registry}
}

// Extract produces a full Result from a parsed Tree.
func (e *Extractor) Extract(tree *Tree, source []byte) *Result {
	result := &Result{
		Symbols:     []Symbol{},
		Imports:     []ImportReference{},
		ImportLinks: []ImportLink{},
		Calls:       []CallReference{},
		MethodCalls: []MethodCall{},
		TypeInfos:   []TypeInfo{},
	}
	if tree == nil || tree.Root == nil {
		return result
	}

	config, ok := e.registry.GetByName(tree.Language)
	if !ok {
		return result
	}

	// definitionHeads tracks byte ranges of function/method signature
	// heads so call-site extraction can exclude them (spec §4.B:
	// "Signature/definition lines are excluded").
	definitionHeads := map[*Node]bool{}

	tree.Root.Walk(func(n *Node) bool {
		if symbol := e.extractSymbolFromNode(n, source, config, tree.Language); symbol != nil {
			result.Symbols = append(result.Symbols, *symbol)
			definitionHeads[n] = true
		}
		if imp, link := e.extractImport(n, source, config, tree.Language); imp != nil {
			result.Imports = append(result.Imports, *imp)
			if link != nil {
				result.ImportLinks = append(result.ImportLinks, *link)
			}
		}
		if ti := e.extractTypeInfo(n, source, tree.Language); ti != nil {
			result.TypeInfos = append(result.TypeInfos, *ti)
		}
		return true
	})

	tree.Root.Walk(func(n *Node) bool {
		if call, method := e.extractCall(n, source, config); call != nil || method != nil {
			if e.insideDefinitionHead(n, definitionHeads) {
				return true
			}
			if method != nil {
				result.MethodCalls = append(result.MethodCalls, *method)
			} else {
				result.Calls = append(result.Calls, *call)
			}
		}
		return true
	})

	return result
}

func (e *Extractor) insideDefinitionHead(n *Node, heads map[*Node]bool) bool {
	// A call is part of a definition head only if it IS a definition
	// head node itself (functions/methods never nest inside their own
	// signature's call-expression slot); kept as an extension point for
	// languages where default-argument calls appear in the head.
	return heads[n]
}

// extractSymbolFromNode mirrors the teacher's node-type-table matching,
// generalized from chunk.SymbolType to parse.SymbolKind.
func (e *Extractor) extractSymbolFromNode(n *Node, source []byte, config *LanguageConfig, language string) *Symbol {
	kind, found := classify(n.Type, config)
	if !found {
		if s := e.extractSpecialSymbol(n, source, language); s != nil {
			return s
		}
		return nil
	}

	name := e.extractName(n, source, language)
	if name == "" {
		return nil
	}

	return &Symbol{
		Name:      name,
		Kind:      kind,
		StartLine: int(n.StartPoint.Row) + 1,
		EndLine:   int(n.EndPoint.Row) + 1,
		Signature: e.extractSignature(n, source, kind, language),
		DocFirst:  firstLine(e.extractDocComment(n, source, language)),
	}
}

func classify(nodeType string, config *LanguageConfig) (SymbolKind, bool) {
	for _, t := range config.FunctionTypes {
		if t == nodeType {
			return KindFunction, true
		}
	}
	for _, t := range config.MethodTypes {
		if t == nodeType {
			return KindMethod, true
		}
	}
	for _, t := range config.ClassTypes {
		if t == nodeType {
			return KindClass, true
		}
	}
	for _, t := range config.InterfaceTypes {
		if t == nodeType {
			return KindInterface, true
		}
	}
	for _, t := range config.TypeDefTypes {
		if t == nodeType {
			return KindStruct, true
		}
	}
	for _, t := range config.ConstantTypes {
		if t == nodeType {
			return KindConstant, true
		}
	}
	for _, t := range config.VariableTypes {
		if t == nodeType {
			return KindVariable, true
		}
	}
	return "", false
}

func (e *Extractor) extractName(n *Node, source []byte, language string) string {
	switch language {
	case "go":
		return extractGoName(n, source)
	case "typescript", "tsx", "javascript", "jsx":
		return extractJSName(n, source)
	case "python":
		return extractPythonName(n, source)
	}
	for _, child := range n.Children {
		if child.Type == "identifier" {
			return child.GetContent(source)
		}
	}
	return ""
}

func extractGoName(n *Node, source []byte) string {
	switch n.Type {
	case "function_declaration":
		for _, child := range n.Children {
			if child.Type == "identifier" {
				return child.GetContent(source)
			}
		}
	case "method_declaration":
		for _, child := range n.Children {
			if child.Type == "field_identifier" {
				return child.GetContent(source)
			}
		}
	case "type_declaration":
		for _, child := range n.Children {
			if child.Type == "type_spec" {
				if id := child.FindChildByType("type_identifier"); id != nil {
					return id.GetContent(source)
				}
			}
		}
	case "const_declaration":
		for _, child := range n.Children {
			if child.Type == "const_spec" {
				if id := child.FindChildByType("identifier"); id != nil {
					return id.GetContent(source)
				}
			}
		}
	case "var_declaration":
		for _, child := range n.Children {
			if child.Type == "var_spec" {
				if id := child.FindChildByType("identifier"); id != nil {
					return id.GetContent(source)
				}
			}
		}
	}
	return ""
}

func extractJSName(n *Node, source []byte) string {
	if n.Type == "lexical_declaration" || n.Type == "variable_declaration" {
		for _, child := range n.Children {
			if child.Type == "variable_declarator" {
				if id := child.FindChildByType("identifier"); id != nil {
					return id.GetContent(source)
				}
			}
		}
	}
	for _, child := range n.Children {
		if child.Type == "identifier" || child.Type == "type_identifier" {
			return child.GetContent(source)
		}
	}
	return ""
}

func extractPythonName(n *Node, source []byte) string {
	for _, child := range n.Children {
		if child.Type == "identifier" {
			return child.GetContent(source)
		}
	}
	return ""
}

func (e *Extractor) extractSpecialSymbol(n *Node, source []byte, language string) *Symbol {
	switch language {
	case "typescript", "tsx", "javascript", "jsx":
		if n.Type == "lexical_declaration" || n.Type == "variable_declaration" {
			return extractJSVariableFunctionSymbol(n, source)
		}
	}
	return nil
}

func extractJSVariableFunctionSymbol(n *Node, source []byte) *Symbol {
	for _, child := range n.Children {
		if child.Type != "variable_declarator" {
			continue
		}
		var name string
		var hasFunction bool
		for _, grandchild := range child.Children {
			if grandchild.Type == "identifier" {
				name = grandchild.GetContent(source)
			}
			if grandchild.Type == "arrow_function" || grandchild.Type == "function" || grandchild.Type == "function_expression" {
				hasFunction = true
			}
		}
		if name != "" && hasFunction {
			content := n.GetContent(source)
			return &Symbol{
				Name:      name,
				Kind:      KindFunction,
				StartLine: int(n.StartPoint.Row) + 1,
				EndLine:   int(n.EndPoint.Row) + 1,
				Signature: extractFunctionSignature(content, "javascript"),
			}
		}
	}
	return nil
}

func (e *Extractor) extractDocComment(n *Node, source []byte, language string) string {
	if n.StartPoint.Row == 0 {
		return ""
	}

	lineStart := int(n.StartByte)
	for lineStart > 0 && source[lineStart-1] != '\n' {
		lineStart--
	}
	if lineStart <= 1 {
		return ""
	}

	prevLineEnd := lineStart - 1
	prevLineStart := prevLineEnd - 1
	for prevLineStart > 0 && source[prevLineStart-1] != '\n' {
		prevLineStart--
	}
	prevLine := strings.TrimSpace(string(source[prevLineStart:prevLineEnd]))

	switch language {
	case "go", "javascript", "jsx", "typescript", "tsx":
		if strings.HasPrefix(prevLine, "//") {
			return strings.TrimPrefix(prevLine, "//")
		}
	case "python":
		return "" // docstrings live inside the body, handled separately
	}
	return ""
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return strings.TrimSpace(s[:idx])
	}
	return s
}

func (e *Extractor) extractSignature(n *Node, source []byte, kind SymbolKind, language string) string {
	content := n.GetContent(source)
	if content == "" {
		return ""
	}
	switch kind {
	case KindFunction, KindMethod:
		return extractFunctionSignature(content, language)
	case KindClass, KindInterface, KindStruct:
		return extractTypeSignature(content, language)
	}
	return ""
}

func extractFunctionSignature(content, language string) string {
	firstLine := strings.TrimSpace(strings.SplitN(content, "\n", 2)[0])

	switch language {
	case "go", "typescript", "tsx", "javascript", "jsx":
		if idx := strings.Index(firstLine, "{"); idx != -1 {
			return strings.TrimSpace(firstLine[:idx])
		}
		return firstLine
	case "python":
		return firstLine
	}
	return firstLine
}

func extractTypeSignature(content, language string) string {
	firstLine := strings.TrimSpace(strings.SplitN(content, "\n", 2)[0])

	switch language {
	case "go", "typescript", "tsx", "javascript", "jsx":
		if idx := strings.Index(firstLine, "{"); idx != -1 {
			return strings.TrimSpace(firstLine[:idx])
		}
		return firstLine
	case "python":
		return firstLine
	}
	return firstLine
}

// extractImport recognizes a top-level import node and, where the
// language exposes named imports, the fine-grained ImportLink alongside
// the coarse ImportReference.
func (e *Extractor) extractImport(n *Node, source []byte, config *LanguageConfig, language string) (*ImportReference, *ImportLink) {
	isImport := false
	for _, t := range config.ImportTypes {
		if n.Type == t {
			isImport = true
			break
		}
	}
	if !isImport {
		return nil, nil
	}

	line := int(n.StartPoint.Row) + 1

	switch language {
	case "go":
		return extractGoImport(n, source, line)
	case "python":
		return extractPythonImport(n, source, line)
	case "typescript", "tsx", "javascript", "jsx":
		return extractJSImport(n, source, line)
	}
	return nil, nil
}

func extractGoImport(n *Node, source []byte, line int) (*ImportReference, *ImportLink) {
	for _, spec := range n.FindAllByType("import_spec") {
		if path := spec.FindChildByType("interpreted_string_literal"); path != nil {
			module := strings.Trim(path.GetContent(source), `"`)
			return &ImportReference{Module: module, Line: line}, nil
		}
	}
	return nil, nil
}

func extractPythonImport(n *Node, source []byte, line int) (*ImportReference, *ImportLink) {
	if n.Type == "import_from_statement" {
		var module string
		var names []string
		for _, child := range n.Children {
			switch child.Type {
			case "dotted_name":
				if module == "" {
					module = child.GetContent(source)
				} else {
					names = append(names, child.GetContent(source))
				}
			case "import_list":
				for _, id := range child.FindAllByType("dotted_name") {
					names = append(names, id.GetContent(source))
				}
			}
		}
		if module == "" {
			return nil, nil
		}
		return &ImportReference{Module: module, Line: line},
			&ImportLink{Module: module, ImportedSymbols: names, Line: line}
	}
	if dotted := n.FindChildByType("dotted_name"); dotted != nil {
		module := dotted.GetContent(source)
		return &ImportReference{Module: module, Line: line}, nil
	}
	return nil, nil
}

func extractJSImport(n *Node, source []byte, line int) (*ImportReference, *ImportLink) {
	str := n.FindChildByType("string")
	if str == nil {
		return nil, nil
	}
	module := strings.Trim(strings.Trim(str.GetContent(source), `"`), "'")

	var names []string
	if clause := n.FindChildByType("import_clause"); clause != nil {
		for _, id := range clause.FindAllByType("identifier") {
			names = append(names, id.GetContent(source))
		}
	}
	ref := &ImportReference{Module: module, Line: line}
	if len(names) > 0 {
		return ref, &ImportLink{Module: module, ImportedSymbols: names, Line: line}
	}
	return ref, nil
}

// extractCall recognizes a call-expression node and decides whether it's
// a bare CallReference or a receiver.method(...) MethodCall.
func (e *Extractor) extractCall(n *Node, source []byte, config *LanguageConfig) (*CallReference, *MethodCall) {
	isCall := false
	for _, t := range config.CallTypes {
		if n.Type == t {
			isCall = true
			break
		}
	}
	if !isCall {
		return nil, nil
	}

	line := int(n.StartPoint.Row) + 1
	if len(n.Children) == 0 {
		return nil, nil
	}
	callee := n.Children[0]

	switch callee.Type {
	case "selector_expression", "member_expression", "attribute":
		receiver, method := splitReceiver(callee, source)
		if method == "" {
			return nil, nil
		}
		return nil, &MethodCall{Line: line, Receiver: receiver, Method: method}
	case "identifier":
		return &CallReference{CalleeName: callee.GetContent(source), Line: line}, nil
	}
	return nil, nil
}

// splitReceiver pulls "a.b.c" apart into ("a.b", "c") from a selector
// node's textual content, keeping the full dotted prefix for chained
// receivers (spec §4.B: "chained receivers keep the full prefix").
func splitReceiver(n *Node, source []byte) (string, string) {
	text := n.GetContent(source)
	idx := strings.LastIndexByte(text, '.')
	if idx < 0 {
		return "", ""
	}
	return text[:idx], text[idx+1:]
}

// extractTypeInfo picks up explicit annotations (`x: T`) and simple
// constructor inference (`x = T(...)`, `x := T{}`).
func (e *Extractor) extractTypeInfo(n *Node, source []byte, language string) *TypeInfo {
	line := int(n.StartPoint.Row) + 1

	switch language {
	case "python":
		if n.Type == "typed_parameter" || n.Type == "parameter" {
			if name := n.FindChildByType("identifier"); name != nil {
				if annot := n.FindChildByType("type"); annot != nil {
					return &TypeInfo{Name: name.GetContent(source), Line: line, TypeAnnot: annot.GetContent(source)}
				}
			}
		}
		if n.Type == "assignment" {
			name, call := n.FindChildByType("identifier"), n.FindChildByType("call")
			if name != nil && call != nil && len(call.Children) > 0 && call.Children[0].Type == "identifier" {
				if typ := call.Children[0].GetContent(source); typ != "" && typ[0] >= 'A' && typ[0] <= 'Z' {
					return &TypeInfo{Name: name.GetContent(source), Line: line, Inferred: typ}
				}
			}
		}
	case "typescript", "tsx":
		if n.Type == "required_parameter" || n.Type == "optional_parameter" {
			if name := n.FindChildByType("identifier"); name != nil {
				if annot := n.FindChildByType("type_annotation"); annot != nil {
					return &TypeInfo{Name: name.GetContent(source), Line: line, TypeAnnot: strings.TrimPrefix(annot.GetContent(source), ":")}
				}
			}
		}
	case "go":
		if n.Type == "short_var_declaration" {
			if lists := n.FindChildrenByType("expression_list"); len(lists) == 2 {
				if rhs := lists[1].FindChildByType("composite_literal"); rhs != nil {
					if typ := rhs.FindChildByType("type_identifier"); typ != nil {
						if id := lists[0].FindChildByType("identifier"); id != nil {
							return &TypeInfo{Name: id.GetContent(source), Line: line, Inferred: typ.GetContent(source)}
						}
					}
				}
			}
		}
	}
	return nil
}
