package parse

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/cerberus-code/cerberus/internal/cerrors"
)

// ASTParser wraps tree-sitter for the AST backend (spec §4.B strategy 1).
type ASTParser struct {
	parser   *sitter.Parser
	registry *LanguageRegistry
}

// NewASTParser creates a parser against the default language registry.
func NewASTParser() *ASTParser {
	return &ASTParser{
		parser:   sitter.NewParser(),
		registry: DefaultRegistry(),
	}
}

// NewASTParserWithRegistry creates a parser against a custom registry.
func NewASTParserWithRegistry(registry *LanguageRegistry) *ASTParser {
	return &ASTParser{
		parser:   sitter.NewParser(),
		registry: registry,
	}
}

// Parse parses source bytes for the given language into a Tree.
func (p *ASTParser) Parse(ctx context.Context, source []byte, language string) (*Tree, error) {
	tsLang, ok := p.registry.GetTreeSitterLanguage(language)
	if !ok {
		return nil, fmt.Errorf("unsupported language: %s", language)
	}

	p.parser.SetLanguage(tsLang)

	tsTree, err := p.parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, cerrors.ParserError("", err)
	}
	if tsTree == nil {
		return nil, cerrors.ParserError("", fmt.Errorf("nil tree returned"))
	}

	root := convertNode(tsTree.RootNode())

	return &Tree{
		Root:     root,
		Source:   source,
		Language: language,
	}, nil
}

// Close releases the underlying tree-sitter parser.
func (p *ASTParser) Close() {
	if p.parser != nil {
		p.parser.Close()
	}
}

func convertNode(tsNode *sitter.Node) *Node {
	if tsNode == nil {
		return nil
	}

	node := &Node{
		Type:      tsNode.Type(),
		StartByte: tsNode.StartByte(),
		EndByte:   tsNode.EndByte(),
		StartPoint: Point{
			Row:    tsNode.StartPoint().Row,
			Column: tsNode.StartPoint().Column,
		},
		EndPoint: Point{
			Row:    tsNode.EndPoint().Row,
			Column: tsNode.EndPoint().Column,
		},
		HasError: tsNode.HasError(),
		Children: make([]*Node, 0, int(tsNode.ChildCount())),
	}

	for i := uint32(0); i < tsNode.ChildCount(); i++ {
		if child := tsNode.Child(int(i)); child != nil {
			node.Children = append(node.Children, convertNode(child))
		}
	}

	return node
}
