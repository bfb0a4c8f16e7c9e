package build

import (
	"context"

	"github.com/cerberus-code/cerberus/internal/parse"
)

// languageSupported reports whether language has a compiled tree-sitter
// grammar. Languages without one fall back to the regex backend (spec
// §4.B strategy 2).
func languageSupported(registry *parse.LanguageRegistry, language string) bool {
	_, ok := registry.GetTreeSitterLanguage(language)
	return ok
}

// parseFile extracts symbols and facts from one file's content, choosing
// the AST backend when a grammar is available and falling back to the
// regex backend otherwise — including when the AST backend itself
// returns an error, since a syntax error degrades the backend rather
// than aborting the build.
func (b *Builder) parseFile(ctx context.Context, content []byte, language string) *parse.Result {
	if languageSupported(b.registry, language) {
		if tree, err := b.astParser.Parse(ctx, content, language); err == nil {
			return b.extractor.Extract(tree, content)
		}
	}
	return b.regexParser.Extract(content, language)
}
