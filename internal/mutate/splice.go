package mutate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/cerberus-code/cerberus/internal/cerrors"
	"github.com/cerberus-code/cerberus/internal/parse"
)

func hashBytes(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// spliceResult is the in-memory outcome of replacing a symbol's span.
type spliceResult struct {
	newContent   []byte
	linesChanged int
	linesTotal   int
}

// splice replaces loc.symbol's [StartLine, EndLine] span (1-indexed,
// inclusive) with replacement, reindented to the target depth when style
// is non-nil, preserving the file's original line ending throughout.
func splice(loc *located, replacement string, style *indentStyle) spliceResult {
	ending := detectLineEnding(loc.content)
	lines := strings.Split(normalizeLineEndings(string(loc.content)), "\n")

	startIdx := loc.symbol.StartLine - 1
	endIdx := loc.symbol.EndLine - 1
	spanSize := endIdx - startIdx + 1

	var newLines []string
	var linesChanged int
	if replacement == "" {
		newLines = deleteSpan(lines, startIdx, endIdx)
		linesChanged = spanSize
	} else {
		body := replacement
		if style != nil {
			depth := leadingIndentDepth(lines[startIdx], *style)
			body = reindent(replacement, depth, *style)
		}
		replacementLines := strings.Split(body, "\n")
		newLines = replaceSpan(lines, startIdx, endIdx, replacementLines)
		linesChanged = max(spanSize, len(replacementLines))
	}

	joined := strings.Join(newLines, "\n")
	if !strings.HasSuffix(joined, "\n") && len(newLines) > 0 {
		joined += "\n"
	}
	if ending == "\r\n" {
		joined = strings.ReplaceAll(joined, "\n", "\r\n")
	}

	return spliceResult{
		newContent:   []byte(joined),
		linesChanged: linesChanged,
		linesTotal:   len(lines),
	}
}

func replaceSpan(lines []string, start, end int, replacement []string) []string {
	out := make([]string, 0, len(lines)-(end-start+1)+len(replacement))
	out = append(out, lines[:start]...)
	out = append(out, replacement...)
	out = append(out, lines[end+1:]...)
	return out
}

// deleteSpan removes [start, end] plus one trailing blank line, if any,
// matching the spec's delete semantics.
func deleteSpan(lines []string, start, end int) []string {
	removeEnd := end
	if removeEnd+1 < len(lines) && strings.TrimSpace(lines[removeEnd+1]) == "" {
		removeEnd++
	}
	out := make([]string, 0, len(lines)-(removeEnd-start+1))
	out = append(out, lines[:start]...)
	out = append(out, lines[removeEnd+1:]...)
	return out
}

func normalizeLineEndings(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}

// validateSyntax reparses content for language and fails with
// SyntaxValidation if the tree-sitter grammar reports an error anywhere
// in it. Languages with no tree-sitter grammar (regex-backend only) are
// not checked — there's nothing to reparse against, matching the spec's
// "does not guarantee semantic equivalence... only syntactic validity"
// non-goal, which presupposes a grammar exists to check against.
func validateSyntax(ctx context.Context, astParser *parse.ASTParser, registry *parse.LanguageRegistry, file, language string, content []byte) error {
	if _, ok := registry.GetTreeSitterLanguage(language); !ok {
		return nil
	}

	tree, err := astParser.Parse(ctx, content, language)
	if err != nil {
		return cerrors.SyntaxValidation(file, []string{err.Error()})
	}
	if tree.Root.HasError {
		return cerrors.SyntaxValidation(file, []string{"parsed tree contains a syntax error node"})
	}
	return nil
}
