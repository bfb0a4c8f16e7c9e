package parse

import (
	"bufio"
	"bytes"
	"regexp"
	"strings"
)

// regexRule is one line-oriented pattern for the fallback backend (spec
// §4.B strategy 2: used "when the grammar bundle is absent").
type regexRule struct {
	pattern *regexp.Regexp
	kind    SymbolKind
	nameIdx int
}

var regexRulesByLanguage = map[string][]regexRule{
	"go": {
		{regexp.MustCompile(`^func\s+\([^)]*\)\s+(\w+)\s*\(`), KindMethod, 1},
		{regexp.MustCompile(`^func\s+(\w+)\s*\(`), KindFunction, 1},
		{regexp.MustCompile(`^type\s+(\w+)\s+(?:struct|interface)\b`), KindStruct, 1},
		{regexp.MustCompile(`^const\s+(\w+)\s*`), KindConstant, 1},
		{regexp.MustCompile(`^var\s+(\w+)\s+`), KindVariable, 1},
	},
	"python": {
		{regexp.MustCompile(`^(\s*)def\s+(\w+)\s*\(`), KindFunction, 2},
		{regexp.MustCompile(`^(\s*)class\s+(\w+)\s*[:(]`), KindClass, 2},
	},
	"typescript": {
		{regexp.MustCompile(`^\s*(?:export\s+)?(?:async\s+)?function\s+(\w+)\s*\(`), KindFunction, 1},
		{regexp.MustCompile(`^\s*(?:export\s+)?class\s+(\w+)\b`), KindClass, 1},
		{regexp.MustCompile(`^\s*(?:export\s+)?interface\s+(\w+)\b`), KindInterface, 1},
	},
	"javascript": {
		{regexp.MustCompile(`^\s*(?:export\s+)?(?:async\s+)?function\s+(\w+)\s*\(`), KindFunction, 1},
		{regexp.MustCompile(`^\s*(?:export\s+)?class\s+(\w+)\b`), KindClass, 1},
	},
}

func init() {
	regexRulesByLanguage["tsx"] = regexRulesByLanguage["typescript"]
	regexRulesByLanguage["jsx"] = regexRulesByLanguage["javascript"]
}

var (
	reImport     = regexp.MustCompile(`^\s*import\s+.*?["']([^"']+)["']|^\s*from\s+(\S+)\s+import|^\s*import\s+(\S+)`)
	reCallGo     = regexp.MustCompile(`\b([A-Za-z_]\w*)\s*\(`)
	reMethodCall = regexp.MustCompile(`\b([A-Za-z_][\w.]*)\.([A-Za-z_]\w*)\s*\(`)
)

// RegexParser is the degraded fallback extractor. It never errors on
// unsupported syntax — per spec §4.B it tags every symbol it emits with
// Metadata["parser"] = "regex" so consumers lower their confidence.
type RegexParser struct{}

// NewRegexParser constructs the fallback extractor.
func NewRegexParser() *RegexParser {
	return &RegexParser{}
}

// Extract scans source line by line using the language's regexRules.
func (p *RegexParser) Extract(source []byte, language string) *Result {
	result := &Result{
		Symbols:     []Symbol{},
		Imports:     []ImportReference{},
		ImportLinks: []ImportLink{},
		Calls:       []CallReference{},
		MethodCalls: []MethodCall{},
		TypeInfos:   []TypeInfo{},
	}

	rules := regexRulesByLanguage[language]
	lines := splitLines(source)

	for i, line := range lines {
		lineNo := i + 1

		for _, rule := range rules {
			m := rule.pattern.FindStringSubmatch(line)
			if m == nil || len(m) <= rule.nameIdx {
				continue
			}
			name := m[rule.nameIdx]
			end := endOfBlock(lines, i, language)
			result.Symbols = append(result.Symbols, Symbol{
				Name:      name,
				Kind:      rule.kind,
				StartLine: lineNo,
				EndLine:   end,
				Signature: strings.TrimSpace(line),
				Metadata:  map[string]string{"parser": "regex"},
			})
		}

		if m := reImport.FindStringSubmatch(line); m != nil {
			module := firstNonEmpty(m[1], m[2], m[3])
			if module != "" {
				result.Imports = append(result.Imports, ImportReference{Module: module, Line: lineNo})
			}
		}

		for _, m := range reMethodCall.FindAllStringSubmatch(line, -1) {
			result.MethodCalls = append(result.MethodCalls, MethodCall{Line: lineNo, Receiver: m[1], Method: m[2]})
		}
		for _, m := range reCallGo.FindAllStringSubmatch(line, -1) {
			if isKeyword(m[1]) {
				continue
			}
			result.Calls = append(result.Calls, CallReference{CalleeName: m[1], Line: lineNo})
		}
	}

	return result
}

// endOfBlock makes a best-effort guess at where a definition's body ends,
// by looking for the next line at the same or lower indentation (Python)
// or matching brace depth (brace languages). It never returns a line
// before start — callers fall back to start when no closer is found.
func endOfBlock(lines []string, start int, language string) int {
	if language == "python" {
		indent := leadingSpace(lines[start])
		for i := start + 1; i < len(lines); i++ {
			trimmed := strings.TrimSpace(lines[i])
			if trimmed == "" {
				continue
			}
			if leadingSpace(lines[i]) <= indent {
				return i // 1-indexed end is the line before this (already 1-indexed via loop start)
			}
		}
		return len(lines)
	}

	depth := 0
	started := false
	for i := start; i < len(lines); i++ {
		for _, c := range lines[i] {
			switch c {
			case '{':
				depth++
				started = true
			case '}':
				depth--
			}
		}
		if started && depth <= 0 {
			return i + 1
		}
	}
	return start + 1
}

func leadingSpace(s string) int {
	n := 0
	for _, c := range s {
		if c == ' ' {
			n++
		} else if c == '\t' {
			n += 8
		} else {
			break
		}
	}
	return n
}

func splitLines(source []byte) []string {
	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(source))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

var goKeywords = map[string]bool{
	"if": true, "for": true, "switch": true, "select": true, "func": true,
	"return": true, "range": true, "go": true, "defer": true, "else": true,
}

func isKeyword(name string) bool {
	return goKeywords[name]
}
