package retrieve

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/cerberus-code/cerberus/internal/cerrors"
	"github.com/cerberus-code/cerberus/internal/embed"
	"github.com/cerberus-code/cerberus/internal/store"
)

// Engine is the Hybrid Retriever (spec §4.G): it fuses lexical search
// over the Index Store with semantic search over the Vector Store,
// reads back the matched spans from disk, and optionally reduces a
// span to its signature-and-doc skeleton.
type Engine struct {
	store      *store.Store
	vectors    *store.VectorStore
	embedder   embed.Embedder
	classifier Classifier
	root       string // filesystem root that Symbol.FilePath is relative to
}

// New builds a retrieval engine over an already-populated store pair.
// embedder may be nil, in which case searches always run lexical-only.
func New(st *store.Store, vec *store.VectorStore, embedder embed.Embedder, root string) *Engine {
	return &Engine{
		store:      st,
		vectors:    vec,
		embedder:   embedder,
		classifier: NewPatternClassifier(),
		root:       root,
	}
}

// Search executes a hybrid query and returns fused, read-through results.
func (e *Engine) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	if opts.Limit > MaxLimit {
		opts.Limit = MaxLimit
	}

	weights := DefaultWeights()
	if opts.Weights != nil {
		weights = *opts.Weights
	} else if e.classifier != nil {
		if _, w, err := e.classifier.Classify(ctx, query); err == nil {
			weights = w
		}
	}

	lexicalHits, err := e.lexicalSearch(ctx, query, opts.Limit*4)
	if err != nil {
		return nil, err
	}

	var semanticHits []SemanticHit
	if !opts.LexicalOnly && e.embedder != nil {
		semanticHits, err = e.semanticSearch(ctx, query, opts.Limit*4)
		if err != nil {
			return nil, err
		}
	}

	fusedResults := rrfFuse(lexicalHits, semanticHits, weights, RRFConstant)

	out := make([]Result, 0, opts.Limit)
	for _, f := range fusedResults {
		if len(out) >= opts.Limit {
			break
		}
		result, ok, err := e.hydrate(ctx, f, opts)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		out = append(out, result)
	}
	return out, nil
}

func (e *Engine) lexicalSearch(ctx context.Context, query string, limit int) ([]LexicalHit, error) {
	rows, err := e.store.FTSSearch(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	hits := make([]LexicalHit, 0, len(rows))
	for _, r := range rows {
		hits = append(hits, LexicalHit{SymbolID: r.SymbolID, Score: r.Score})
	}
	return hits, nil
}

func (e *Engine) semanticSearch(ctx context.Context, query string, limit int) ([]SemanticHit, error) {
	if e.vectors == nil {
		return nil, nil
	}
	vec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, cerrors.InternalError("failed to embed query", err)
	}
	rows, err := e.vectors.Search(ctx, vec, limit)
	if err != nil {
		if _, ok := err.(store.ErrDimensionMismatch); ok {
			return nil, nil // degrade to lexical-only rather than fail the whole query
		}
		return nil, err
	}
	hits := make([]SemanticHit, 0, len(rows))
	for _, r := range rows {
		symbolID, ok := store.SymbolIDFromVectorID(r.ID)
		if !ok {
			continue
		}
		hits = append(hits, SemanticHit{SymbolID: symbolID, Score: float64(r.Score)})
	}
	return hits, nil
}

// hydrate turns a fused symbol id into a read-through Result: look up
// the symbol row, filter by language/kind/scope, and read its span
// (padded, or reduced to a skeleton) from disk.
func (e *Engine) hydrate(ctx context.Context, f fused, opts Options) (Result, bool, error) {
	sym, filePath, language, err := e.lookupSymbol(ctx, f.SymbolID)
	if err != nil {
		return Result{}, false, err
	}
	if sym == nil {
		return Result{}, false, nil
	}
	if opts.Language != "" && language != opts.Language {
		return Result{}, false, nil
	}
	if opts.Kind != "" && sym.Kind != opts.Kind {
		return Result{}, false, nil
	}
	if len(opts.Scopes) > 0 && !withinAnyScope(filePath, opts.Scopes) {
		return Result{}, false, nil
	}

	content, err := e.readSpan(filepath.Join(e.root, filePath), sym.StartLine, sym.EndLine, opts)
	if err != nil {
		content = "" // best-effort: a missing/unreadable file doesn't sink the whole result set
	}

	return Result{
		SymbolID:    sym.ID,
		FileID:      sym.FileID,
		FilePath:    filePath,
		Name:        sym.Name,
		Kind:        sym.Kind,
		StartLine:   sym.StartLine,
		EndLine:     sym.EndLine,
		Signature:   sym.Signature,
		DocFirst:    sym.DocFirst,
		Content:     content,
		Score:       f.RRFScore,
		LexicalRank: f.LexicalRank,
		VectorRank:  f.VectorRank,
		InBothLists: f.InBothLists,
	}, true, nil
}

func (e *Engine) lookupSymbol(ctx context.Context, symbolID int64) (*store.StoredSymbol, string, string, error) {
	return e.store.GetSymbolByID(ctx, symbolID)
}

func withinAnyScope(path string, scopes []string) bool {
	for _, scope := range scopes {
		if strings.HasPrefix(path, scope) {
			return true
		}
	}
	return false
}

// readSpan reads lines [start-pad, end+pad] (1-indexed, inclusive) from
// path. When opts.Skeleton is set, only the signature/doc is returned
// and the padded body is skipped.
func (e *Engine) readSpan(path string, start, end int, opts Options) (string, error) {
	if opts.Skeleton {
		return "", nil // caller falls back to Signature/DocFirst
	}

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	lo := start - opts.PadLines
	if lo < 1 {
		lo = 1
	}
	hi := end + opts.PadLines

	var b strings.Builder
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if line < lo {
			continue
		}
		if line > hi {
			break
		}
		b.WriteString(scanner.Text())
		b.WriteByte('\n')
	}
	return b.String(), scanner.Err()
}
