package build

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/cerberus-code/cerberus/internal/cerrors"
	"github.com/cerberus-code/cerberus/internal/embed"
	"github.com/cerberus-code/cerberus/internal/parse"
	"github.com/cerberus-code/cerberus/internal/resolve"
	"github.com/cerberus-code/cerberus/internal/scanner"
	"github.com/cerberus-code/cerberus/internal/store"
	"github.com/cerberus-code/cerberus/pkg/cerberus/model"
)

// Config configures a Builder.
type Config struct {
	// RootDir is the project root to scan and resolve relative paths against.
	RootDir string

	// ExcludePatterns are additional glob-style exclusions, on top of
	// .gitignore (which is always honored).
	ExcludePatterns []string

	// MaxFileSize caps how large a file the builder will read. Defaults
	// to DefaultMaxFileSize.
	MaxFileSize int64

	Store    *store.Store
	Vector   *store.VectorStore
	Embedder embed.Embedder
}

// Builder runs the full index build pipeline and exposes the single-file
// operations (indexFile/RemoveFile) that the incremental paths and the
// watcher coordinator build on.
type Builder struct {
	cfg Config

	registry    *parse.LanguageRegistry
	astParser   *parse.ASTParser
	extractor   *parse.Extractor
	regexParser *parse.RegexParser
	resolver    *resolve.Resolver
}

// New builds a Builder over the given store/vector/embedder triple.
func New(cfg Config) (*Builder, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("build: store is required")
	}
	if cfg.Vector == nil {
		return nil, fmt.Errorf("build: vector store is required")
	}
	if cfg.Embedder == nil {
		return nil, fmt.Errorf("build: embedder is required")
	}
	if cfg.MaxFileSize == 0 {
		cfg.MaxFileSize = DefaultMaxFileSize
	}

	resolver, err := resolve.New(cfg.Store)
	if err != nil {
		return nil, err
	}

	registry := parse.DefaultRegistry()
	return &Builder{
		cfg:         cfg,
		registry:    registry,
		astParser:   parse.NewASTParserWithRegistry(registry),
		extractor:   parse.NewExtractorWithRegistry(registry),
		regexParser: parse.NewRegexParser(),
		resolver:    resolver,
	}, nil
}

// Close releases the tree-sitter parser.
func (b *Builder) Close() {
	b.astParser.Close()
}

// Build runs a full, from-scratch index build over the project tree.
func (b *Builder) Build(ctx context.Context) (*Stats, error) {
	start := time.Now()
	stats := &Stats{}

	files, err := b.scan(ctx)
	if err != nil {
		return nil, err
	}

	var indexed []indexedFile
	for _, f := range files {
		select {
		case <-ctx.Done():
			return nil, cerrors.Cancelled(ctx.Err())
		default:
		}

		fileID, symCount, err := b.indexFile(ctx, f.Path)
		if err != nil {
			slog.Warn("build: failed to index file", slog.String("path", f.Path), slog.String("error", err.Error()))
			stats.Warnings++
			continue
		}
		if fileID == 0 {
			stats.FilesSkipped++
			continue
		}
		indexed = append(indexed, indexedFile{ID: fileID, Path: f.Path})
		stats.FilesIndexed++
		stats.Symbols += symCount
	}

	fileIDs := make([]int64, len(indexed))
	for i, f := range indexed {
		fileIDs[i] = f.ID
	}

	if err := b.resolveAll(ctx, fileIDs); err != nil {
		return nil, err
	}
	if err := b.embedAndIndexAll(ctx, indexed); err != nil {
		return nil, err
	}

	if err := b.cfg.Store.SetMetadata(ctx, store.MetaKeyLastBuildAt, time.Now().UTC().Format(time.RFC3339)); err != nil {
		slog.Warn("build: failed to record last build time", slog.String("error", err.Error()))
	}

	stats.Duration = time.Since(start)
	slog.Info("build_complete",
		slog.Int("files", stats.FilesIndexed),
		slog.Int("symbols", stats.Symbols),
		slog.Int("skipped", stats.FilesSkipped),
		slog.Int("warnings", stats.Warnings),
		slog.String("duration", stats.Duration.String()))
	return stats, nil
}

func (b *Builder) scan(ctx context.Context) ([]*scanner.FileDescriptor, error) {
	s, err := scanner.New()
	if err != nil {
		return nil, fmt.Errorf("build: failed to create scanner: %w", err)
	}

	results, err := s.Scan(ctx, &scanner.ScanOptions{
		RootDir:          b.cfg.RootDir,
		ExcludePatterns:  b.cfg.ExcludePatterns,
		RespectGitignore: true,
		Workers:          runtime.NumCPU(),
	})
	if err != nil {
		return nil, fmt.Errorf("build: failed to start scan: %w", err)
	}

	var files []*scanner.FileDescriptor
	for result := range results {
		if result.Error != nil {
			slog.Debug("build: scan error", slog.String("error", result.Error.Error()))
			continue
		}
		if result.File == nil {
			continue
		}
		files = append(files, result.File)
	}
	return files, nil
}

// indexFile reads, parses, and persists one file's symbols and
// unresolved facts. It returns (0, 0, nil) when the file is skipped
// (symlink, oversized, binary, or not a supported language) rather than
// treating those as errors — mirroring the teacher coordinator's
// graceful-skip behavior for the same cases.
func (b *Builder) indexFile(ctx context.Context, relPath string) (int64, int, error) {
	absPath := filepath.Join(b.cfg.RootDir, relPath)

	info, err := os.Lstat(absPath)
	if err != nil {
		return 0, 0, fmt.Errorf("build: failed to stat %s: %w", relPath, err)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return 0, 0, nil
	}
	maxSize := b.cfg.MaxFileSize
	if maxSize == 0 {
		maxSize = DefaultMaxFileSize
	}
	if info.Size() > maxSize {
		slog.Warn("build: skipping oversized file", slog.String("path", relPath), slog.Int64("size", info.Size()))
		return 0, 0, nil
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return 0, 0, fmt.Errorf("build: failed to read %s: %w", relPath, err)
	}
	if isBinaryContent(content) {
		return 0, 0, nil
	}

	language := scanner.DetectLanguage(relPath)
	if language == "" {
		return 0, 0, nil
	}

	result := b.parseFile(ctx, content, language)

	file := &model.File{
		Path:        relPath,
		AbsPath:     absPath,
		Size:        info.Size(),
		ModTime:     info.ModTime(),
		ContentHash: hashContent(content),
		Language:    language,
		IndexedAt:   time.Now(),
	}

	var fileID int64
	err = b.cfg.Store.Tx(ctx, func(tx *sql.Tx) error {
		id, err := store.WriteFile(ctx, tx, file)
		if err != nil {
			return err
		}
		fileID = id

		if err := store.WriteSymbolsBatch(ctx, tx, fileID, convertSymbols(result.Symbols)); err != nil {
			return err
		}
		if err := store.WriteImportsBatch(ctx, tx, fileID, convertImports(result.Imports)); err != nil {
			return err
		}
		if err := store.WriteImportLinksBatch(ctx, tx, fileID, convertImportLinks(result.ImportLinks)); err != nil {
			return err
		}
		if err := store.WriteCallsBatch(ctx, tx, fileID, convertCalls(result.Calls)); err != nil {
			return err
		}
		if err := store.WriteMethodCallsBatch(ctx, tx, fileID, convertMethodCalls(result.MethodCalls)); err != nil {
			return err
		}
		return store.WriteTypeInfosBatch(ctx, tx, fileID, convertTypeInfos(result.TypeInfos))
	})
	if err != nil {
		return 0, 0, err
	}

	return fileID, len(result.Symbols), nil
}

// resolveAll runs the Resolution Engine over every newly-written file and
// persists the resulting SymbolReference edges in one transaction.
func (b *Builder) resolveAll(ctx context.Context, fileIDs []int64) error {
	var all []model.SymbolReference
	for _, fileID := range fileIDs {
		refs, err := b.resolver.ResolveFile(ctx, fileID)
		if err != nil {
			return err
		}
		all = append(all, refs...)
	}
	if len(all) == 0 {
		return nil
	}
	return b.cfg.Store.Tx(ctx, func(tx *sql.Tx) error {
		return store.WriteSymbolReferencesBatch(ctx, tx, all)
	})
}

// isBinaryContent checks the first 512 bytes for a NUL byte.
func isBinaryContent(content []byte) bool {
	checkLen := 512
	if len(content) < checkLen {
		checkLen = len(content)
	}
	for i := 0; i < checkLen; i++ {
		if content[i] == 0 {
			return true
		}
	}
	return false
}

func hashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

func convertSymbols(in []parse.Symbol) []model.Symbol {
	out := make([]model.Symbol, len(in))
	for i, s := range in {
		out[i] = model.Symbol{
			Name:      s.Name,
			Kind:      model.SymbolKind(s.Kind),
			StartLine: s.StartLine,
			EndLine:   s.EndLine,
			Signature: s.Signature,
			DocFirst:  s.DocFirst,
			Metadata:  s.Metadata,
		}
	}
	return out
}

func convertImports(in []parse.ImportReference) []model.ImportReference {
	out := make([]model.ImportReference, len(in))
	for i, imp := range in {
		out[i] = model.ImportReference{Module: imp.Module, Line: imp.Line}
	}
	return out
}

func convertImportLinks(in []parse.ImportLink) []model.ImportLink {
	out := make([]model.ImportLink, len(in))
	for i, link := range in {
		out[i] = model.ImportLink{Module: link.Module, ImportedSymbols: link.ImportedSymbols, Line: link.Line}
	}
	return out
}

func convertCalls(in []parse.CallReference) []model.CallReference {
	out := make([]model.CallReference, len(in))
	for i, c := range in {
		out[i] = model.CallReference{CalleeName: c.CalleeName, Line: c.Line}
	}
	return out
}

func convertMethodCalls(in []parse.MethodCall) []model.MethodCall {
	out := make([]model.MethodCall, len(in))
	for i, c := range in {
		out[i] = model.MethodCall{Line: c.Line, Receiver: c.Receiver, Method: c.Method}
	}
	return out
}

func convertTypeInfos(in []parse.TypeInfo) []model.TypeInfo {
	out := make([]model.TypeInfo, len(in))
	for i, t := range in {
		out[i] = model.TypeInfo{Name: t.Name, Line: t.Line, TypeAnnot: t.TypeAnnot, Inferred: t.Inferred}
	}
	return out
}
