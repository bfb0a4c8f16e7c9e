package mutate

import (
	"context"
	"os"
	"path/filepath"

	"github.com/cerberus-code/cerberus/internal/cerrors"
	"github.com/cerberus-code/cerberus/internal/store"
)

// located is the result of resolving a Target to an exact symbol row plus
// the file's current on-disk bytes.
type located struct {
	file    *fileRecord
	symbol  store.StoredSymbol
	content []byte
}

type fileRecord struct {
	path    string // repo-relative
	absPath string
	hash    string
}

// locate resolves target to a symbol row, re-reads the file from disk,
// and enforces the optimistic lock: the file's current content hash must
// match what the index saw at the last build/incremental update.
func (e *Engine) locate(ctx context.Context, target Target) (*located, error) {
	f, err := e.cfg.Store.GetFile(ctx, target.File)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, cerrors.SymbolNotFound(target.File, target.Symbol)
	}

	absPath := filepath.Join(e.cfg.RootDir, target.File)
	content, err := os.ReadFile(absPath)
	if err != nil {
		return nil, cerrors.StoreWriteError("failed to read file for mutation", err)
	}

	currentHash := hashBytes(content)
	if currentHash != f.ContentHash {
		return nil, cerrors.OptimisticLockFailed(target.File)
	}

	candidates, err := e.candidateSymbols(ctx, f.ID, target)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, cerrors.SymbolNotFound(target.File, target.Symbol)
	}
	if len(candidates) > 1 {
		return nil, cerrors.AmbiguousSymbol(target.File, target.Symbol, len(candidates))
	}

	return &located{
		file:    &fileRecord{path: target.File, absPath: absPath, hash: currentHash},
		symbol:  candidates[0],
		content: content,
	}, nil
}

// candidateSymbols narrows matches by name, then by kind/line if given.
func (e *Engine) candidateSymbols(ctx context.Context, fileID int64, target Target) ([]store.StoredSymbol, error) {
	cursor := e.cfg.Store.QuerySymbols(store.SymbolFilter{FileID: fileID, Name: target.Symbol, Kind: target.Kind})

	var all []store.StoredSymbol
	for {
		page, err := cursor.Next(ctx)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		all = append(all, page...)
	}

	if target.Line == 0 || len(all) <= 1 {
		return all, nil
	}

	var narrowed []store.StoredSymbol
	for _, s := range all {
		if s.StartLine <= target.Line && s.EndLine >= target.Line {
			narrowed = append(narrowed, s)
		}
	}
	if len(narrowed) == 0 {
		return all, nil // line didn't narrow anything usable, surface the full ambiguity
	}
	return narrowed, nil
}
