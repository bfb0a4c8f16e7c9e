package cerberus

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cerberus-code/cerberus/internal/store"
)

// Symbol is one named code entity, with the file it lives in.
type Symbol struct {
	Name      string
	Kind      string
	File      string
	StartLine int
	EndLine   int
	Signature string
	DocFirst  string
}

// FindSymbol returns every symbol named name across the whole index.
func (h *IndexHandle) FindSymbol(ctx context.Context, name string) ([]Symbol, error) {
	cursor := h.store.QuerySymbols(store.SymbolFilter{Name: name})

	var out []Symbol
	for {
		page, err := cursor.Next(ctx)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		for _, row := range page {
			_, path, _, err := h.store.GetSymbolByID(ctx, row.ID)
			if err != nil {
				return nil, err
			}
			out = append(out, Symbol{
				Name:      row.Name,
				Kind:      row.Kind,
				File:      path,
				StartLine: row.StartLine,
				EndLine:   row.EndLine,
				Signature: row.Signature,
				DocFirst:  row.DocFirst,
			})
		}
	}
	return out, nil
}

// Snippet is a read-through span of source text.
type Snippet struct {
	File      string
	StartLine int
	EndLine   int
	Content   string
}

// ReadRange reads lines [start, end] (1-indexed, inclusive) from file,
// padded by pad lines on each side and clamped to the file's bounds.
func (h *IndexHandle) ReadRange(ctx context.Context, file string, start, end, pad int) (Snippet, error) {
	if start < 1 {
		start = 1
	}
	if end < start {
		end = start
	}
	paddedStart := start - pad
	if paddedStart < 1 {
		paddedStart = 1
	}
	paddedEnd := end + pad

	absPath := file
	if !filepath.IsAbs(absPath) {
		absPath = filepath.Join(h.rootDir, file)
	}

	f, err := os.Open(absPath)
	if err != nil {
		return Snippet{}, fmt.Errorf("cerberus: failed to read %s: %w", file, err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo < paddedStart {
			continue
		}
		if lineNo > paddedEnd {
			break
		}
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return Snippet{}, fmt.Errorf("cerberus: failed to scan %s: %w", file, err)
	}

	actualEnd := paddedStart + len(lines) - 1
	return Snippet{
		File:      file,
		StartLine: paddedStart,
		EndLine:   actualEnd,
		Content:   strings.Join(lines, "\n"),
	}, nil
}

// GetStats returns row counts and on-disk size for the current index.
func (h *IndexHandle) GetStats(ctx context.Context) (store.Stats, error) {
	return h.store.GetStats(ctx)
}
