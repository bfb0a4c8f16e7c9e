package build

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cerberus-code/cerberus/internal/store"
	"github.com/cerberus-code/cerberus/pkg/cerberus/model"
)

// indexedFile is a file this build pass wrote, carried forward so the
// embedding pass can read back source spans without re-querying the
// store for a path it already resolved once.
type indexedFile struct {
	ID   int64
	Path string
}

// embedAndIndexAll builds the FTS and vector indices for every symbol
// belonging to files: it reads back each symbol's source span, indexes
// it lexically (store.IndexFTS), embeds it in embedBatchSize batches,
// and links the resulting vector to its symbol row.
func (b *Builder) embedAndIndexAll(ctx context.Context, files []indexedFile) error {
	for _, f := range files {
		if err := b.embedAndIndexFile(ctx, f.ID, f.Path); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) embedAndIndexFile(ctx context.Context, fileID int64, relPath string) error {
	cursor := b.cfg.Store.QuerySymbols(store.SymbolFilter{FileID: fileID})
	var symbols []store.StoredSymbol
	for {
		page, err := cursor.Next(ctx)
		if err != nil {
			return err
		}
		if len(page) == 0 {
			break
		}
		symbols = append(symbols, page...)
	}
	if len(symbols) == 0 {
		return nil
	}

	absPath := filepath.Join(b.cfg.RootDir, relPath)
	texts := make([]string, len(symbols))
	for i, sym := range symbols {
		texts[i] = symbolEmbeddingText(absPath, sym)
	}

	modelName := b.cfg.Embedder.ModelName()

	for start := 0; start < len(symbols); start += embedBatchSize {
		end := min(start+embedBatchSize, len(symbols))
		batchSymbols := symbols[start:end]
		batchTexts := texts[start:end]

		vectors, err := b.cfg.Embedder.EmbedBatch(ctx, batchTexts)
		if err != nil {
			return fmt.Errorf("build: failed to embed batch for %s: %w", relPath, err)
		}

		ids := make([]string, len(batchSymbols))
		for i, sym := range batchSymbols {
			ids[i] = store.VectorIDForSymbol(sym.ID)
		}
		if err := b.cfg.Vector.Add(ctx, ids, vectors); err != nil {
			return fmt.Errorf("build: failed to add vectors for %s: %w", relPath, err)
		}

		err = b.cfg.Store.Tx(ctx, func(tx *sql.Tx) error {
			for i, sym := range batchSymbols {
				if err := store.IndexFTS(ctx, tx, sym.ID, batchTexts[i]); err != nil {
					return err
				}
				if err := store.WriteEmbeddingMetadata(ctx, tx, model.EmbeddingMetadata{
					SymbolID: sym.ID,
					VectorID: ids[i],
					Model:    modelName,
				}); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// symbolEmbeddingText builds the text handed to the embedder and the FTS
// index. The signature and doc comment carry the most signal per token;
// the body is appended when the file is still readable, so a symbol
// whose source has since moved still gets a usable, if degraded, entry.
func symbolEmbeddingText(absPath string, sym store.StoredSymbol) string {
	var sb strings.Builder
	if sym.DocFirst != "" {
		sb.WriteString(sym.DocFirst)
		sb.WriteString("\n")
	}
	sb.WriteString(sym.Signature)

	if body := readSpan(absPath, sym.StartLine, sym.EndLine); body != "" {
		sb.WriteString("\n")
		sb.WriteString(body)
	}
	return sb.String()
}

// readSpan reads lines [start, end] (1-indexed, inclusive) from path,
// returning "" on any error.
func readSpan(path string, start, end int) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var lines []string
	line := 0
	for sc.Scan() {
		line++
		if line < start {
			continue
		}
		if line > end {
			break
		}
		lines = append(lines, sc.Text())
	}
	return strings.Join(lines, "\n")
}
