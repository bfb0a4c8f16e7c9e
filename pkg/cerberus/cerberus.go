// Package cerberus is the public library surface over the code-context
// engine: building and loading an index, keeping it current, hybrid
// search, symbol lookup, span reads, mutation, and call-graph queries.
// Every call takes a context.Context first and returns a typed result
// plus an error — nothing here panics across the package boundary.
package cerberus

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/cerberus-code/cerberus/internal/build"
	"github.com/cerberus-code/cerberus/internal/embed"
	"github.com/cerberus-code/cerberus/internal/mutate"
	"github.com/cerberus-code/cerberus/internal/retrieve"
	"github.com/cerberus-code/cerberus/internal/scanner"
	"github.com/cerberus-code/cerberus/internal/store"
)

// IndexHandle is a live handle to an open index: one relational Index
// Store, one Vector Store, and the components built over them (builder,
// retriever, mutator). Every exported method is safe to call
// concurrently; the underlying stores serialize writes internally.
type IndexHandle struct {
	rootDir   string
	outputDir string

	store    *store.Store
	vector   *store.VectorStore
	embedder embed.Embedder

	builder     *build.Builder
	coordinator *build.Coordinator
	retriever   *retrieve.Engine
	mutator     *mutate.Engine
}

// Options configures BuildIndex and LoadIndex.
type Options struct {
	// ExcludePatterns are extra glob exclusions on top of .gitignore.
	ExcludePatterns []string
	// Embedder overrides the default embedding backend. When nil,
	// BuildIndex uses the static, network-free default embedder — the
	// host (CLI/MCP layer) is responsible for selecting a model-backed
	// embedder if it wants one; the core itself never reads environment
	// variables to decide.
	Embedder embed.Embedder
}

func dbPath(outputDir string) string     { return filepath.Join(outputDir, "index.db") }
func vectorPath(outputDir string) string { return filepath.Join(outputDir, "vectors.bin") }
func backupsPath(outputDir string) string { return filepath.Join(outputDir, "backups") }
func ledgerPath(outputDir string) string  { return filepath.Join(outputDir, "ledger.db") }

// BuildIndex runs a full, from-scratch index build over root, persisting
// the result under outputDir per the layout documented in the package's
// external interface (index.db, vectors.bin, ledger.db, backups/).
func BuildIndex(ctx context.Context, root, outputDir string, opts Options) (*IndexHandle, *build.Stats, error) {
	h, err := openHandle(ctx, root, outputDir, opts, true)
	if err != nil {
		return nil, nil, err
	}

	stats, err := h.builder.Build(ctx)
	if err != nil {
		_ = h.Close()
		return nil, nil, err
	}
	if err := h.persist(); err != nil {
		_ = h.Close()
		return nil, nil, err
	}
	return h, stats, nil
}

// LoadIndex opens a previously built index from outputDir.
func LoadIndex(ctx context.Context, outputDir string, opts Options) (*IndexHandle, error) {
	root, err := loadProjectRoot(ctx, outputDir)
	if err != nil {
		return nil, err
	}
	h, err := openHandle(ctx, root, outputDir, opts, false)
	if err != nil {
		return nil, err
	}
	if err := h.vector.Load(vectorPath(outputDir)); err != nil {
		_ = h.Close()
		return nil, fmt.Errorf("cerberus: failed to load vector index: %w", err)
	}
	return h, nil
}

// loadProjectRoot reads the stored project root out of an existing index
// so LoadIndex doesn't require the caller to repeat it.
func loadProjectRoot(ctx context.Context, outputDir string) (string, error) {
	s, err := store.Open(dbPath(outputDir))
	if err != nil {
		return "", fmt.Errorf("cerberus: failed to open index at %s: %w", outputDir, err)
	}
	defer s.Close()

	root, err := s.GetMetadata(ctx, store.MetaKeyProjectRoot)
	if err != nil {
		return "", err
	}
	if root == "" {
		return "", fmt.Errorf("cerberus: index at %s has no recorded project root", outputDir)
	}
	return root, nil
}

func openHandle(ctx context.Context, root, outputDir string, opts Options, fresh bool) (*IndexHandle, error) {
	s, err := store.Open(dbPath(outputDir))
	if err != nil {
		return nil, fmt.Errorf("cerberus: failed to open index store: %w", err)
	}

	embedder := opts.Embedder
	if embedder == nil {
		embedder, err = embed.NewDefaultEmbedder(ctx)
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("cerberus: failed to create default embedder: %w", err)
		}
	}

	vec, err := store.NewVectorStore(store.DefaultVectorStoreConfig(embedder.Dimensions()))
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("cerberus: failed to create vector store: %w", err)
	}

	builder, err := build.New(build.Config{
		RootDir:         root,
		ExcludePatterns: opts.ExcludePatterns,
		Store:           s,
		Vector:          vec,
		Embedder:        embedder,
	})
	if err != nil {
		_ = vec.Close()
		_ = s.Close()
		return nil, err
	}

	mutator, err := mutate.New(mutate.Config{
		RootDir:    root,
		Store:      s,
		Builder:    builder,
		BackupDir:  backupsPath(outputDir),
		LedgerPath: ledgerPath(outputDir),
	})
	if err != nil {
		builder.Close()
		_ = vec.Close()
		_ = s.Close()
		return nil, err
	}

	sc, err := scanner.New()
	if err != nil {
		_ = mutator.Close()
		builder.Close()
		_ = vec.Close()
		_ = s.Close()
		return nil, fmt.Errorf("cerberus: failed to create scanner: %w", err)
	}

	h := &IndexHandle{
		rootDir:     root,
		outputDir:   outputDir,
		store:       s,
		vector:      vec,
		embedder:    embedder,
		builder:     builder,
		coordinator: build.NewCoordinator(builder, sc),
		retriever:   retrieve.New(s, vec, embedder, root),
		mutator:     mutator,
	}

	if fresh {
		if err := s.SetMetadata(ctx, store.MetaKeyProjectRoot, root); err != nil {
			_ = h.Close()
			return nil, err
		}
		if err := s.SetMetadata(ctx, store.MetaKeySchemaVersion, fmt.Sprintf("%d", store.CurrentSchemaVersion)); err != nil {
			_ = h.Close()
			return nil, err
		}
		if err := s.SetMetadata(ctx, store.MetaKeyEmbeddingModel, embedder.ModelName()); err != nil {
			_ = h.Close()
			return nil, err
		}
	}

	return h, nil
}

// persist flushes the vector index to disk; the relational store commits
// each write transactionally and needs no separate flush.
func (h *IndexHandle) persist() error {
	return h.vector.Save(vectorPath(h.outputDir))
}

// Close releases every resource the handle holds, after persisting the
// vector index.
func (h *IndexHandle) Close() error {
	var firstErr error
	if h.vector != nil {
		if err := h.persist(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if h.mutator != nil {
		if err := h.mutator.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if h.builder != nil {
		h.builder.Close()
	}
	if h.vector != nil {
		if err := h.vector.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if h.store != nil {
		if err := h.store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
