package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cerberus-code/cerberus/internal/config"
	"github.com/cerberus-code/cerberus/internal/embed"
	"github.com/cerberus-code/cerberus/pkg/cerberus"
)

// dataDirName is the per-project directory holding the index, vector
// store, ledger, and backups, mirroring the project config file's own
// ".cerberus" naming convention.
const dataDirName = ".cerberus"

// projectRoot finds the enclosing project root, falling back to the
// working directory when no project markers are found.
func projectRoot() (string, error) {
	root, err := config.FindProjectRoot(".")
	if err != nil {
		return os.Getwd()
	}
	return root, nil
}

// dataDir returns the per-project output directory under root.
func dataDir(root string) string {
	return filepath.Join(root, dataDirName)
}

// indexExists reports whether an index has already been built under dir.
func indexExists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, "index.db"))
	return err == nil
}

// loadProjectConfig loads the layered project configuration, falling
// back to defaults on error so a missing or malformed config file never
// blocks a command from running.
func loadProjectConfig(root string) *config.Config {
	cfg, err := config.Load(root)
	if err != nil {
		return config.NewConfig()
	}
	return cfg
}

// newConfiguredEmbedder builds the embedder a command should use: the
// static embedder when offline is requested, otherwise the provider
// named by cfg.Embeddings.
func newConfiguredEmbedder(ctx context.Context, cfg *config.Config, offline bool) (embed.Embedder, error) {
	if offline {
		return embed.NewStaticEmbedder768(), nil
	}
	provider := embed.ParseProvider(cfg.Embeddings.Provider)
	return embed.NewEmbedder(ctx, provider, cfg.Embeddings.Model)
}

// openIndex loads an existing index at root, erroring with a hint to run
// 'cerberus build' first if none exists.
func openIndex(ctx context.Context, root string, offline bool) (*cerberus.IndexHandle, error) {
	dir := dataDir(root)
	if !indexExists(dir) {
		return nil, fmt.Errorf("no index found at %s; run 'cerberus build' first", dir)
	}

	cfg := loadProjectConfig(root)
	embedder, err := newConfiguredEmbedder(ctx, cfg, offline)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	h, err := cerberus.LoadIndex(ctx, dir, cerberus.Options{Embedder: embedder})
	if err != nil {
		return nil, fmt.Errorf("failed to load index: %w", err)
	}
	return h, nil
}
