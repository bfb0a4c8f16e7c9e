package build

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/cerberus-code/cerberus/internal/gitignore"
	"github.com/cerberus-code/cerberus/internal/scanner"
	"github.com/cerberus-code/cerberus/internal/store"
	"github.com/cerberus-code/cerberus/internal/watcher"
)

// Coordinator applies live watcher.FileEvent batches to a Builder,
// including the gitignore-aware reconciliation strategies the teacher's
// index coordinator uses: a nested .gitignore only rescans its subtree, a
// root .gitignore that only gained patterns needs no rescan at all, and
// only a root .gitignore that lost patterns forces a full reconciliation.
type Coordinator struct {
	builder *Builder
	scanner *scanner.Scanner

	mu sync.Mutex
}

// NewCoordinator wraps builder with live file-event handling. scanner may
// be nil, in which case gitignore/config-change reconciliation is skipped
// (events are still applied file-by-file).
func NewCoordinator(builder *Builder, sc *scanner.Scanner) *Coordinator {
	return &Coordinator{builder: builder, scanner: sc}
}

// HandleEvents applies a batch of file events, logging and continuing
// past any single event's failure rather than aborting the batch.
func (c *Coordinator) HandleEvents(ctx context.Context, events []watcher.FileEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, event := range events {
		if err := c.handleEvent(ctx, event); err != nil {
			slog.Warn("coordinator: failed to process file event",
				slog.String("path", event.Path),
				slog.String("operation", event.Operation.String()),
				slog.String("error", err.Error()))
		}
	}
}

func (c *Coordinator) handleEvent(ctx context.Context, event watcher.FileEvent) error {
	if event.IsDir {
		return nil
	}

	switch event.Operation {
	case watcher.OpCreate, watcher.OpModify:
		return c.builder.IndexFile(ctx, event.Path)
	case watcher.OpDelete:
		return c.builder.RemoveFile(ctx, event.Path)
	case watcher.OpRename:
		return nil // the watcher emits rename as delete+create
	case watcher.OpGitignoreChange:
		return c.handleGitignoreChange(ctx, event.Path)
	case watcher.OpConfigChange:
		return c.handleConfigChange(ctx)
	default:
		return nil
	}
}

type reconcileType int

const (
	reconcileFull reconcileType = iota
	reconcileSubtree
	reconcilePatternDiff
)

type reconcileStrategy struct {
	Type          reconcileType
	Scope         string // subtree directory, for reconcileSubtree
	AddedPatterns []string
}

// handleGitignoreChange reconciles the index when a .gitignore changes at
// runtime, picking the cheapest strategy that's still correct.
func (c *Coordinator) handleGitignoreChange(ctx context.Context, gitignorePath string) error {
	if c.scanner == nil {
		slog.Warn("coordinator: gitignore change detected but no scanner configured, skipping reconciliation")
		return nil
	}
	c.scanner.InvalidateGitignoreCache()

	strategy := c.determineStrategy(ctx, gitignorePath)

	var err error
	switch strategy.Type {
	case reconcileSubtree:
		err = c.reconcileSubtree(ctx, strategy.Scope)
	case reconcilePatternDiff:
		err = c.reconcilePatternDiff(ctx, strategy.AddedPatterns)
	default:
		err = c.reconcileFull(ctx)
	}
	if err != nil {
		return err
	}

	newHash, hashErr := ComputeGitignoreHash(c.builder.cfg.RootDir)
	if hashErr != nil {
		slog.Warn("coordinator: failed to compute new gitignore hash", slog.String("error", hashErr.Error()))
		return nil
	}
	if err := c.builder.cfg.Store.SetMetadata(ctx, store.MetaKeyGitignoreHash, newHash); err != nil {
		slog.Warn("coordinator: failed to save gitignore hash", slog.String("error", err.Error()))
	}
	return nil
}

func (c *Coordinator) determineStrategy(ctx context.Context, gitignorePath string) reconcileStrategy {
	relPath, err := filepath.Rel(c.builder.cfg.RootDir, gitignorePath)
	if err != nil {
		return reconcileStrategy{Type: reconcileFull}
	}

	dir := filepath.Dir(relPath)
	if dir != "." && dir != "" {
		return reconcileStrategy{Type: reconcileSubtree, Scope: dir}
	}

	oldContent, err := c.builder.cfg.Store.GetMetadata(ctx, store.MetaKeyGitignoreContent)
	if err != nil || oldContent == "" {
		if newContent, readErr := os.ReadFile(gitignorePath); readErr == nil && len(newContent) > 0 {
			_ = c.builder.cfg.Store.SetMetadata(ctx, store.MetaKeyGitignoreContent, string(newContent))
		}
		return reconcileStrategy{Type: reconcileFull}
	}

	newContent, err := os.ReadFile(gitignorePath)
	if err != nil {
		_ = c.builder.cfg.Store.SetMetadata(ctx, store.MetaKeyGitignoreContent, "")
		return reconcileStrategy{Type: reconcileFull}
	}

	added, removed := gitignore.DiffPatterns(oldContent, string(newContent))
	_ = c.builder.cfg.Store.SetMetadata(ctx, store.MetaKeyGitignoreContent, string(newContent))

	if len(added) > 0 && len(removed) == 0 {
		return reconcileStrategy{Type: reconcilePatternDiff, AddedPatterns: added}
	}
	if len(removed) > 0 {
		return reconcileStrategy{Type: reconcileFull}
	}
	return reconcileStrategy{Type: reconcilePatternDiff, AddedPatterns: nil}
}

// reconcilePatternDiff handles a root .gitignore that only gained
// patterns: no filesystem scan is needed, since a file that was already
// indexed can only need removing, never adding.
func (c *Coordinator) reconcilePatternDiff(ctx context.Context, addedPatterns []string) error {
	if len(addedPatterns) == 0 {
		return nil
	}

	tracked, err := c.builder.cfg.Store.ListFiles(ctx)
	if err != nil {
		return fmt.Errorf("coordinator: failed to list tracked files: %w", err)
	}

	var removed int
	for _, f := range tracked {
		if !gitignore.MatchesAnyPattern(f.Path, addedPatterns) {
			continue
		}
		if err := c.builder.RemoveFile(ctx, f.Path); err != nil {
			slog.Warn("coordinator: failed to remove newly-ignored file", slog.String("path", f.Path), slog.String("error", err.Error()))
			continue
		}
		removed++
	}
	slog.Info("coordinator: pattern diff reconciliation complete", slog.Int("files_removed", removed))
	return nil
}

// reconcileSubtree rescans only the directory under a changed nested
// .gitignore, adding newly-unignored files and removing newly-ignored ones.
func (c *Coordinator) reconcileSubtree(ctx context.Context, subtreePath string) error {
	tracked, err := c.builder.cfg.Store.ListFiles(ctx)
	if err != nil {
		return fmt.Errorf("coordinator: failed to list tracked files: %w", err)
	}
	trackedUnder := make(map[string]bool)
	prefix := subtreePath + string(filepath.Separator)
	for _, f := range tracked {
		if f.Path == subtreePath || len(f.Path) > len(prefix) && f.Path[:len(prefix)] == prefix {
			trackedUnder[f.Path] = true
		}
	}

	results, err := c.scanner.ScanSubtree(ctx, &scanner.ScanOptions{
		RootDir:          c.builder.cfg.RootDir,
		RespectGitignore: true,
	}, subtreePath)
	if err != nil {
		return fmt.Errorf("coordinator: failed to scan subtree %s: %w", subtreePath, err)
	}

	shouldBeTracked := make(map[string]bool)
	for result := range results {
		if result.Error != nil || result.File == nil {
			continue
		}
		shouldBeTracked[result.File.Path] = true
	}

	var added, removed int
	for path := range trackedUnder {
		if !shouldBeTracked[path] {
			if err := c.builder.RemoveFile(ctx, path); err == nil {
				removed++
			}
		}
	}
	for path := range shouldBeTracked {
		if !trackedUnder[path] {
			if err := c.builder.IndexFile(ctx, path); err == nil {
				added++
			}
		}
	}

	slog.Info("coordinator: subtree reconciliation complete",
		slog.String("subtree", subtreePath), slog.Int("added", added), slog.Int("removed", removed))
	return nil
}

// reconcileFull rescans the entire tree against current gitignore rules.
func (c *Coordinator) reconcileFull(ctx context.Context) error {
	stats, err := c.builder.Reconcile(ctx)
	if err != nil {
		return err
	}
	slog.Info("coordinator: full reconciliation complete",
		slog.Int("indexed", stats.FilesIndexed), slog.Int("removed", stats.FilesRemoved))
	return nil
}

// handleConfigChange re-reconciles after the project config file changes.
// A full reload of exclude patterns requires a process restart; this only
// picks up files that should now be in/out of scope under gitignore rules.
func (c *Coordinator) handleConfigChange(ctx context.Context) error {
	if c.scanner == nil {
		return nil
	}
	c.scanner.InvalidateGitignoreCache()
	return c.reconcileFull(ctx)
}

// ReconcileOnStartup compares the cached gitignore hash against the
// current one and runs a full reconciliation only if something changed
// while the process was stopped.
func (c *Coordinator) ReconcileOnStartup(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	cachedHash, _ := c.builder.cfg.Store.GetMetadata(ctx, store.MetaKeyGitignoreHash)
	currentHash, err := ComputeGitignoreHash(c.builder.cfg.RootDir)
	if err != nil {
		slog.Warn("coordinator: failed to compute gitignore hash", slog.String("error", err.Error()))
		return nil
	}
	if cachedHash == currentHash && cachedHash != "" {
		return nil
	}

	if err := c.reconcileFull(ctx); err != nil {
		return fmt.Errorf("coordinator: startup reconciliation failed: %w", err)
	}
	if err := c.builder.cfg.Store.SetMetadata(ctx, store.MetaKeyGitignoreHash, currentHash); err != nil {
		slog.Warn("coordinator: failed to save gitignore hash", slog.String("error", err.Error()))
	}
	return nil
}

// ComputeGitignoreHash hashes every .gitignore file under root
// (path:content, sorted by path) into one deterministic digest.
func ComputeGitignoreHash(root string) (string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			name := d.Name()
			if name != "." && (name[0] == '.' || name == "node_modules" || name == "vendor") {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() == ".gitignore" {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("coordinator: failed to walk directory: %w", err)
	}
	sort.Strings(paths)

	h := sha256.New()
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		relPath, _ := filepath.Rel(root, path)
		h.Write([]byte(relPath))
		h.Write([]byte(":"))
		h.Write(content)
		h.Write([]byte("\n"))
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
