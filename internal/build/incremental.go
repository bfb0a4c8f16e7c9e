package build

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/cerberus-code/cerberus/internal/scanner"
)

// IndexFile (re)indexes a single file: it removes any existing facts for
// the path first (so a modification doesn't leave stale symbols behind),
// then runs the full parse/persist/resolve/embed pipeline for just that
// one file. Used by both the watcher coordinator and Reconcile.
func (b *Builder) IndexFile(ctx context.Context, relPath string) error {
	if err := b.RemoveFile(ctx, relPath); err != nil {
		slog.Debug("build: no prior index for file, treating as new", slog.String("path", relPath))
	}

	fileID, _, err := b.indexFile(ctx, relPath)
	if err != nil {
		return err
	}
	if fileID == 0 {
		return nil // skipped: symlink, oversized, binary, or unsupported language
	}

	if err := b.resolveAll(ctx, []int64{fileID}); err != nil {
		return err
	}
	return b.embedAndIndexAll(ctx, []indexedFile{{ID: fileID, Path: relPath}})
}

// RemoveFile deletes a file's symbols, facts, FTS docs, and vectors.
// Safe to call for a path that was never indexed.
func (b *Builder) RemoveFile(ctx context.Context, relPath string) error {
	vectorIDs, err := b.cfg.Store.DeleteFile(ctx, relPath)
	if err != nil {
		return fmt.Errorf("build: failed to delete file %s: %w", relPath, err)
	}
	if len(vectorIDs) == 0 {
		return nil
	}
	return b.cfg.Vector.Delete(ctx, vectorIDs)
}

// Reconcile detects files added, modified, or deleted since the last
// build by comparing the store's tracked (path, mtime, size) against a
// fresh scan of the project tree, then applies the minimal set of
// changes — mirroring the teacher coordinator's startup reconciliation,
// adapted to the relational schema's per-file tracking instead of a
// chunk-keyed metadata store.
func (b *Builder) Reconcile(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	tracked, err := b.cfg.Store.ListFiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("build: failed to list tracked files: %w", err)
	}
	trackedByPath := make(map[string]int64, len(tracked))
	trackedModTime := make(map[string]int64, len(tracked))
	trackedSize := make(map[string]int64, len(tracked))
	for _, f := range tracked {
		trackedByPath[f.Path] = f.ID
		trackedModTime[f.Path] = f.ModTime.Unix()
		trackedSize[f.Path] = f.Size
	}

	current, err := b.scan(ctx)
	if err != nil {
		return nil, err
	}
	currentByPath := make(map[string]*scanner.FileDescriptor, len(current))
	for _, f := range current {
		currentByPath[f.Path] = f
	}

	var changes []FileChange
	for path := range trackedByPath {
		cur, exists := currentByPath[path]
		if !exists {
			changes = append(changes, FileChange{Path: path, Type: ChangeDeleted})
			continue
		}
		if cur.ModTime.Unix() != trackedModTime[path] || cur.Size != trackedSize[path] {
			changes = append(changes, FileChange{Path: path, Type: ChangeModified})
		}
	}
	for path := range currentByPath {
		if _, exists := trackedByPath[path]; !exists {
			changes = append(changes, FileChange{Path: path, Type: ChangeAdded})
		}
	}

	// Deterministic order: deletions, then modifications, then additions,
	// alphabetical within each group.
	sort.Slice(changes, func(i, j int) bool {
		if changes[i].Type != changes[j].Type {
			return changes[i].Type > changes[j].Type
		}
		return changes[i].Path < changes[j].Path
	})

	for _, ch := range changes {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		default:
		}

		switch ch.Type {
		case ChangeDeleted:
			if err := b.RemoveFile(ctx, ch.Path); err != nil {
				slog.Warn("build: failed to remove deleted file", slog.String("path", ch.Path), slog.String("error", err.Error()))
				stats.Warnings++
				continue
			}
			stats.FilesRemoved++
		case ChangeModified, ChangeAdded:
			if err := b.IndexFile(ctx, ch.Path); err != nil {
				slog.Warn("build: failed to index changed file", slog.String("path", ch.Path), slog.String("error", err.Error()))
				stats.Warnings++
				continue
			}
			stats.FilesIndexed++
		}
	}

	if len(changes) > 0 {
		slog.Info("reconcile_complete",
			slog.Int("indexed", stats.FilesIndexed),
			slog.Int("removed", stats.FilesRemoved),
			slog.Int("warnings", stats.Warnings))
	}

	return stats, nil
}
