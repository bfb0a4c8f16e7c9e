package cerberus

import (
	"context"
	"os"
	"path/filepath"

	"github.com/cerberus-code/cerberus/internal/build"
)

func fileExists(rootDir, relPath string) bool {
	_, err := os.Stat(filepath.Join(rootDir, relPath))
	return err == nil
}

// UpdateReport summarizes one UpdateIndex call.
type UpdateReport = build.Stats

// UpdateIndex brings the index back in sync with the project tree. When
// changes is empty, it runs a full mtime/size reconciliation scan; when
// changes names specific repo-relative paths, only those files are
// re-indexed (a path that no longer exists on disk is treated as a
// deletion), which is the cheaper path for a caller that already knows
// what changed (e.g. from its own file-watcher events).
func (h *IndexHandle) UpdateIndex(ctx context.Context, changes []string) (*UpdateReport, error) {
	if len(changes) == 0 {
		stats, err := h.builder.Reconcile(ctx)
		if err != nil {
			return nil, err
		}
		if err := h.persist(); err != nil {
			return nil, err
		}
		return stats, nil
	}

	stats := &build.Stats{}
	for _, path := range changes {
		if !fileExists(h.rootDir, path) {
			if err := h.builder.RemoveFile(ctx, path); err != nil {
				return nil, err
			}
			stats.FilesRemoved++
			continue
		}
		if err := h.builder.IndexFile(ctx, path); err != nil {
			return nil, err
		}
		stats.FilesIndexed++
	}
	if err := h.persist(); err != nil {
		return nil, err
	}
	return stats, nil
}
