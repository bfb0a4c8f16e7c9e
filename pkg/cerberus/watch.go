package cerberus

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cerberus-code/cerberus/internal/watcher"
)

// Watch runs the index in live mode: it reconciles any gitignore drift
// that happened while the process was stopped, then watches the project
// tree and applies each debounced batch of file events to the index
// incrementally through the same gitignore-aware reconciliation strategies
// UpdateIndex's full reconcile path uses. It blocks until ctx is
// cancelled, at which point the watcher is stopped and Watch returns nil.
func (h *IndexHandle) Watch(ctx context.Context) error {
	if err := h.coordinator.ReconcileOnStartup(ctx); err != nil {
		return fmt.Errorf("cerberus: startup reconciliation failed: %w", err)
	}

	w, err := watcher.NewHybridWatcher(watcher.DefaultOptions())
	if err != nil {
		return fmt.Errorf("cerberus: failed to create watcher: %w", err)
	}
	if err := w.Start(ctx, h.rootDir); err != nil {
		return fmt.Errorf("cerberus: failed to start watcher: %w", err)
	}
	defer func() { _ = w.Stop() }()

	for {
		select {
		case <-ctx.Done():
			return nil
		case batch, ok := <-w.Events():
			if !ok {
				return nil
			}
			h.coordinator.HandleEvents(ctx, batch)
		case werr, ok := <-w.Errors():
			if !ok {
				continue
			}
			if werr != nil {
				slog.Warn("cerberus: watcher error", slog.String("error", werr.Error()))
			}
		}
	}
}
