package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cerberus-code/cerberus/internal/output"
)

func newWatchCmd() *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the index in sync as files change",
		Long: `Watch reconciles any drift since the last run, then watches the
project tree for changes and applies each batch incrementally — the
same gitignore-aware reconciliation 'cerberus update' runs on demand,
run continuously until interrupted.

Examples:
  cerberus watch
  cerberus watch --offline`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd.Context(), cmd, offline)
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "Use the static embedder directly, without the query cache")

	return cmd
}

func runWatch(ctx context.Context, cmd *cobra.Command, offline bool) error {
	out := output.New(cmd.OutOrStdout())

	root, err := projectRoot()
	if err != nil {
		return fmt.Errorf("failed to resolve project root: %w", err)
	}

	h, err := openIndex(ctx, root, offline)
	if err != nil {
		return err
	}
	defer func() { _ = h.Close() }()

	out.Statusf("👀", "Watching %s for changes (ctrl-c to stop)", root)
	if err := h.Watch(ctx); err != nil {
		return fmt.Errorf("watch failed: %w", err)
	}
	out.Success("Stopped watching")
	return nil
}
