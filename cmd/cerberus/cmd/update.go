package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cerberus-code/cerberus/internal/output"
)

func newUpdateCmd() *cobra.Command {
	var offline bool
	var files []string

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Bring an existing index back in sync with the tree",
		Long: `Update runs an mtime/size reconciliation scan against the index built
by 'cerberus build', or re-indexes only the given files when --file is
passed one or more times.

Examples:
  cerberus update
  cerberus update --file internal/api/handler.go`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runUpdate(cmd.Context(), cmd, offline, files)
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "Use the static embedder directly, without the query cache")
	cmd.Flags().StringSliceVar(&files, "file", nil, "Re-index only this repo-relative path (repeatable)")

	return cmd
}

func runUpdate(ctx context.Context, cmd *cobra.Command, offline bool, files []string) error {
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

	start := time.Now()
	stats, err := h.UpdateIndex(ctx, files)
	if err != nil {
		return fmt.Errorf("update failed: %w", err)
	}

	out.Successf("Updated index in %s", time.Since(start).Round(time.Millisecond))
	out.Status("", fmt.Sprintf("   indexed %d, removed %d, %d symbols",
		stats.FilesIndexed, stats.FilesRemoved, stats.Symbols))
	return nil
}
