package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cerberus-code/cerberus/internal/async"
	"github.com/cerberus-code/cerberus/internal/build"
	"github.com/cerberus-code/cerberus/internal/output"
	"github.com/cerberus-code/cerberus/pkg/cerberus"
)

type buildOptions struct {
	offline bool
	force   bool
}

func newBuildCmd() *cobra.Command {
	var opts buildOptions

	cmd := &cobra.Command{
		Use:   "build [path]",
		Short: "Build a fresh index over a codebase",
		Long: `Build runs the full offline pipeline — scan, parse, extract, persist,
resolve, embed — and writes the result under <path>/.cerberus/.

Examples:
  cerberus build
  cerberus build ./services/api --offline`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}
			return runBuild(cmd.Context(), cmd, root, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.offline, "offline", false, "Use the static embedder directly, without the query cache")
	cmd.Flags().BoolVar(&opts.force, "force", false, "Rebuild even if an index already exists")

	return cmd
}

func runBuild(ctx context.Context, cmd *cobra.Command, path string, opts buildOptions) error {
	out := output.New(cmd.OutOrStdout())

	var root string
	var err error
	if path != "." && path != "" {
		root = path
	} else {
		root, err = projectRoot()
		if err != nil {
			return fmt.Errorf("failed to resolve project root: %w", err)
		}
	}

	dir := dataDir(root)
	if indexExists(dir) && !opts.force {
		return fmt.Errorf("index already exists at %s; use --force to rebuild", dir)
	}

	cfg := loadProjectConfig(root)
	embedder, err := newConfiguredEmbedder(ctx, cfg, opts.offline)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	if async.HasIncompleteLock(dir) {
		out.Warningf("found an indexing lock from a previous run that didn't finish cleanly; rebuilding")
	}

	out.Statusf("🔨", "Building index for %s", root)
	start := time.Now()

	var h *cerberus.IndexHandle
	var stats *build.Stats
	indexer := async.NewBackgroundIndexer(async.IndexerConfig{DataDir: dir})
	indexer.IndexFunc = func(ctx context.Context, progress *async.IndexProgress) error {
		progress.SetStage(async.StageIndexing, 0)
		var buildErr error
		h, stats, buildErr = cerberus.BuildIndex(ctx, root, dir, cerberus.Options{
			ExcludePatterns: cfg.Paths.Exclude,
			Embedder:        embedder,
		})
		return buildErr
	}
	indexer.Start(ctx)

	waitDone := make(chan error, 1)
	go func() { waitDone <- indexer.Wait() }()

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
loop:
	for {
		select {
		case err = <-waitDone:
			break loop
		case <-ticker.C:
			out.Statusf("⏳", "still building... (%ds elapsed)", int(time.Since(start).Seconds()))
		}
	}
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}
	defer func() { _ = h.Close() }()

	out.Successf("Indexed %d files, %d symbols in %s",
		stats.FilesIndexed, stats.Symbols, time.Since(start).Round(time.Millisecond))
	if stats.FilesSkipped > 0 {
		out.Status("", fmt.Sprintf("   skipped %d files", stats.FilesSkipped))
	}
	if stats.Warnings > 0 {
		out.Warningf("%d warnings during build (run with --debug for details)", stats.Warnings)
	}
	return nil
}
