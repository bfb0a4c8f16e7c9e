package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cerberus-code/cerberus/internal/output"
)

func newStatsCmd() *cobra.Command {
	var format string
	var offline bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show row counts and on-disk size for the index",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStats(cmd.Context(), cmd, format, offline)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().BoolVar(&offline, "offline", false, "Use the static embedder directly, without the query cache")

	return cmd
}

func runStats(ctx context.Context, cmd *cobra.Command, format string, offline bool) error {
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

	stats, err := h.GetStats(ctx)
	if err != nil {
		return fmt.Errorf("stats failed: %w", err)
	}

	if format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}

	out.Status("", fmt.Sprintf("Files:              %d", stats.Files))
	out.Status("", fmt.Sprintf("Symbols:            %d", stats.Symbols))
	out.Status("", fmt.Sprintf("Imports:            %d", stats.Imports))
	out.Status("", fmt.Sprintf("Import links:       %d", stats.ImportLinks))
	out.Status("", fmt.Sprintf("Calls:              %d", stats.Calls))
	out.Status("", fmt.Sprintf("Method calls:       %d", stats.MethodCalls))
	out.Status("", fmt.Sprintf("Type infos:         %d", stats.TypeInfos))
	out.Status("", fmt.Sprintf("Symbol references:  %d", stats.SymbolReferences))
	out.Status("", fmt.Sprintf("Embeddings linked:  %d", stats.EmbeddingsLinked))
	out.Status("", fmt.Sprintf("On-disk size:       %.1f MB", float64(stats.OnDiskBytes)/(1024*1024)))
	return nil
}
