package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cerberus-code/cerberus/internal/output"
	"github.com/cerberus-code/cerberus/pkg/cerberus"
)

type searchOptions struct {
	limit   int
	mode    string // "balanced", "keyword", "semantic"
	format  string // "text", "json"
	offline bool
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the indexed codebase",
		Long: `Search runs a query through the hybrid retriever: dual lexical and
semantic search fused with Reciprocal Rank Fusion, then hydrates each
hit's source span.

Examples:
  cerberus search "authentication middleware"
  cerberus search "parseConfig" --mode keyword --limit 5
  cerberus search "error handling" --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runSearch(cmd.Context(), cmd, query, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 10, "Maximum number of results")
	cmd.Flags().StringVarP(&opts.mode, "mode", "m", "balanced", "Search mode: balanced, keyword, semantic")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().BoolVar(&opts.offline, "offline", false, "Use the static embedder directly, without the query cache")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, opts searchOptions) error {
	out := output.New(cmd.OutOrStdout())

	root, err := projectRoot()
	if err != nil {
		return fmt.Errorf("failed to resolve project root: %w", err)
	}

	h, err := openIndex(ctx, root, opts.offline)
	if err != nil {
		return err
	}
	defer func() { _ = h.Close() }()

	hits, err := h.HybridSearch(ctx, query, cerberus.SearchMode(opts.mode), opts.limit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(hits) == 0 {
		out.Status("", fmt.Sprintf("No results found for %q", query))
		return nil
	}

	if opts.format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(hits)
	}

	out.Statusf("🔍", "Found %d results for %q:", len(hits), query)
	out.Newline()
	for i, hit := range hits {
		location := hit.File
		if hit.StartLine > 0 {
			location = fmt.Sprintf("%s:%d", hit.File, hit.StartLine)
		}
		out.Statusf("", "%d. %s (score: %.3f, %s)", i+1, location, hit.Score, hit.MatchType)
		for _, line := range snippetLines(hit.Snippet, 3) {
			out.Status("", "   "+line)
		}
		out.Newline()
	}
	return nil
}

// snippetLines returns up to n leading lines of content.
func snippetLines(content string, n int) []string {
	lines := strings.Split(content, "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	return lines
}
