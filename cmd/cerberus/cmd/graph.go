package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cerberus-code/cerberus/internal/output"
	"github.com/cerberus-code/cerberus/pkg/cerberus"
)

func newGraphCmd() *cobra.Command {
	var direction string
	var depth int
	var format string
	var offline bool

	cmd := &cobra.Command{
		Use:   "graph <symbol>",
		Short: "Walk the resolved call graph from a symbol",
		Long: `Graph walks the resolved call graph outward from every symbol sharing
the given name, up to --depth hops, following --direction.

Examples:
  cerberus graph HandleRequest --direction callers
  cerberus graph parseConfig --direction both --depth 3`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraph(cmd.Context(), cmd, args[0], direction, depth, format, offline)
		},
	}

	cmd.Flags().StringVar(&direction, "direction", "callees", "Traversal direction: callers, callees, both")
	cmd.Flags().IntVar(&depth, "depth", 1, "Maximum number of hops")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().BoolVar(&offline, "offline", false, "Use the static embedder directly, without the query cache")

	return cmd
}

func runGraph(ctx context.Context, cmd *cobra.Command, name, direction string, depth int, format string, offline bool) error {
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

	g, err := h.CallGraph(ctx, name, cerberus.GraphDirection(direction), depth)
	if err != nil {
		return fmt.Errorf("graph failed: %w", err)
	}

	if format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(g)
	}

	out.Statusf("", "%d node(s), %d edge(s) from %v:", len(g.Nodes), len(g.Edges), g.Roots)
	out.Newline()
	for _, n := range g.Nodes {
		loc := n.Symbol
		if n.File != "" {
			loc = fmt.Sprintf("%s (%s:%d)", n.Symbol, n.File, n.Line)
		}
		out.Statusf("", "[depth %d] %s", n.Depth, loc)
	}
	if len(g.Edges) > 0 {
		out.Newline()
		out.Status("", "Edges:")
		for _, e := range g.Edges {
			out.Statusf("", "  %s -> %s (confidence %.2f)", e.From, e.To, e.Confidence)
		}
	}
	return nil
}
