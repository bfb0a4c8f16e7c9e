package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cerberus-code/cerberus/internal/output"
)

func newFindCmd() *cobra.Command {
	var format string
	var offline bool

	cmd := &cobra.Command{
		Use:   "find <symbol>",
		Short: "Find every symbol matching a name",
		Long: `Find looks up a symbol by exact name across the whole index and
prints every declaration site — useful when a name is overloaded
across files or languages.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFind(cmd.Context(), cmd, args[0], format, offline)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().BoolVar(&offline, "offline", false, "Use the static embedder directly, without the query cache")

	return cmd
}

func runFind(ctx context.Context, cmd *cobra.Command, name, format string, offline bool) error {
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

	symbols, err := h.FindSymbol(ctx, name)
	if err != nil {
		return fmt.Errorf("find failed: %w", err)
	}

	if len(symbols) == 0 {
		out.Status("", fmt.Sprintf("No symbol named %q found", name))
		return nil
	}

	if format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(symbols)
	}

	out.Statusf("", "Found %d symbol(s) named %q:", len(symbols), name)
	out.Newline()
	for _, sym := range symbols {
		out.Statusf("", "%s:%d-%d  %s %s", sym.File, sym.StartLine, sym.EndLine, sym.Kind, sym.Signature)
		if sym.DocFirst != "" {
			out.Status("", "   "+sym.DocFirst)
		}
	}
	return nil
}
