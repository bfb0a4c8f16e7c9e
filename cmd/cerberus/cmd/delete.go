package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cerberus-code/cerberus/internal/output"
	"github.com/cerberus-code/cerberus/pkg/cerberus"
)

func newDeleteCmd() *cobra.Command {
	var opts mutateOptions

	cmd := &cobra.Command{
		Use:   "delete <file> <symbol>",
		Short: "Remove a symbol's source span",
		Long: `Delete removes the named symbol's source span (plus a trailing blank
line, if any) through the same Mutation Engine pipeline as 'edit'.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(cmd.Context(), cmd, args[0], args[1], opts)
		},
	}

	cmd.Flags().StringVar(&opts.kind, "kind", "", "Disambiguate by symbol kind when a name is overloaded")
	cmd.Flags().IntVar(&opts.line, "line", 0, "Disambiguate by declaration line when a name is overloaded")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Validate and report without writing")
	cmd.Flags().BoolVar(&opts.force, "force", false, "Bypass the risk gate for a HIGH-risk file")
	cmd.Flags().BoolVar(&opts.noBack, "no-backup", false, "Skip taking a backup copy before writing")
	cmd.Flags().BoolVar(&opts.offline, "offline", false, "Use the static embedder directly, without the query cache")

	return cmd
}

func runDelete(ctx context.Context, cmd *cobra.Command, file, symbol string, opts mutateOptions) error {
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

	target := cerberus.MutationTarget{File: file, Symbol: symbol, Kind: opts.kind, Line: opts.line}
	mopts := mutationOptionsFrom(opts)

	result, err := h.MutateDelete(ctx, target, mopts)
	if err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	reportMutation(out, result)
	return nil
}
