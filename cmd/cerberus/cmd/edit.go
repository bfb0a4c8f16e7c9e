package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/cerberus-code/cerberus/internal/output"
	"github.com/cerberus-code/cerberus/pkg/cerberus"
)

type mutateOptions struct {
	kind    string
	line    int
	dryRun  bool
	force   bool
	noBack  bool
	offline bool
}

func newEditCmd() *cobra.Command {
	var opts mutateOptions
	var sourceFile string

	cmd := &cobra.Command{
		Use:   "edit <file> <symbol>",
		Short: "Replace a symbol's source span with new code",
		Long: `Edit locates the named symbol's source span through the index,
reformats and splices in replacement code, validates syntax, takes a
backup, and refreshes the index — all through the Mutation Engine.

New code is read from --source, or from stdin when --source is "-".

Examples:
  cerberus edit internal/api/handler.go HandleRequest --source new_handler.go
  cat new_handler.go | cerberus edit internal/api/handler.go HandleRequest --source -`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEdit(cmd.Context(), cmd, args[0], args[1], sourceFile, opts)
		},
	}

	cmd.Flags().StringVar(&sourceFile, "source", "-", "File containing the replacement code, or - for stdin")
	cmd.Flags().StringVar(&opts.kind, "kind", "", "Disambiguate by symbol kind when a name is overloaded")
	cmd.Flags().IntVar(&opts.line, "line", 0, "Disambiguate by declaration line when a name is overloaded")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Validate and report without writing")
	cmd.Flags().BoolVar(&opts.force, "force", false, "Bypass the risk gate for a HIGH-risk file")
	cmd.Flags().BoolVar(&opts.noBack, "no-backup", false, "Skip taking a backup copy before writing")
	cmd.Flags().BoolVar(&opts.offline, "offline", false, "Use the static embedder directly, without the query cache")

	return cmd
}

func runEdit(ctx context.Context, cmd *cobra.Command, file, symbol, sourceFile string, opts mutateOptions) error {
	newCode, err := readSource(cmd, sourceFile)
	if err != nil {
		return err
	}

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

	result, err := h.MutateEdit(ctx, target, newCode, mopts)
	if err != nil {
		return fmt.Errorf("edit failed: %w", err)
	}
	reportMutation(out, result)
	return nil
}

func readSource(cmd *cobra.Command, sourceFile string) (string, error) {
	if sourceFile == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(sourceFile)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", sourceFile, err)
	}
	return string(data), nil
}

func mutationOptionsFrom(opts mutateOptions) cerberus.MutationOptions {
	mopts := cerberus.DefaultMutationOptions()
	mopts.DryRun = opts.dryRun
	mopts.Force = opts.force
	if opts.noBack {
		mopts.Backup = false
	}
	return mopts
}

func reportMutation(out *output.Writer, result *cerberus.MutationResult) {
	if result.DryRun {
		out.Statusf("", "(dry run) %s: %d/%d lines changed, risk %s", result.File, result.LinesChanged, result.LinesTotal, result.Risk)
		return
	}
	out.Successf("%s: %d/%d lines changed, risk %s", result.File, result.LinesChanged, result.LinesTotal, result.Risk)
	if result.BackupPath != "" {
		out.Status("", "   backup: "+result.BackupPath)
	}
	if result.TokensSavedEstimate > 0 {
		out.Status("", fmt.Sprintf("   ~%d tokens saved vs. reading the whole file", result.TokensSavedEstimate))
	}
}
