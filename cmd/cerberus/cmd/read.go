package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cerberus-code/cerberus/internal/output"
)

func newReadCmd() *cobra.Command {
	var pad int
	var offline bool

	cmd := &cobra.Command{
		Use:   "read <file>:<start>-<end>",
		Short: "Read a line range from an indexed file",
		Long: `Read hydrates a read-through span of source text, e.g.

  cerberus read internal/build/build.go:42-68

padded by --pad lines on each side and clamped to the file's bounds.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, start, end, err := parseRangeArg(args[0])
			if err != nil {
				return err
			}
			return runRead(cmd.Context(), cmd, file, start, end, pad, offline)
		},
	}

	cmd.Flags().IntVar(&pad, "pad", 0, "Extra context lines on each side")
	cmd.Flags().BoolVar(&offline, "offline", false, "Use the static embedder directly, without the query cache")

	return cmd
}

// parseRangeArg parses "<file>:<start>-<end>" or "<file>:<line>".
func parseRangeArg(arg string) (file string, start, end int, err error) {
	idx := strings.LastIndex(arg, ":")
	if idx < 0 {
		return "", 0, 0, fmt.Errorf("expected <file>:<start>-<end>, got %q", arg)
	}
	file = arg[:idx]
	rangeStr := arg[idx+1:]

	if dash := strings.Index(rangeStr, "-"); dash >= 0 {
		start, err = strconv.Atoi(rangeStr[:dash])
		if err != nil {
			return "", 0, 0, fmt.Errorf("invalid start line %q: %w", rangeStr[:dash], err)
		}
		end, err = strconv.Atoi(rangeStr[dash+1:])
		if err != nil {
			return "", 0, 0, fmt.Errorf("invalid end line %q: %w", rangeStr[dash+1:], err)
		}
		return file, start, end, nil
	}

	start, err = strconv.Atoi(rangeStr)
	if err != nil {
		return "", 0, 0, fmt.Errorf("invalid line %q: %w", rangeStr, err)
	}
	return file, start, start, nil
}

func runRead(ctx context.Context, cmd *cobra.Command, file string, start, end, pad int, offline bool) error {
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

	snippet, err := h.ReadRange(ctx, file, start, end, pad)
	if err != nil {
		return fmt.Errorf("read failed: %w", err)
	}

	out.Statusf("", "%s:%d-%d", snippet.File, snippet.StartLine, snippet.EndLine)
	out.Code(snippet.Content)
	return nil
}
