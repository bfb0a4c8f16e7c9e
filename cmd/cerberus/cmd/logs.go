package cmd

import (
	"context"
	"fmt"
	"regexp"

	"github.com/spf13/cobra"

	"github.com/cerberus-code/cerberus/internal/logging"
)

func newLogsCmd() *cobra.Command {
	var n int
	var level string
	var pattern string
	var follow bool
	var noColor bool

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the debug log stream",
		Long: `Logs tails ~/.cerberus/logs/cerberus.log, the file written when a
command runs with --debug.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLogs(cmd.Context(), cmd, n, level, pattern, follow, noColor)
		},
	}

	cmd.Flags().IntVarP(&n, "lines", "n", 50, "Number of trailing log lines to show")
	cmd.Flags().StringVar(&level, "level", "", "Minimum level to show (debug, info, warn, error)")
	cmd.Flags().StringVar(&pattern, "grep", "", "Only show lines matching this regular expression")
	cmd.Flags().BoolVar(&follow, "follow", false, "Keep watching the log file for new entries")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable ANSI color in level labels")

	return cmd
}

func runLogs(ctx context.Context, cmd *cobra.Command, n int, level, pattern string, follow, noColor bool) error {
	cfg := logging.ViewerConfig{Level: level, NoColor: noColor}
	if pattern != "" {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return fmt.Errorf("invalid --grep pattern: %w", err)
		}
		cfg.Pattern = re
	}

	v := logging.NewViewer(cfg, cmd.OutOrStdout())
	path := logging.DefaultLogPath()

	entries, err := v.Tail(path, n)
	if err != nil {
		return fmt.Errorf("failed to read logs: %w", err)
	}
	v.Print(entries)

	if !follow {
		return nil
	}

	ch := make(chan logging.LogEntry)
	done := make(chan error, 1)
	go func() { done <- v.Follow(ctx, path, ch) }()
	for {
		select {
		case entry := <-ch:
			fmt.Fprintln(cmd.OutOrStdout(), v.FormatEntry(entry))
		case err := <-done:
			return err
		case <-ctx.Done():
			return nil
		}
	}
}
