// Package cmd provides the CLI commands for Cerberus.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/cerberus-code/cerberus/internal/logging"
	"github.com/cerberus-code/cerberus/pkg/version"
)

// Debug logging flag, shared across every subcommand via PersistentPreRunE.
var (
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the cerberus CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cerberus",
		Short: "Code-context engine for AI coding agents",
		Long: `Cerberus builds a hybrid-search index (keyword + semantic) over a
codebase, plus symbol lookup, read-through spans, a resolved call
graph, and AST-aware mutation — all local, no running server.

Run 'cerberus build' in a project directory to create an index, then
'cerberus search', 'cerberus find', or 'cerberus graph' to query it.`,
		Version:      version.Version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.SetVersionTemplate("cerberus version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.cerberus/logs/")
	cmd.PersistentPreRunE = startLogging
	cmd.PersistentPostRunE = stopLogging

	cmd.AddCommand(newBuildCmd())
	cmd.AddCommand(newUpdateCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newFindCmd())
	cmd.AddCommand(newReadCmd())
	cmd.AddCommand(newEditCmd())
	cmd.AddCommand(newDeleteCmd())
	cmd.AddCommand(newGraphCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// startLogging enables debug file logging when --debug is set.
func startLogging(_ *cobra.Command, _ []string) error {
	if !debugMode {
		return nil
	}
	logger, cleanup, err := logging.Setup(logging.DebugConfig())
	if err != nil {
		return fmt.Errorf("failed to setup debug logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	slog.Info("debug logging enabled", slog.String("log_file", logging.DefaultLogPath()))
	return nil
}

// stopLogging flushes and closes the debug log file, if one was opened.
func stopLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		slog.Info("debug logging stopped")
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
