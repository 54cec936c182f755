// Package cmd wires the filepair CLI: flag parsing, configuration loading,
// engine invocation, and result presentation.
package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for filepair
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filepair",
		Short: "Pair files across directories by name, id, or keyword",
		Long: `Filepair scans directories of files and pairs them up using one of
several matching strategies: exact filename, leading id prefix, stem
similarity, pattern substitution, custom regex, or free-form keywords.

Results can be printed, exported to JSON or CSV, and the matched files
copied, moved, or deleted in bulk.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	// Add subcommands
	cmd.AddCommand(NewMatchCommand())
	cmd.AddCommand(NewFilterCommand())
	cmd.AddCommand(NewHistoryCommand())

	return cmd
}
