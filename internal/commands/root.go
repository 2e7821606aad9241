// Package commands implements the importctl operator CLI.
package commands

import (
	"github.com/spf13/cobra"
)

// Version is stamped at build time with -ldflags.
var Version = "dev"

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "importctl",
		Short:   "Inspect statement files and maintain the transaction import store",
		Version: Version,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newAnalyzeCommand())
	rootCmd.AddCommand(newPreviewCommand())
	rootCmd.AddCommand(newSweepOrphansCommand())

	return rootCmd
}
