// Package cli provides the contentpipe command-line interface.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/contentpipe/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "contentpipe",
	Short: "Ingest, enhance and curate content from many sources",
	Long: `contentpipe fetches items from feeds, sites and custom endpoints,
fills weak titles and excerpts with an AI provider, classifies each item
into a fixed taxonomy, filters low-quality and duplicate items, and writes
the result as a single JSON artifact.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print stage progress and per-source detail")
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
