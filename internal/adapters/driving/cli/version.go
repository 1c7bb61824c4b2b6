package cli

import (
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/contentpipe/internal/adapters/driven/ai"
	"github.com/custodia-labs/contentpipe/internal/core/domain"
)

var versionShort bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "Print the contentpipe version along with the source kinds and AI providers this build supports.",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("contentpipe version %s\n", version)
		if versionShort {
			return
		}

		kinds := make([]string, 0, len(domain.SourceKinds()))
		for _, k := range domain.SourceKinds() {
			kinds = append(kinds, k.String())
		}
		cmd.Printf("  go:        %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		cmd.Printf("  sources:   %s\n", strings.Join(kinds, ", "))
		cmd.Printf("  providers: %s\n", strings.Join(ai.Providers(), ", "))
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "print only the version number")
	rootCmd.AddCommand(versionCmd)
}
