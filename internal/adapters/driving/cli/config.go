package cli

import (
	"sort"
	"strings"

	"github.com/spf13/cobra"

	configfile "github.com/custodia-labs/contentpipe/internal/adapters/driven/config/file"
)

var configPath string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the pipeline configuration",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration without running the pipeline",
	Long: `Loads the configuration, applies defaults and reports every problem
found. Exits non-zero when the configuration is invalid.`,
	Args: cobra.NoArgs,
	RunE: runConfigValidate,
}

func init() {
	configValidateCmd.Flags().StringVarP(&configPath, "config", "c", DefaultConfigPath, "path to the TOML or YAML configuration")
	configCmd.AddCommand(configValidateCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigValidate(cmd *cobra.Command, _ []string) error {
	cfg, err := configfile.Load(configPath)
	if err != nil {
		return err
	}

	kinds := make(map[string]int)
	for _, s := range cfg.Descriptors() {
		kinds[s.Kind.String()]++
	}
	names := make([]string, 0, len(kinds))
	for k := range kinds {
		names = append(names, k)
	}
	sort.Strings(names)

	ai := cfg.AI.Provider
	if !cfg.AI.IsEnabled() {
		ai = "disabled"
	}

	cmd.Printf("%s is valid\n", configPath)
	cmd.Printf("  sources:    %d (%s)\n", len(cfg.Sources), strings.Join(names, ", "))
	cmd.Printf("  output:     %s\n", cfg.Output)
	cmd.Printf("  ai:         %s\n", ai)
	cmd.Printf("  categories: %d\n", cfg.Taxonomy().Len())
	return nil
}
