// fixwright detects and repairs common defects in student repositories,
// then drives the fix through git and CI until the build is green.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fixwright/fixwright/internal/config"
)

var (
	cfgPath string
	cfg     config.Config
)

var rootCmd = &cobra.Command{
	Use:   "fixwright",
	Short: "Bug detection and automated repair engine",
	Long: `fixwright clones a repository, finds defects across six categories
(linting, syntax, logic, type errors, imports, indentation), applies
deterministic fixes, and iterates until local tests and CI pass.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file (YAML)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
