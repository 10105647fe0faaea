package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/fixwright/fixwright/internal/analyzer"
	"github.com/fixwright/fixwright/internal/types"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [path]",
	Short: "Statically analyze a local repository without fixing it",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := "."
		if len(args) == 1 {
			root = args[0]
		}

		failures, err := analyzer.AnalyzeRepository(context.Background(), root)
		if err != nil {
			return err
		}

		green := color.New(color.FgGreen).SprintFunc()
		if len(failures) == 0 {
			fmt.Printf("%s no failures detected in %s\n", green("✓"), root)
			return nil
		}

		for _, f := range failures {
			fmt.Printf("%s %s:%d %s\n", categoryColor(f.Category)(string(f.Category)), f.File, f.Line, f.Message)
		}
		fmt.Printf("\n%d failures detected\n", len(failures))
		return nil
	},
}

func categoryColor(c types.BugCategory) func(a ...interface{}) string {
	switch c {
	case types.CategorySyntax, types.CategoryTypeError:
		return color.New(color.FgRed).SprintFunc()
	case types.CategoryLogic:
		return color.New(color.FgMagenta).SprintFunc()
	case types.CategoryImport, types.CategoryIndentation:
		return color.New(color.FgYellow).SprintFunc()
	default:
		return color.New(color.FgCyan).SprintFunc()
	}
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}
