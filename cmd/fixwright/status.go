package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/fixwright/fixwright/internal/storage"
)

var statusCmd = &cobra.Command{
	Use:   "status [run-id]",
	Short: "Show the state of a run, or list known runs",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := storage.Open(cfg.DataDir)
		if err != nil {
			return err
		}
		defer store.Close()

		if len(args) == 0 {
			ids, err := store.ListRunIDs()
			if err != nil {
				return err
			}
			if len(ids) == 0 {
				gray := color.New(color.FgHiBlack).SprintFunc()
				fmt.Printf("%s\n", gray("No runs recorded"))
				return nil
			}
			for _, id := range ids {
				state, err := store.GetRun(id)
				if err != nil {
					return err
				}
				fmt.Printf("%-36s  %-7s  %s\n", id, state.Status, state.RepositoryURL)
			}
			return nil
		}

		state, err := store.GetRun(args[0])
		if err != nil {
			return err
		}
		printRunState(state)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
