package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/fixwright/fixwright/internal/types"
)

var (
	runRepoURL string
	runTeam    string
	runLeader  string
	runRetry   int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one repair run and wait for the result",
	Long:  `Clone the repository, repair detected failures, push fixes, and poll CI until the run passes or the retry budget is spent.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		retry := runRetry
		if retry == 0 {
			retry = cfg.DefaultRetryLimit
		}
		if retry > cfg.MaxRetryLimit {
			return fmt.Errorf("retry limit %d exceeds maximum %d", retry, cfg.MaxRetryLimit)
		}
		req := types.RunRequest{
			RepositoryURL:  runRepoURL,
			TeamName:       runTeam,
			TeamLeaderName: runLeader,
			RetryLimit:     retry,
		}

		r, store, err := buildRunner(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		runID, err := r.StartRun(req)
		if err != nil {
			return err
		}
		fmt.Printf("Run %s started on %s\n", runID, req.RepositoryURL)

		r.ExecuteRun(ctx, runID, req)

		state, err := store.GetRun(runID)
		if err != nil {
			return err
		}
		printRunState(state)
		if state.Status != types.RunPassed {
			return fmt.Errorf("run %s finished %s", runID, state.Status)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runRepoURL, "repo", "", "repository URL (required)")
	runCmd.Flags().StringVar(&runTeam, "team", "", "team name (required)")
	runCmd.Flags().StringVar(&runLeader, "leader", "", "team leader name (required)")
	runCmd.Flags().IntVar(&runRetry, "retry", 0, "retry limit (default from config)")
	runCmd.MarkFlagRequired("repo")
	runCmd.MarkFlagRequired("team")
	runCmd.MarkFlagRequired("leader")
	rootCmd.AddCommand(runCmd)
}

// printRunState renders a completed run the way the status command does.
func printRunState(state *types.RunState) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	fmt.Printf("\n%s\n\n", cyan("=== Run "+state.RunID+" ==="))

	statusText := red(string(state.Status))
	switch state.Status {
	case types.RunPassed:
		statusText = green(string(state.Status))
	case types.RunQueued, types.RunRunning:
		statusText = yellow(string(state.Status))
	}
	fmt.Printf("Status:     %s\n", statusText)
	fmt.Printf("Repository: %s\n", state.RepositoryURL)
	fmt.Printf("Branch:     %s\n", state.BranchName)
	if state.CIWorkflowURL != "" {
		fmt.Printf("CI:         %s\n", state.CIWorkflowURL)
	}
	if state.ErrorMessage != "" {
		fmt.Printf("Error:      %s\n", red(state.ErrorMessage))
	}
	if state.DurationSeconds != nil {
		fmt.Printf("Duration:   %.1fs\n", *state.DurationSeconds)
	}

	fmt.Printf("\n%s\n", yellow("Fixes:"))
	if len(state.Fixes) == 0 {
		fmt.Printf("  %s\n", gray("No fixes attempted"))
	}
	for _, fix := range state.Fixes {
		icon := green("✓")
		if fix.Status != types.FixApplied {
			icon = red("✗")
		}
		fmt.Printf("  %s %-12s %s:%d\n", icon, fix.Category, fix.File, fix.Line)
	}

	fmt.Printf("\n%s\n", yellow("Score:"))
	fmt.Printf("  Base %d, bonus +%d, penalty -%d\n",
		state.Score.BaseScore, state.Score.SpeedBonus, state.Score.EfficiencyPenalty)
	fmt.Printf("  Final: %s\n", cyan(fmt.Sprintf("%d", state.Score.FinalScore)))
	fmt.Printf("\nDetected %d failures, applied %d fixes over %d commits\n",
		state.TotalFailuresDetected, state.TotalFixesApplied, state.CommitCount)
}
