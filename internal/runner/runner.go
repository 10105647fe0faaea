// Package runner owns the repair loop: detect failures, apply fixes,
// commit, push, and watch CI until the run passes or the retry budget is
// spent. Each run executes on its own goroutine and exclusively owns its
// RunState until it reaches a terminal status.
package runner

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/fixwright/fixwright/internal/analyzer"
	"github.com/fixwright/fixwright/internal/git"
	"github.com/fixwright/fixwright/internal/patcher"
	"github.com/fixwright/fixwright/internal/policy"
	"github.com/fixwright/fixwright/internal/scoring"
	"github.com/fixwright/fixwright/internal/storage"
	"github.com/fixwright/fixwright/internal/testexec"
	"github.com/fixwright/fixwright/internal/types"
)

// maxLocalAttempts bounds the inner convergence loop: analyze, patch,
// re-analyze until clean, no progress, or this many passes.
const maxLocalAttempts = 3

// failedCommitMessage marks a fix attempt whose rewrite did not apply.
const failedCommitMessage = "[AI-AGENT] Fix attempt failed"

// GitClient is the subset of git operations the runner drives.
type GitClient interface {
	Clone(ctx context.Context, repoURL, targetPath string) error
	CreateBranch(ctx context.Context, repoPath, branchName string) error
	Commit(ctx context.Context, repoPath, message string) (bool, string, error)
	Push(ctx context.Context, repoPath, branchName string) error
}

// CIWatcher blocks until the branch's CI verdict is known.
type CIWatcher interface {
	Poll(ctx context.Context, owner, repo, branch string) (git.CIStatus, string)
}

// TestRunner executes the repository's test suite.
type TestRunner interface {
	Run(ctx context.Context, repoPath string) (testexec.Result, error)
}

// Runner coordinates runs across their collaborators.
type Runner struct {
	store        *storage.Store
	git          GitClient
	ci           CIWatcher
	tests        TestRunner
	workspaceDir string
	defaultRetry int
}

// New builds a runner. workspaceDir receives one clone per run id.
func New(store *storage.Store, gitClient GitClient, ci CIWatcher, tests TestRunner, workspaceDir string, defaultRetry int) *Runner {
	if defaultRetry < 1 {
		defaultRetry = 5
	}
	return &Runner{
		store:        store,
		git:          gitClient,
		ci:           ci,
		tests:        tests,
		workspaceDir: workspaceDir,
		defaultRetry: defaultRetry,
	}
}

// StartRun validates the request, persists the QUEUED snapshot, and
// returns the new run id. The caller launches ExecuteRun separately.
func (r *Runner) StartRun(req types.RunRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	branch, err := policy.BuildBranchName(req.TeamName, req.TeamLeaderName)
	if err != nil {
		return "", err
	}

	runID := uuid.NewString()
	state := &types.RunState{
		RunID:          runID,
		RepositoryURL:  req.RepositoryURL,
		TeamName:       req.TeamName,
		TeamLeaderName: req.TeamLeaderName,
		BranchName:     branch,
		Status:         types.RunQueued,
		StartedAt:      time.Now().UTC(),
		Score:          scoring.Score(nil, 0),
		Fixes:          []types.FixResult{},
		Timeline:       []types.TimelineEntry{},
	}
	if err := r.store.UpsertRun(state); err != nil {
		return "", err
	}
	return runID, nil
}

// Resume re-executes a run that previously reached FAILED. The retry
// limit is recovered from the last timeline entry.
func (r *Runner) Resume(ctx context.Context, runID string) error {
	state, err := r.store.GetRun(runID)
	if err != nil {
		return err
	}
	if state.Status == types.RunRunning {
		return fmt.Errorf("run %s is already running", runID)
	}

	retryLimit := r.defaultRetry
	if n := len(state.Timeline); n > 0 && state.Timeline[n-1].RetryLimit > 0 {
		retryLimit = state.Timeline[n-1].RetryLimit
	}

	req := types.RunRequest{
		RepositoryURL:  state.RepositoryURL,
		TeamName:       state.TeamName,
		TeamLeaderName: state.TeamLeaderName,
		RetryLimit:     retryLimit,
	}
	r.ExecuteRun(ctx, runID, req)
	return nil
}

// ledger tracks failure identity across iterations. A key that was fixed
// is never submitted for repair again.
type ledger struct {
	seen           map[types.FailureKey]bool
	fixed          map[types.FailureKey]bool
	failedAttempts map[types.FailureKey]int
}

func newLedger() *ledger {
	return &ledger{
		seen:           map[types.FailureKey]bool{},
		fixed:          map[types.FailureKey]bool{},
		failedAttempts: map[types.FailureKey]int{},
	}
}

// candidates records the batch and filters out already-fixed keys.
func (l *ledger) candidates(failures []types.Failure) []types.Failure {
	var out []types.Failure
	for _, f := range failures {
		l.seen[f.Key()] = true
		if !l.fixed[f.Key()] {
			out = append(out, f)
		}
	}
	return out
}

// ExecuteRun drives one run to a terminal state. All errors terminate
// the run as FAILED with the error recorded; nothing is returned because
// the caller is a detached goroutine.
func (r *Runner) ExecuteRun(ctx context.Context, runID string, req types.RunRequest) {
	startedAt := time.Now().UTC()
	state, err := r.store.GetRun(runID)
	if err != nil {
		log.Printf("run %s: load failed: %v", runID, err)
		return
	}
	state.Status = types.RunRunning
	state.StartedAt = startedAt
	state.ErrorMessage = ""
	r.persist(state)

	repoDir := filepath.Join(r.workspaceDir, runID)
	book := newLedger()
	passed := false
	iteration := 0

	runErr := func() error {
		owner, repo, err := git.ParseOwnerRepo(req.RepositoryURL)
		if err != nil {
			return err
		}
		if err := r.git.Clone(ctx, req.RepositoryURL, repoDir); err != nil {
			return err
		}
		if err := r.git.CreateBranch(ctx, repoDir, state.BranchName); err != nil {
			return err
		}

		for iteration < req.RetryLimit && !passed {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("run canceled after %d iterations: %w", iteration, err)
			}
			iteration++

			localSolved, appliedInIteration, rows, err := r.convergeLocally(ctx, repoDir, book, state)
			state.TotalFailuresDetected = len(book.seen)
			if err != nil {
				return err
			}

			if appliedInIteration > 0 {
				message := fmt.Sprintf("Iteration %d: apply %d autonomous fixes", iteration, appliedInIteration)
				committed, finalMessage, err := r.git.Commit(ctx, repoDir, message)
				if err != nil {
					return err
				}
				if committed {
					state.CommitCount++
					for i := range rows {
						if rows[i].Status == types.FixApplied {
							rows[i].CommitMessage = finalMessage
						}
					}
				}
			}
			state.Fixes = append(state.Fixes, rows...)

			// A failed push is degraded, not fatal: CI may still be
			// running for a previous push of this branch.
			if err := r.git.Push(ctx, repoDir, state.BranchName); err != nil {
				log.Printf("run %s: push failed: %v", runID, err)
			}

			ciStatus, workflowURL := r.ci.Poll(ctx, owner, repo, state.BranchName)
			state.CIWorkflowURL = workflowURL
			passed = ciStatus == git.CIPassed && localSolved

			entryStatus := types.RunFailed
			if passed {
				entryStatus = types.RunPassed
			}
			state.Timeline = append(state.Timeline, types.TimelineEntry{
				Iteration:  iteration,
				RetryLimit: req.RetryLimit,
				Status:     entryStatus,
				Timestamp:  time.Now().UTC(),
			})
			r.persist(state)
		}
		return nil
	}()

	if runErr != nil {
		state.Status = types.RunFailed
		state.ErrorMessage = runErr.Error()
		// An iteration cut short by the error still counts as an attempt.
		if iteration > 0 && len(state.Timeline) < iteration {
			state.Timeline = append(state.Timeline, types.TimelineEntry{
				Iteration:  iteration,
				RetryLimit: req.RetryLimit,
				Status:     types.RunFailed,
				Timestamp:  time.Now().UTC(),
			})
		}
		log.Printf("run %s: %v", runID, runErr)
	} else if passed {
		state.Status = types.RunPassed
	} else {
		state.Status = types.RunFailed
	}

	completedAt := time.Now().UTC()
	duration := completedAt.Sub(startedAt).Seconds()
	state.CompletedAt = &completedAt
	state.DurationSeconds = &duration
	state.Score = scoring.Score(state.DurationSeconds, state.CommitCount)
	state.TotalFailuresDetected = len(book.seen)

	r.persist(state)
	if _, err := r.store.WriteResultsFile(state); err != nil {
		log.Printf("run %s: results export failed: %v", runID, err)
	}
}

// convergeLocally runs up to maxLocalAttempts analyze-patch cycles.
// Returns whether the tree came up clean, how many fixes applied, and
// the fix ledger rows for this iteration.
func (r *Runner) convergeLocally(ctx context.Context, repoDir string, book *ledger, state *types.RunState) (bool, int, []types.FixResult, error) {
	applied := 0
	var rows []types.FixResult

	for attempt := 0; attempt < maxLocalAttempts; attempt++ {
		failures, err := r.detect(ctx, repoDir)
		if err != nil {
			return false, applied, rows, err
		}

		batch := book.candidates(failures)
		if len(batch) == 0 {
			return true, applied, rows, nil
		}

		outcomes, err := patcher.Apply(repoDir, batch)
		if err != nil {
			return false, applied, rows, err
		}

		appliedThisPass := 0
		for _, outcome := range outcomes {
			plan := types.PlanFix(outcome.Failure)
			row := types.FixResult{
				File:          plan.File,
				Category:      plan.Category,
				Line:          plan.Line,
				Status:        types.FixFailed,
				CommitMessage: failedCommitMessage,
				ExpectedOut:   plan.ExpectedOut,
			}
			if outcome.Fixed {
				book.fixed[outcome.Failure.Key()] = true
				row.Status = types.FixApplied
				row.CommitMessage = plan.CommitMessage
				appliedThisPass++
				applied++
				state.TotalFixesApplied++
			} else {
				book.failedAttempts[outcome.Failure.Key()]++
			}
			rows = append(rows, row)
		}

		if appliedThisPass == 0 {
			return false, applied, rows, nil
		}
	}
	return false, applied, rows, nil
}

// detect merges test output failures with static analysis, both
// normalized to repo-relative paths.
func (r *Runner) detect(ctx context.Context, repoDir string) ([]types.Failure, error) {
	testResult, err := r.tests.Run(ctx, repoDir)
	if err != nil {
		return nil, fmt.Errorf("test execution: %w", err)
	}
	parsed := testexec.ParseOutput(testResult.Output())
	for i := range parsed {
		parsed[i].File = types.NormalizePath(parsed[i].File, repoDir)
	}

	static, err := analyzer.AnalyzeRepository(ctx, repoDir)
	if err != nil {
		return nil, fmt.Errorf("static analysis: %w", err)
	}

	return types.Merge(parsed, static), nil
}

func (r *Runner) persist(state *types.RunState) {
	if err := r.store.UpsertRun(state); err != nil {
		log.Printf("run %s: persist failed: %v", state.RunID, err)
	}
}
