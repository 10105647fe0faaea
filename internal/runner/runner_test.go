package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixwright/fixwright/internal/git"
	"github.com/fixwright/fixwright/internal/policy"
	"github.com/fixwright/fixwright/internal/storage"
	"github.com/fixwright/fixwright/internal/testexec"
	"github.com/fixwright/fixwright/internal/types"
)

type fakeGit struct {
	cloneErr  error
	commitErr error
	pushErr   error
	commits   []string
	pushCount int
}

func (f *fakeGit) Clone(ctx context.Context, repoURL, targetPath string) error {
	if f.cloneErr != nil {
		return f.cloneErr
	}
	return os.MkdirAll(targetPath, 0o755)
}

func (f *fakeGit) CreateBranch(ctx context.Context, repoPath, branchName string) error {
	return nil
}

func (f *fakeGit) Commit(ctx context.Context, repoPath, message string) (bool, string, error) {
	if f.commitErr != nil {
		return false, "", f.commitErr
	}
	final := policy.EnsureCommitPrefix(message)
	f.commits = append(f.commits, final)
	return true, final, nil
}

func (f *fakeGit) Push(ctx context.Context, repoPath, branchName string) error {
	f.pushCount++
	return f.pushErr
}

type fakeCI struct {
	status git.CIStatus
	url    string
	onPoll func()
}

func (f *fakeCI) Poll(ctx context.Context, owner, repo, branch string) (git.CIStatus, string) {
	if f.onPoll != nil {
		f.onPoll()
	}
	return f.status, f.url
}

type fakeTests struct {
	output string
}

func (f *fakeTests) Run(ctx context.Context, repoPath string) (testexec.Result, error) {
	return testexec.Result{Command: []string{"python", "-m", "pytest", "-q"}, Stdout: f.output}, nil
}

func newTestRunner(t *testing.T, gitc GitClient, ci CIWatcher, tests TestRunner) (*Runner, *storage.Store, string) {
	t.Helper()
	dataDir := t.TempDir()
	workspaceDir := t.TempDir()
	store, err := storage.Open(dataDir)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return New(store, gitc, ci, tests, workspaceDir, 5), store, workspaceDir
}

func validRequest(retryLimit int) types.RunRequest {
	return types.RunRequest{
		RepositoryURL:  "https://github.com/acme/widgets",
		TeamName:       "Acme",
		TeamLeaderName: "Jo",
		RetryLimit:     retryLimit,
	}
}

func TestStartRunPersistsQueuedState(t *testing.T) {
	r, store, _ := newTestRunner(t, &fakeGit{}, &fakeCI{status: git.CIPassed}, &fakeTests{})

	runID, err := r.StartRun(validRequest(3))
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	state, err := store.GetRun(runID)
	require.NoError(t, err)
	assert.Equal(t, types.RunQueued, state.Status)
	assert.Equal(t, "ACME_JO_AI_Fix", state.BranchName)
	assert.Equal(t, 100, state.Score.FinalScore)
}

func TestStartRunRejectsInvalidRequest(t *testing.T) {
	r, _, _ := newTestRunner(t, &fakeGit{}, &fakeCI{}, &fakeTests{})

	_, err := r.StartRun(types.RunRequest{RepositoryURL: "ftp://nope", TeamName: "A", TeamLeaderName: "B", RetryLimit: 3})
	assert.Error(t, err)
}

func TestExecuteRunPassesOnCleanRepo(t *testing.T) {
	ci := &fakeCI{status: git.CIPassed, url: "https://github.com/acme/widgets/actions/runs/1"}
	gitc := &fakeGit{}
	r, store, _ := newTestRunner(t, gitc, ci, &fakeTests{output: "5 passed in 0.2s"})

	runID, err := r.StartRun(validRequest(3))
	require.NoError(t, err)
	r.ExecuteRun(context.Background(), runID, validRequest(3))

	state, err := store.GetRun(runID)
	require.NoError(t, err)
	assert.Equal(t, types.RunPassed, state.Status)
	assert.Empty(t, gitc.commits, "clean repo needs no commit")
	assert.Equal(t, 1, gitc.pushCount)
	assert.Equal(t, ci.url, state.CIWorkflowURL)
	require.Len(t, state.Timeline, 1)
	assert.Equal(t, types.RunPassed, state.Timeline[0].Status)
	require.NotNil(t, state.CompletedAt)
	require.NotNil(t, state.DurationSeconds)
	assert.Equal(t, 110, state.Score.FinalScore, "fast run earns the speed bonus")
}

func TestExecuteRunFixesDetectedFailures(t *testing.T) {
	gitc := &fakeGit{}
	r, store, workspaceDir := newTestRunner(t, gitc, &fakeCI{status: git.CIPassed}, &fakeTests{output: "ok"})

	runID, err := r.StartRun(validRequest(3))
	require.NoError(t, err)

	repoDir := filepath.Join(workspaceDir, runID)
	require.NoError(t, os.MkdirAll(repoDir, 0o755))
	source := "import os\n\nprint(\"hello\")\n"
	target := filepath.Join(repoDir, "app.py")
	require.NoError(t, os.WriteFile(target, []byte(source), 0o644))

	r.ExecuteRun(context.Background(), runID, validRequest(3))

	patched, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.NotContains(t, string(patched), "import os")

	state, err := store.GetRun(runID)
	require.NoError(t, err)
	assert.Equal(t, types.RunPassed, state.Status)
	assert.Equal(t, 1, state.CommitCount)
	assert.Equal(t, 1, state.TotalFixesApplied)
	assert.Equal(t, 1, state.TotalFailuresDetected)
	require.Len(t, gitc.commits, 1)
	assert.Equal(t, "[AI-AGENT] Iteration 1: apply 1 autonomous fixes", gitc.commits[0])
	require.Len(t, state.Fixes, 1)
	assert.Equal(t, types.FixApplied, state.Fixes[0].Status)
	assert.Equal(t, gitc.commits[0], state.Fixes[0].CommitMessage)
	assert.Equal(t, types.CategoryLinting, state.Fixes[0].Category)
}

func TestExecuteRunExhaustsRetryBudgetWhenCIStaysRed(t *testing.T) {
	r, store, _ := newTestRunner(t, &fakeGit{}, &fakeCI{status: git.CIFailed}, &fakeTests{output: "ok"})

	runID, err := r.StartRun(validRequest(2))
	require.NoError(t, err)
	r.ExecuteRun(context.Background(), runID, validRequest(2))

	state, err := store.GetRun(runID)
	require.NoError(t, err)
	assert.Equal(t, types.RunFailed, state.Status)
	assert.Len(t, state.Timeline, 2)
	for _, entry := range state.Timeline {
		assert.Equal(t, types.RunFailed, entry.Status)
		assert.Equal(t, 2, entry.RetryLimit)
	}
}

func TestExecuteRunSurvivesPushFailure(t *testing.T) {
	gitc := &fakeGit{pushErr: errors.New("remote rejected")}
	r, store, _ := newTestRunner(t, gitc, &fakeCI{status: git.CIPassed}, &fakeTests{output: "ok"})

	runID, err := r.StartRun(validRequest(1))
	require.NoError(t, err)
	r.ExecuteRun(context.Background(), runID, validRequest(1))

	state, err := store.GetRun(runID)
	require.NoError(t, err)
	assert.Equal(t, types.RunPassed, state.Status, "push failure degrades to polling existing CI")
}

func TestExecuteRunRecordsCloneError(t *testing.T) {
	gitc := &fakeGit{cloneErr: errors.New("authentication failed")}
	r, store, _ := newTestRunner(t, gitc, &fakeCI{status: git.CIPassed}, &fakeTests{output: "ok"})

	runID, err := r.StartRun(validRequest(3))
	require.NoError(t, err)
	r.ExecuteRun(context.Background(), runID, validRequest(3))

	state, err := store.GetRun(runID)
	require.NoError(t, err)
	assert.Equal(t, types.RunFailed, state.Status)
	assert.Contains(t, state.ErrorMessage, "authentication failed")
	require.NotNil(t, state.CompletedAt)
}

func TestExecuteRunWritesResultsFile(t *testing.T) {
	dataDir := t.TempDir()
	store, err := storage.Open(dataDir)
	require.NoError(t, err)
	defer store.Close()
	r := New(store, &fakeGit{}, &fakeCI{status: git.CIPassed}, &fakeTests{output: "ok"}, t.TempDir(), 5)

	runID, err := r.StartRun(validRequest(1))
	require.NoError(t, err)
	r.ExecuteRun(context.Background(), runID, validRequest(1))

	_, err = os.Stat(filepath.Join(dataDir, fmt.Sprintf("results_%s.json", runID)))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dataDir, "results.json"))
	assert.NoError(t, err)
}

func TestResumeRejectsRunningRun(t *testing.T) {
	r, store, _ := newTestRunner(t, &fakeGit{}, &fakeCI{status: git.CIPassed}, &fakeTests{output: "ok"})

	runID, err := r.StartRun(validRequest(3))
	require.NoError(t, err)
	state, err := store.GetRun(runID)
	require.NoError(t, err)
	state.Status = types.RunRunning
	require.NoError(t, store.UpsertRun(state))

	assert.Error(t, r.Resume(context.Background(), runID))
}

func TestResumeReusesTimelineRetryLimit(t *testing.T) {
	ci := &fakeCI{status: git.CIFailed}
	r, store, _ := newTestRunner(t, &fakeGit{}, ci, &fakeTests{output: "ok"})

	runID, err := r.StartRun(validRequest(2))
	require.NoError(t, err)
	r.ExecuteRun(context.Background(), runID, validRequest(2))

	require.NoError(t, r.Resume(context.Background(), runID))

	state, err := store.GetRun(runID)
	require.NoError(t, err)
	assert.Equal(t, types.RunFailed, state.Status)
	assert.Len(t, state.Timeline, 4, "resume keeps the original retry limit of 2")
}

func TestLedgerNeverResubmitsFixedKeys(t *testing.T) {
	book := newLedger()
	f := types.Failure{File: "app.py", Line: 3, Category: types.CategoryLinting, Message: "unused import"}

	batch := book.candidates([]types.Failure{f})
	require.Len(t, batch, 1)

	book.fixed[f.Key()] = true
	batch = book.candidates([]types.Failure{f})
	assert.Empty(t, batch)
	assert.Len(t, book.seen, 1)
}

func TestExecuteRunExposesDetectedCountMidRun(t *testing.T) {
	ci := &fakeCI{status: git.CIFailed}
	gitc := &fakeGit{}
	r, store, workspaceDir := newTestRunner(t, gitc, ci, &fakeTests{output: "ok"})

	runID, err := r.StartRun(validRequest(2))
	require.NoError(t, err)

	repoDir := filepath.Join(workspaceDir, runID)
	require.NoError(t, os.MkdirAll(repoDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(repoDir, "app.py"), []byte("import os\n\nprint(\"hi\")\n"), 0o644))

	var midRun []int
	ci.onPoll = func() {
		state, err := store.GetRun(runID)
		require.NoError(t, err)
		midRun = append(midRun, state.TotalFailuresDetected)
	}

	r.ExecuteRun(context.Background(), runID, validRequest(2))

	// The snapshot persisted after iteration 1 already carries the count
	// observed by the second iteration's CI poll.
	require.Len(t, midRun, 2)
	assert.Equal(t, 1, midRun[1])

	state, err := store.GetRun(runID)
	require.NoError(t, err)
	assert.Equal(t, 1, state.TotalFailuresDetected)
}

func TestExecuteRunRecordsIterationCutShortByError(t *testing.T) {
	gitc := &fakeGit{commitErr: errors.New("index locked")}
	r, store, workspaceDir := newTestRunner(t, gitc, &fakeCI{status: git.CIPassed}, &fakeTests{output: "ok"})

	runID, err := r.StartRun(validRequest(3))
	require.NoError(t, err)

	repoDir := filepath.Join(workspaceDir, runID)
	require.NoError(t, os.MkdirAll(repoDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(repoDir, "app.py"), []byte("import os\n\nprint(\"hi\")\n"), 0o644))

	r.ExecuteRun(context.Background(), runID, validRequest(3))

	state, err := store.GetRun(runID)
	require.NoError(t, err)
	assert.Equal(t, types.RunFailed, state.Status)
	assert.Contains(t, state.ErrorMessage, "index locked")
	require.Len(t, state.Timeline, 1)
	assert.Equal(t, 1, state.Timeline[0].Iteration)
	assert.Equal(t, types.RunFailed, state.Timeline[0].Status)
}
