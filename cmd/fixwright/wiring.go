package main

import (
	"context"

	"github.com/fixwright/fixwright/internal/git"
	"github.com/fixwright/fixwright/internal/runner"
	"github.com/fixwright/fixwright/internal/sandbox"
	"github.com/fixwright/fixwright/internal/storage"
	"github.com/fixwright/fixwright/internal/testexec"
)

// buildRunner wires the collaborators from the loaded configuration.
// The caller owns the returned store and must Close it.
func buildRunner(ctx context.Context) (*runner.Runner, *storage.Store, error) {
	store, err := storage.Open(cfg.DataDir)
	if err != nil {
		return nil, nil, err
	}

	gitClient, err := git.NewGit(ctx, cfg.GitHubToken)
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	var executor *sandbox.Executor
	if cfg.UseDocker {
		executor = sandbox.NewExecutor(cfg.DockerImage)
	}
	engine := testexec.NewEngine(executor, cfg.TestTimeout)
	poller := git.NewCIPoller(cfg.GitHubToken, cfg.CIPollInterval, cfg.CIPollTimeout)

	r := runner.New(store, gitClient, poller, engine, cfg.WorkspaceDir, cfg.DefaultRetryLimit)
	return r, store, nil
}
