// Package testexec discovers and runs a repository's test suite and
// parses the output into structured failures.
package testexec

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/fixwright/fixwright/internal/sandbox"
)

// Result is the outcome of one test suite invocation.
type Result struct {
	Command  []string
	ExitCode int
	Stdout   string
	Stderr   string
}

// Output joins both streams for the failure parser.
func (r Result) Output() string {
	return strings.TrimSpace(r.Stdout + "\n" + r.Stderr)
}

// Engine runs test suites, sandboxed when a docker executor is present.
type Engine struct {
	executor *sandbox.Executor
	timeout  time.Duration
}

// NewEngine builds an engine. A nil executor means direct host
// execution, intended for local development only.
func NewEngine(executor *sandbox.Executor, timeout time.Duration) *Engine {
	if timeout <= 0 {
		timeout = 240 * time.Second
	}
	return &Engine{executor: executor, timeout: timeout}
}

// DetectCommand picks the test command from the project layout.
func DetectCommand(repoPath string) []string {
	if exists(repoPath, "pytest.ini") || exists(repoPath, "pyproject.toml") || hasMatch(repoPath, "test_*.py") {
		return []string{"python", "-m", "pytest", "-q"}
	}
	if exists(repoPath, "package.json") {
		return []string{"npm", "test", "--", "--watch=false"}
	}
	if exists(repoPath, "pom.xml") {
		return []string{"mvn", "-B", "test"}
	}
	if exists(repoPath, "build.gradle") || exists(repoPath, "build.gradle.kts") {
		return []string{"gradle", "test"}
	}
	if hasMatch(repoPath, "*.sln") || hasMatch(repoPath, "*.csproj") {
		return []string{"dotnet", "test"}
	}
	return []string{"python", "-m", "pytest", "-q"}
}

func exists(dir, name string) bool {
	_, err := os.Stat(filepath.Join(dir, name))
	return err == nil
}

// hasMatch reports whether any file under dir matches the glob pattern.
func hasMatch(dir, pattern string) bool {
	found := false
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || found {
			return filepath.SkipAll
		}
		if d.IsDir() {
			if name := d.Name(); name == ".git" || name == "node_modules" || name == "vendor" {
				return filepath.SkipDir
			}
			return nil
		}
		if ok, _ := filepath.Match(pattern, d.Name()); ok {
			found = true
			return filepath.SkipAll
		}
		return nil
	})
	return found
}

// Run executes the detected test command. Docker execution is preferred;
// an unreachable daemon degrades to host execution.
func (e *Engine) Run(ctx context.Context, repoPath string) (Result, error) {
	command := DetectCommand(repoPath)

	if e.executor != nil && e.executor.Healthcheck(ctx) {
		return e.runSandboxed(ctx, repoPath, command)
	}
	return e.runOnHost(ctx, repoPath, command)
}

func (e *Engine) runSandboxed(ctx context.Context, repoPath string, command []string) (Result, error) {
	containerID, err := e.executor.CreateContainer(ctx, repoPath, "")
	if err != nil {
		return Result{}, fmt.Errorf("create sandbox: %w", err)
	}
	defer e.executor.StopContainer(ctx, containerID)

	// Dependency bootstrap mirrors what CI images do lazily.
	switch command[0] {
	case "python":
		e.executor.Exec(ctx, containerID, []string{"pip", "install", "-q", "pytest"}, e.timeout)
	case "npm":
		e.executor.Exec(ctx, containerID, []string{"npm", "install", "--silent"}, e.timeout)
	}

	res := e.executor.Exec(ctx, containerID, command, e.timeout)
	return Result{
		Command:  command,
		ExitCode: res.ExitCode,
		Stdout:   res.Stdout,
		Stderr:   res.Stderr,
	}, nil
}

func (e *Engine) runOnHost(ctx context.Context, repoPath string, command []string) (Result, error) {
	execCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, command[0], command[1:]...)
	cmd.Dir = repoPath

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()

	result := Result{Command: command, Stdout: stdout.String(), Stderr: stderr.String()}
	switch {
	case execCtx.Err() == context.DeadlineExceeded:
		result.ExitCode = 124
		result.Stderr = fmt.Sprintf("command timed out after %s", e.timeout)
	case err != nil:
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
		} else {
			return result, fmt.Errorf("run %s: %w", strings.Join(command, " "), err)
		}
	}
	return result, nil
}
