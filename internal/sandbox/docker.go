// Package sandbox runs repository code inside Docker containers so test
// execution stays isolated from the host. The only host access a
// container gets is the workspace bind mount.
package sandbox

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// timeoutExitCode mirrors the shell convention for a killed command.
const timeoutExitCode = 124

// ExecResult is the outcome of one command inside a container.
type ExecResult struct {
	ContainerID string
	ExitCode    int
	Stdout      string
	Stderr      string
}

// Output joins stdout and stderr the way test output parsers expect.
func (r ExecResult) Output() string {
	return strings.TrimSpace(r.Stdout + "\n" + r.Stderr)
}

// Executor manages sandbox containers through the docker CLI.
type Executor struct {
	image string

	mu         sync.Mutex
	containers []string
}

// NewExecutor creates an executor using the given image for new
// containers.
func NewExecutor(image string) *Executor {
	return &Executor{image: image}
}

// Healthcheck reports whether the docker daemon is reachable.
func (e *Executor) Healthcheck(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return exec.CommandContext(ctx, "docker", "version").Run() == nil
}

// CreateContainer creates and starts an idle container with workDir
// mounted at /workspace. The caller owns the returned container id and
// must StopContainer it.
func (e *Executor) CreateContainer(ctx context.Context, workDir, name string) (string, error) {
	args := createArgs(e.image, workDir, name)
	out, err := exec.CommandContext(ctx, "docker", args...).Output()
	if err != nil {
		return "", fmt.Errorf("docker create failed: %w", err)
	}
	id := strings.TrimSpace(string(out))

	if err := exec.CommandContext(ctx, "docker", "start", id).Run(); err != nil {
		return "", fmt.Errorf("docker start %s failed: %w", id, err)
	}

	e.mu.Lock()
	e.containers = append(e.containers, id)
	e.mu.Unlock()
	return id, nil
}

func createArgs(image, workDir, name string) []string {
	if name == "" {
		name = fmt.Sprintf("sandbox-%d", time.Now().UnixNano())
	}
	return []string{
		"create", "-it", "--rm",
		"-v", workDir + ":/workspace",
		"-w", "/workspace",
		"--name", name,
		image,
		"sleep", "infinity",
	}
}

// Exec runs a command inside the container with a hard timeout. A timed
// out command yields exit code 124 rather than an error; callers treat
// it as a test failure, not an infrastructure fault.
func (e *Executor) Exec(ctx context.Context, containerID string, command []string, timeout time.Duration) ExecResult {
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := append([]string{"exec", containerID}, command...)
	cmd := exec.CommandContext(execCtx, "docker", args...)

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()

	result := ExecResult{
		ContainerID: containerID,
		Stdout:      stdout.String(),
		Stderr:      stderr.String(),
	}

	switch {
	case execCtx.Err() == context.DeadlineExceeded:
		result.ExitCode = timeoutExitCode
		result.Stderr = fmt.Sprintf("command timed out after %s", timeout)
	case err != nil:
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = 1
			if result.Stderr == "" {
				result.Stderr = err.Error()
			}
		}
	}
	return result
}

// StopContainer stops and removes a container. Errors are ignored;
// --rm containers often disappear on their own.
func (e *Executor) StopContainer(ctx context.Context, containerID string) {
	_ = exec.CommandContext(ctx, "docker", "stop", containerID).Run()
	_ = exec.CommandContext(ctx, "docker", "rm", containerID).Run()

	e.mu.Lock()
	defer e.mu.Unlock()
	for i, id := range e.containers {
		if id == containerID {
			e.containers = append(e.containers[:i], e.containers[i+1:]...)
			break
		}
	}
}

// CleanupAll stops every container this executor created.
func (e *Executor) CleanupAll(ctx context.Context) {
	e.mu.Lock()
	tracked := make([]string, len(e.containers))
	copy(tracked, e.containers)
	e.mu.Unlock()

	for _, id := range tracked {
		e.StopContainer(ctx, id)
	}
}
