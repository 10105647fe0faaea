// Package git wraps the git CLI for clone, branch, commit, and push, and
// polls GitHub Actions for CI verdicts.
package git

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"strings"

	"github.com/fixwright/fixwright/internal/policy"
)

// protectedBranches may never receive a direct push from the agent.
var protectedBranches = map[string]bool{"main": true, "master": true}

// Git runs repository operations through the git CLI.
type Git struct {
	gitPath string
	token   string
}

// NewGit locates git and verifies it runs. token may be empty for public
// repositories.
func NewGit(ctx context.Context, token string) (*Git, error) {
	gitPath, err := exec.LookPath("git")
	if err != nil {
		return nil, fmt.Errorf("git not found in PATH: %w", err)
	}
	if err := exec.CommandContext(ctx, gitPath, "version").Run(); err != nil {
		return nil, fmt.Errorf("git command failed: %w", err)
	}
	return &Git{gitPath: gitPath, token: token}, nil
}

// ParseOwnerRepo extracts the owner and repository name from an https
// GitHub URL, tolerating a trailing .git.
func ParseOwnerRepo(repoURL string) (string, string, error) {
	parsed, err := url.Parse(repoURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid repository URL: %w", err)
	}
	path := strings.TrimSuffix(strings.Trim(parsed.Path, "/"), ".git")
	parts := strings.Split(path, "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GitHub repository URL: %s", repoURL)
	}
	return parts[0], parts[1], nil
}

// injectToken embeds the access token into an https clone URL.
func injectToken(repoURL, token string) string {
	if token == "" || !strings.HasPrefix(repoURL, "https://") {
		return repoURL
	}
	return strings.Replace(repoURL, "https://", "https://x-access-token:"+token+"@", 1)
}

// Clone clones repoURL into targetPath. An existing target is reused so
// a resumed run does not re-clone.
func (g *Git) Clone(ctx context.Context, repoURL, targetPath string) error {
	if _, err := os.Stat(targetPath); err == nil {
		return nil
	}
	cmd := exec.CommandContext(ctx, g.gitPath, "clone", injectToken(repoURL, g.token), targetPath)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("git clone failed: %w: %s", err, sanitize(string(out), g.token))
	}
	return nil
}

// CreateBranch fetches, resolves the base ref, and checks the work
// branch out, creating it if needed.
func (g *Git) CreateBranch(ctx context.Context, repoPath, branchName string) error {
	if err := g.run(ctx, repoPath, "fetch", "origin"); err != nil {
		return err
	}

	baseRef := ""
	for _, candidate := range []string{"origin/main", "origin/master"} {
		if g.run(ctx, repoPath, "rev-parse", "--verify", candidate) == nil {
			baseRef = candidate
			break
		}
	}
	if baseRef == "" {
		head, err := g.output(ctx, repoPath, "rev-parse", "--abbrev-ref", "HEAD")
		if err != nil {
			return fmt.Errorf("unable to resolve base branch: %w", err)
		}
		baseRef = strings.TrimSpace(head)
	}

	if g.run(ctx, repoPath, "rev-parse", "--verify", branchName) == nil {
		return g.run(ctx, repoPath, "checkout", branchName)
	}
	return g.run(ctx, repoPath, "checkout", "-b", branchName, baseRef)
}

// Commit stages everything and commits with the policy prefix applied.
// Returns false with the final message when the tree was already clean.
func (g *Git) Commit(ctx context.Context, repoPath, message string) (bool, string, error) {
	final := policy.EnsureCommitPrefix(message)

	if err := g.run(ctx, repoPath, "add", "-A"); err != nil {
		return false, final, err
	}

	status, err := g.output(ctx, repoPath, "status", "--porcelain")
	if err != nil {
		return false, final, err
	}
	if strings.TrimSpace(status) == "" {
		return false, final, nil
	}

	if err := g.run(ctx, repoPath, "commit", "-m", final); err != nil {
		return false, final, err
	}
	return true, final, nil
}

// Push pushes the work branch upstream. Pushing a protected branch is
// refused outright.
func (g *Git) Push(ctx context.Context, repoPath, branchName string) error {
	current, err := g.CurrentBranch(ctx, repoPath)
	if err != nil {
		return err
	}
	if IsProtectedBranch(current) {
		return fmt.Errorf("refusing to push to protected branch %q", current)
	}
	return g.run(ctx, repoPath, "push", "--set-upstream", "origin",
		fmt.Sprintf("%s:%s", branchName, branchName))
}

// CurrentBranch returns the checked out branch name.
func (g *Git) CurrentBranch(ctx context.Context, repoPath string) (string, error) {
	out, err := g.output(ctx, repoPath, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// IsProtectedBranch reports whether the agent must never push the branch.
func IsProtectedBranch(name string) bool {
	return protectedBranches[strings.ToLower(name)]
}

func (g *Git) run(ctx context.Context, repoPath string, args ...string) error {
	full := append([]string{"-C", repoPath}, args...)
	cmd := exec.CommandContext(ctx, g.gitPath, full...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("git %s failed in %s: %w: %s",
			args[0], repoPath, err, sanitize(string(out), g.token))
	}
	return nil
}

func (g *Git) output(ctx context.Context, repoPath string, args ...string) (string, error) {
	full := append([]string{"-C", repoPath}, args...)
	out, err := exec.CommandContext(ctx, g.gitPath, full...).Output()
	if err != nil {
		return "", fmt.Errorf("git %s failed in %s: %w", args[0], repoPath, err)
	}
	return string(out), nil
}

// sanitize strips the access token from command output before it can
// land in logs or error messages.
func sanitize(out, token string) string {
	if token == "" {
		return strings.TrimSpace(out)
	}
	return strings.TrimSpace(strings.ReplaceAll(out, token, "***"))
}
