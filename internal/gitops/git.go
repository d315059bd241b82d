package gitops

import (
	"context"
	"fmt"
	"io"
	"strings"

	"vpsdeploy/internal/execx"
	"vpsdeploy/internal/logger"
)

const stashMessage = "vpsdeploy: auto-stash before deploy"

var glog = logger.PackageLogger("🌿 GIT")

// Git wraps the version control operations the deployer needs, all
// executed in one project directory.
type Git struct {
	runner execx.Runner
	dir    string
}

func New(runner execx.Runner, dir string) *Git {
	return &Git{runner: runner, dir: dir}
}

func (g *Git) run(ctx context.Context, args string, stream io.Writer) (string, error) {
	return g.runner.Run(ctx, fmt.Sprintf("git -C %s %s", g.dir, args), stream)
}

// IsRepo reports whether the project directory is version-controlled.
func (g *Git) IsRepo(ctx context.Context) bool {
	_, err := g.run(ctx, "rev-parse --is-inside-work-tree", nil)
	return err == nil
}

// IsDirty reports uncommitted changes in the working tree or index.
func (g *Git) IsDirty(ctx context.Context) (bool, error) {
	out, err := g.run(ctx, "status --porcelain", nil)
	if err != nil {
		return false, fmt.Errorf("failed to check working tree state: %w", err)
	}
	return strings.TrimSpace(out) != "", nil
}

// StashPush stores uncommitted changes, untracked files included.
func (g *Git) StashPush(ctx context.Context, stream io.Writer) error {
	_, err := g.run(ctx, fmt.Sprintf("stash push --include-untracked -m %q", stashMessage), stream)
	if err != nil {
		return fmt.Errorf("git stash failed: %w", err)
	}
	glog.Info("Stashed local changes")
	return nil
}

// StashPop restores the most recent stash.
func (g *Git) StashPop(ctx context.Context, stream io.Writer) error {
	if _, err := g.run(ctx, "stash pop", stream); err != nil {
		return fmt.Errorf("git stash pop failed: %w", err)
	}
	glog.Info("Restored stashed changes")
	return nil
}

// Fetch updates remote tracking refs.
func (g *Git) Fetch(ctx context.Context, stream io.Writer) error {
	if _, err := g.run(ctx, "fetch origin --prune", stream); err != nil {
		return fmt.Errorf("git fetch failed: %w", err)
	}
	return nil
}

// RemoteBranchExists probes origin for a branch ref.
func (g *Git) RemoteBranchExists(ctx context.Context, branch string) bool {
	_, err := g.run(ctx, fmt.Sprintf("show-ref --verify --quiet refs/remotes/origin/%s", branch), nil)
	return err == nil
}

// Checkout switches the working tree to a branch.
func (g *Git) Checkout(ctx context.Context, branch string, stream io.Writer) error {
	if _, err := g.run(ctx, "checkout "+branch, stream); err != nil {
		return fmt.Errorf("git checkout %s failed: %w", branch, err)
	}
	return nil
}

// Pull integrates the remote branch. Kept as a plain pull to match the
// original behavior on diverged trees.
func (g *Git) Pull(ctx context.Context, branch string, stream io.Writer) error {
	if _, err := g.run(ctx, "pull origin "+branch, stream); err != nil {
		return fmt.Errorf("git pull failed: %w", err)
	}
	return nil
}
