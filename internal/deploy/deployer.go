package deploy

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"

	"vpsdeploy/internal/config"
	"vpsdeploy/internal/envfile"
	"vpsdeploy/internal/execx"
	"vpsdeploy/internal/gitops"
	"vpsdeploy/internal/logger"
	"vpsdeploy/internal/manifest"
	"vpsdeploy/internal/npmdeps"
	"vpsdeploy/internal/pm2"
)

const rollbackLogLines = 50

var (
	ErrNotARepo       = errors.New("project directory is not version-controlled")
	ErrNoSupervisor   = errors.New("pm2 is not installed; provision the host first")
	ErrNoRemoteBranch = errors.New("neither the primary nor the fallback branch exists on origin")

	deplog = logger.PackageLogger("🚀 DEPLOY")
)

// RunContext carries the outcome flags of a single deploy invocation.
// It exists only to decide rollback and reporting; it is discarded at
// process exit.
type RunContext struct {
	Stashed       bool
	StashRestored bool
	BuildRan      bool
	Branch        string
}

// Deployer runs the pull-build-restart cycle against an already
// provisioned host.
type Deployer struct {
	runner execx.Runner
	git    *gitops.Git
	sup    *pm2.Supervisor
	cfg    *config.Config
	man    *manifest.AppManifest
	stream io.Writer

	// Force tears the supervised process down and starts it fresh
	// instead of restarting in place.
	Force bool
}

func New(runner execx.Runner, cfg *config.Config, man *manifest.AppManifest, stream io.Writer) *Deployer {
	return &Deployer{
		runner: runner,
		git:    gitops.New(runner, man.Dir()),
		sup:    pm2.New(runner, cfg.Deploy.User),
		cfg:    cfg,
		man:    man,
		stream: stream,
	}
}

// AppName returns the config override when set, else the manifest name.
func (d *Deployer) AppName() string {
	if d.cfg.App.Name != "" {
		return d.cfg.App.Name
	}
	return d.man.Name
}

// Run executes the deploy state machine:
//
//	CLEAN_CHECK -> STASH? -> FETCH -> BRANCH_SELECT -> PULL ->
//	DEPENDENCY_INSTALL -> BUILD? -> RESTART -> PERSIST -> STASH_RESTORE?
//
// Any failure after the stash triggers exactly one restore attempt and
// a recent-log dump before the error is returned.
func (d *Deployer) Run(ctx context.Context) (*RunContext, error) {
	rc := &RunContext{}

	// Preconditions: no mutation happens past this point unless both
	// hold.
	if !d.git.IsRepo(ctx) {
		return rc, ErrNotARepo
	}
	if !d.sup.Available() {
		return rc, ErrNoSupervisor
	}

	dirty, err := d.git.IsDirty(ctx)
	if err != nil {
		return rc, err
	}
	if dirty {
		d.stepLine("Working tree dirty, stashing local changes")
		if err := d.git.StashPush(ctx, d.stream); err != nil {
			return rc, err
		}
		rc.Stashed = true
	}

	runErr := d.sync(ctx, rc)
	d.finish(ctx, rc, runErr)
	return rc, runErr
}

// sync covers every step between the stash and its restore.
func (d *Deployer) sync(ctx context.Context, rc *RunContext) error {
	d.stepLine("Fetching from origin")
	if err := d.git.Fetch(ctx, d.stream); err != nil {
		return err
	}

	branch, err := d.selectBranch(ctx)
	if err != nil {
		return err
	}
	rc.Branch = branch

	d.stepLine("Pulling " + branch)
	if err := d.git.Checkout(ctx, branch, d.stream); err != nil {
		return err
	}
	if err := d.git.Pull(ctx, branch, d.stream); err != nil {
		return err
	}

	if err := envfile.Load(d.man.Dir()); err != nil {
		deplog.Warn("Failed to load .env: %v", err)
	}

	d.stepLine("Installing dependencies")
	if err := npmdeps.Install(ctx, d.runner, d.man, d.cfg.Deploy.User, d.stream); err != nil {
		return err
	}

	if d.man.HasBuild() {
		d.stepLine("Building " + d.AppName())
		cmd := fmt.Sprintf("cd %s && npm run build", d.man.Dir())
		if _, err := d.runner.RunAs(ctx, d.cfg.Deploy.User, cmd, d.stream); err != nil {
			return fmt.Errorf("build failed: %w", err)
		}
		rc.BuildRan = true
	} else {
		deplog.Info("No build script declared, skipping build")
	}

	if err := d.restartOrStart(ctx); err != nil {
		return err
	}

	d.stepLine("Persisting process list")
	return d.sup.Save(ctx, d.stream)
}

// selectBranch prefers the primary branch, falls back to the
// secondary, and fails before any pull when neither exists on origin.
func (d *Deployer) selectBranch(ctx context.Context) (string, error) {
	primary := d.cfg.Repository.Branch
	fallback := d.cfg.Repository.Fallback

	if d.git.RemoteBranchExists(ctx, primary) {
		return primary, nil
	}
	deplog.Warn("Branch %s not found on origin, trying %s", primary, fallback)
	if fallback != "" && d.git.RemoteBranchExists(ctx, fallback) {
		return fallback, nil
	}
	return "", fmt.Errorf("%w (%s, %s)", ErrNoRemoteBranch, primary, fallback)
}

// restartOrStart restarts the process in place when it is already
// supervised, otherwise starts it fresh from the declared start
// action. --force always takes the delete-then-start path.
func (d *Deployer) restartOrStart(ctx context.Context) error {
	name := d.AppName()

	if d.Force {
		d.stepLine("Force mode: removing " + name + " before fresh start")
		if err := d.sup.Delete(ctx, name, d.stream); err != nil {
			return err
		}
		return d.freshStart(ctx, name)
	}

	if d.sup.IsManaged(ctx, name) {
		d.stepLine("Restarting " + name)
		return d.sup.Restart(ctx, name, d.stream)
	}
	return d.freshStart(ctx, name)
}

func (d *Deployer) freshStart(ctx context.Context, name string) error {
	if !d.man.HasStart() {
		return pm2.ErrNoStartAction
	}
	d.stepLine("Starting " + name)
	return d.sup.StartNpm(ctx, name, d.man.Dir(), d.stream)
}

// finish runs on every exit path. It makes at most one stash-restore
// attempt and, when the run failed, surfaces recent supervisor logs.
// A restore failure is logged, never escalated: the exit status stays
// whatever the run produced.
func (d *Deployer) finish(ctx context.Context, rc *RunContext, runErr error) {
	if rc.Stashed && !rc.StashRestored {
		rc.StashRestored = true
		if err := d.git.StashPop(ctx, d.stream); err != nil {
			deplog.Warn("Failed to restore stashed changes: %v", err)
		}
	}

	if runErr != nil {
		deplog.Error("Deploy failed: %v", runErr)
		d.stepLine("Recent logs for " + d.AppName())
		if err := d.sup.Logs(ctx, d.AppName(), rollbackLogLines, false, d.stream); err != nil {
			deplog.Warn("Failed to fetch recent logs: %v", err)
		}
	}
}

// StreamLogs follows the supervisor logs after a successful run.
func (d *Deployer) StreamLogs(ctx context.Context) error {
	return d.sup.Logs(ctx, d.AppName(), rollbackLogLines, true, d.stream)
}

func (d *Deployer) stepLine(message string) {
	if d.stream != nil {
		color.New(color.FgYellow).Fprintln(d.stream, "▶ "+message)
	}
}
