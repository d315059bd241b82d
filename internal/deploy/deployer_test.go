package deploy

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"vpsdeploy/internal/config"
	"vpsdeploy/internal/execx"
	"vpsdeploy/internal/manifest"
	"vpsdeploy/internal/pm2"
)

const defaultPkg = `{"name": "webapp", "scripts": {"build": "next build", "start": "node server.js"}}`

func newTestDeployer(t *testing.T, pkg string, runner *execx.ScriptRunner) *Deployer {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "package.json"), []byte(pkg), 0644); err != nil {
		t.Fatalf("failed to write package.json: %v", err)
	}
	man, err := manifest.Load(dir)
	if err != nil {
		t.Fatalf("failed to load manifest: %v", err)
	}
	cfg := config.New()
	cfg.Deploy.User = "deploy"
	return New(runner, cfg, man, nil)
}

// baseRunner scripts a provisioned host: pm2 present, everything else
// succeeding.
func baseRunner() *execx.ScriptRunner {
	return execx.NewScriptRunner().Binary("pm2", true)
}

func TestCleanTreeSkipsStash(t *testing.T) {
	runner := baseRunner()
	d := newTestDeployer(t, defaultPkg, runner)

	rc, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rc.Stashed {
		t.Error("clean tree must not be stashed")
	}
	if runner.Ran("stash push") || runner.Ran("stash pop") {
		t.Errorf("no stash commands expected, calls: %v", runner.Calls)
	}
}

func TestDirtyTreeStashRoundTrip(t *testing.T) {
	runner := baseRunner().
		Script("status --porcelain", execx.Outcome{Output: " M server.js\n"})
	d := newTestDeployer(t, defaultPkg, runner)

	rc, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rc.Stashed || !rc.StashRestored {
		t.Errorf("expected stash round trip, got %+v", rc)
	}
	if runner.Count("stash push") != 1 || runner.Count("stash pop") != 1 {
		t.Errorf("expected exactly one push and one pop, calls: %v", runner.Calls)
	}
	if runner.Index("stash push") > runner.Index("fetch origin") {
		t.Error("stash must happen before fetch")
	}
	if runner.Index("stash pop") < runner.Index("pm2 save") {
		t.Error("stash restore must happen after the process list is persisted")
	}
}

func TestBranchSelectionPrefersPrimary(t *testing.T) {
	runner := baseRunner()
	d := newTestDeployer(t, defaultPkg, runner)

	rc, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rc.Branch != "main" {
		t.Errorf("expected main, got %q", rc.Branch)
	}
	if !runner.Ran("pull origin main") {
		t.Error("expected pull of main")
	}
}

func TestBranchSelectionFallsBack(t *testing.T) {
	runner := baseRunner().Fail("refs/remotes/origin/main", "")
	d := newTestDeployer(t, defaultPkg, runner)

	rc, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rc.Branch != "master" {
		t.Errorf("expected master fallback, got %q", rc.Branch)
	}
	if !runner.Ran("checkout master") || !runner.Ran("pull origin master") {
		t.Error("expected checkout and pull of master")
	}
}

func TestBranchSelectionFatalBeforePull(t *testing.T) {
	runner := baseRunner().
		Fail("refs/remotes/origin/main", "").
		Fail("refs/remotes/origin/master", "")
	d := newTestDeployer(t, defaultPkg, runner)

	_, err := d.Run(context.Background())
	if !errors.Is(err, ErrNoRemoteBranch) {
		t.Fatalf("expected ErrNoRemoteBranch, got %v", err)
	}
	if runner.Ran("pull origin") {
		t.Error("no pull may run when neither branch exists")
	}
}

func TestRollbackOnceWhenRestartFails(t *testing.T) {
	runner := baseRunner().
		Script("status --porcelain", execx.Outcome{Output: "?? new.txt\n"}).
		Fail("pm2 restart", "restart failed")
	d := newTestDeployer(t, defaultPkg, runner)

	rc, err := d.Run(context.Background())
	if err == nil {
		t.Fatal("expected restart failure to propagate")
	}
	if runner.Count("stash pop") != 1 {
		t.Errorf("expected exactly one restore attempt, got %d", runner.Count("stash pop"))
	}
	if !runner.Ran("pm2 logs") {
		t.Error("expected recent logs to be dumped on failure")
	}
	if !rc.StashRestored {
		t.Error("restore attempt must be recorded")
	}
}

func TestRollbackOnceWhenPersistFails(t *testing.T) {
	runner := baseRunner().
		Script("status --porcelain", execx.Outcome{Output: " M a\n"}).
		Fail("pm2 save", "save failed")
	d := newTestDeployer(t, defaultPkg, runner)

	if _, err := d.Run(context.Background()); err == nil {
		t.Fatal("expected persist failure to propagate")
	}
	if runner.Count("stash pop") != 1 {
		t.Errorf("expected exactly one restore attempt, got %d", runner.Count("stash pop"))
	}
}

func TestRollbackPopFailureIsNotEscalated(t *testing.T) {
	runner := baseRunner().
		Script("status --porcelain", execx.Outcome{Output: " M a\n"}).
		Fail("stash pop", "conflict")
	d := newTestDeployer(t, defaultPkg, runner)

	rc, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("pop failure on a successful run must stay best-effort, got %v", err)
	}
	if !rc.StashRestored {
		t.Error("restore attempt must be recorded even when it fails")
	}
}

func TestNoRestoreWhenFailureBeforeStash(t *testing.T) {
	runner := baseRunner().Fail("fetch origin", "network down")
	d := newTestDeployer(t, defaultPkg, runner)

	if _, err := d.Run(context.Background()); err == nil {
		t.Fatal("expected fetch failure to propagate")
	}
	if runner.Ran("stash pop") {
		t.Error("nothing was stashed, nothing may be restored")
	}
	if !runner.Ran("pm2 logs") {
		t.Error("expected recent logs on failure")
	}
}

func TestRestartWhenManaged(t *testing.T) {
	runner := baseRunner()
	d := newTestDeployer(t, defaultPkg, runner)

	if _, err := d.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !runner.Ran("pm2 restart webapp") {
		t.Error("expected in-place restart")
	}
	if runner.Ran("pm2 start npm") {
		t.Error("a managed process must never be started fresh in the same run")
	}
}

func TestStartWhenNotManaged(t *testing.T) {
	runner := baseRunner().Fail("pm2 describe", "")
	d := newTestDeployer(t, defaultPkg, runner)

	if _, err := d.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !runner.Ran("pm2 start npm --name webapp -- start") {
		t.Errorf("expected fresh start, calls: %v", runner.Calls)
	}
	if runner.Ran("pm2 restart") {
		t.Error("an unmanaged process must never be restarted")
	}
}

func TestStartWithoutStartActionIsFatal(t *testing.T) {
	runner := baseRunner().Fail("pm2 describe", "")
	d := newTestDeployer(t, `{"name": "webapp", "scripts": {"build": "tsc"}}`, runner)

	_, err := d.Run(context.Background())
	if !errors.Is(err, pm2.ErrNoStartAction) {
		t.Fatalf("expected ErrNoStartAction, got %v", err)
	}
}

func TestForceDeletesThenStarts(t *testing.T) {
	runner := baseRunner()
	d := newTestDeployer(t, defaultPkg, runner)
	d.Force = true

	if _, err := d.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if runner.Ran("pm2 restart") {
		t.Error("force mode must not restart in place")
	}
	del, start := runner.Index("pm2 delete webapp"), runner.Index("pm2 start npm")
	if del < 0 || start < 0 || del > start {
		t.Errorf("expected delete before fresh start, got %d/%d", del, start)
	}
}

func TestBuildRunsOnlyWhenDeclared(t *testing.T) {
	runner := baseRunner()
	d := newTestDeployer(t, defaultPkg, runner)

	rc, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rc.BuildRan || !runner.Ran("npm run build") {
		t.Error("expected declared build to run")
	}

	runner = baseRunner()
	d = newTestDeployer(t, `{"name": "webapp", "scripts": {"start": "node server.js"}}`, runner)
	rc, err = d.Run(context.Background())
	if err != nil {
		t.Fatalf("missing build script must be a normal skip, got %v", err)
	}
	if rc.BuildRan || runner.Ran("npm run build") {
		t.Error("undeclared build must be skipped")
	}
}

func TestPreconditionNotARepo(t *testing.T) {
	runner := baseRunner().Fail("rev-parse --is-inside-work-tree", "")
	d := newTestDeployer(t, defaultPkg, runner)

	_, err := d.Run(context.Background())
	if !errors.Is(err, ErrNotARepo) {
		t.Fatalf("expected ErrNotARepo, got %v", err)
	}
	if runner.Ran("fetch origin") || runner.Ran("stash") {
		t.Error("precondition failure must precede any mutation")
	}
}

func TestPreconditionNoSupervisor(t *testing.T) {
	runner := execx.NewScriptRunner() // pm2 binary absent
	d := newTestDeployer(t, defaultPkg, runner)

	_, err := d.Run(context.Background())
	if !errors.Is(err, ErrNoSupervisor) {
		t.Fatalf("expected ErrNoSupervisor, got %v", err)
	}
}

func TestSupervisorCommandsRunAsDeployUser(t *testing.T) {
	runner := baseRunner()
	d := newTestDeployer(t, defaultPkg, runner)

	if _, err := d.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	idx := runner.Index("pm2 save")
	if idx < 0 || runner.Calls[idx].User != "deploy" {
		t.Error("supervisor state must be owned by the deploy user")
	}
}
