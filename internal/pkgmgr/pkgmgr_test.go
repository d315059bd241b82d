package pkgmgr

import (
	"context"
	"errors"
	"strings"
	"testing"

	"vpsdeploy/internal/execx"
	"vpsdeploy/internal/platform"
)

func TestNewSelectsManagerPerFamily(t *testing.T) {
	runner := execx.NewScriptRunner()

	pm, err := New(platform.Apt, runner)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pm.Family() != "apt" {
		t.Errorf("expected apt manager, got %q", pm.Family())
	}

	pm, err = New(platform.Dnf, runner)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pm.Family() != "dnf" {
		t.Errorf("expected dnf manager, got %q", pm.Family())
	}

	if _, err := New("pacman", runner); !errors.Is(err, ErrPackageManagerNotSupported) {
		t.Fatalf("expected ErrPackageManagerNotSupported, got %v", err)
	}
}

func TestDetectFamilyProbesBinaries(t *testing.T) {
	runner := execx.NewScriptRunner().Binary("apt-get", true)
	family, err := DetectFamily(runner)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if family != platform.Apt {
		t.Errorf("expected apt, got %q", family)
	}

	runner = execx.NewScriptRunner().Binary("yum", true)
	family, err = DetectFamily(runner)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if family != platform.Dnf {
		t.Errorf("expected dnf, got %q", family)
	}

	runner = execx.NewScriptRunner()
	if _, err := DetectFamily(runner); !errors.Is(err, ErrPackageManagerNotSupported) {
		t.Fatalf("expected ErrPackageManagerNotSupported, got %v", err)
	}
}

func TestAptInstallCommandShape(t *testing.T) {
	runner := execx.NewScriptRunner()
	am := NewAptManager(runner)

	if err := am.Install(context.Background(), []string{"curl", "git"}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(runner.Calls) != 1 {
		t.Fatalf("expected one command, got %d", len(runner.Calls))
	}
	cmd := runner.Calls[0].Command
	if !strings.Contains(cmd, "apt-get install -y curl git") {
		t.Errorf("malformed install command: %q", cmd)
	}
	if !strings.Contains(cmd, "DEBIAN_FRONTEND=noninteractive") {
		t.Errorf("apt install must be non-interactive: %q", cmd)
	}
}

func TestAptInstallPropagatesFailure(t *testing.T) {
	runner := execx.NewScriptRunner().Fail("apt-get install", "E: broken")
	am := NewAptManager(runner)

	err := am.Install(context.Background(), []string{"nginx"}, nil)
	if err == nil {
		t.Fatal("expected install failure to propagate")
	}
	var ce *execx.CommandError
	if !errors.As(err, &ce) {
		t.Fatalf("expected wrapped CommandError, got %v", err)
	}
}

func TestAptInstallDetectsMissingPackage(t *testing.T) {
	runner := execx.NewScriptRunner().
		Script("apt-get install", execx.Outcome{Output: "E: Unable to locate package nosuch"})
	am := NewAptManager(runner)

	err := am.Install(context.Background(), []string{"nosuch"}, nil)
	if !errors.Is(err, ErrPackageInstallationFailed) {
		t.Fatalf("expected ErrPackageInstallationFailed, got %v", err)
	}
}

func TestAptIsInstalled(t *testing.T) {
	runner := execx.NewScriptRunner().
		Script("dpkg -l nginx", execx.Outcome{Output: "installed\n"}).
		Script("dpkg -l nodejs", execx.Outcome{Output: "not installed\n"})
	am := NewAptManager(runner)

	ok, err := am.IsInstalled(context.Background(), "nginx")
	if err != nil || !ok {
		t.Fatalf("expected nginx installed, got ok=%t err=%v", ok, err)
	}
	ok, err = am.IsInstalled(context.Background(), "nodejs")
	if err != nil || ok {
		t.Fatalf("expected nodejs absent, got ok=%t err=%v", ok, err)
	}
}

func TestDnfCommandsFallBackToYum(t *testing.T) {
	runner := execx.NewScriptRunner()
	dm := NewDnfManager(runner)

	if err := dm.Install(context.Background(), []string{"nginx"}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cmd := runner.Calls[0].Command
	if !strings.Contains(cmd, "dnf install -y nginx") || !strings.Contains(cmd, "yum install -y nginx") {
		t.Errorf("expected dnf-then-yum install command, got %q", cmd)
	}
}
