package pkgmgr

import (
	"context"
	"fmt"
	"io"
	"strings"

	"vpsdeploy/internal/execx"
)

// DnfManager implements PackageManager for DNF/YUM systems
type DnfManager struct {
	runner execx.Runner
}

func NewDnfManager(runner execx.Runner) *DnfManager {
	return &DnfManager{runner: runner}
}

func (dm *DnfManager) Family() string { return "dnf" }

func (dm *DnfManager) Update(ctx context.Context, stream io.Writer) error {
	// Try DNF first (newer systems), fall back to YUM
	cmd := "if command -v dnf >/dev/null; then sudo dnf makecache -y; else sudo yum makecache -y; fi"
	if _, err := dm.runner.Run(ctx, cmd, stream); err != nil {
		return fmt.Errorf("failed to update package index: %w", err)
	}
	return nil
}

func (dm *DnfManager) Install(ctx context.Context, packages []string, stream io.Writer) error {
	list := strings.Join(packages, " ")
	cmd := fmt.Sprintf(
		"if command -v dnf >/dev/null; then sudo dnf install -y %s; else sudo yum install -y %s; fi",
		list, list,
	)
	output, err := dm.runner.Run(ctx, cmd, stream)
	if err != nil {
		return fmt.Errorf("failed to install packages: %w", err)
	}
	if strings.Contains(output, "No match for argument") {
		return fmt.Errorf("%w: %s", ErrPackageInstallationFailed, list)
	}
	return nil
}

func (dm *DnfManager) IsInstalled(ctx context.Context, packageName string) (bool, error) {
	cmd := fmt.Sprintf(
		"if command -v dnf >/dev/null; then "+
			"dnf list installed %[1]s >/dev/null 2>&1 && echo 'installed' || echo 'not installed'; "+
			"else "+
			"yum list installed %[1]s >/dev/null 2>&1 && echo 'installed' || echo 'not installed'; "+
			"fi",
		packageName,
	)
	output, err := dm.runner.Run(ctx, cmd, nil)
	if err != nil {
		return false, fmt.Errorf("failed to check package installation: %w", err)
	}
	return !strings.Contains(output, "not installed"), nil
}

func (dm *DnfManager) Remove(ctx context.Context, packages []string, stream io.Writer) error {
	list := strings.Join(packages, " ")
	cmd := fmt.Sprintf(
		"if command -v dnf >/dev/null; then sudo dnf remove -y %s; else sudo yum remove -y %s; fi",
		list, list,
	)
	if _, err := dm.runner.Run(ctx, cmd, stream); err != nil {
		return fmt.Errorf("failed to remove packages: %w", err)
	}
	return nil
}
