package pkgmgr

import (
	"context"
	"fmt"
	"io"
	"strings"

	"vpsdeploy/internal/execx"
)

// AptManager implements PackageManager for APT systems
type AptManager struct {
	runner execx.Runner
}

func NewAptManager(runner execx.Runner) *AptManager {
	return &AptManager{runner: runner}
}

func (am *AptManager) Family() string { return "apt" }

func (am *AptManager) Update(ctx context.Context, stream io.Writer) error {
	_, err := am.runner.Run(ctx, "sudo apt-get update -y", stream)
	if err != nil {
		return fmt.Errorf("failed to update package index: %w", err)
	}
	return nil
}

func (am *AptManager) Install(ctx context.Context, packages []string, stream io.Writer) error {
	cmd := fmt.Sprintf("sudo DEBIAN_FRONTEND=noninteractive apt-get install -y %s", strings.Join(packages, " "))
	output, err := am.runner.Run(ctx, cmd, stream)
	if err != nil {
		return fmt.Errorf("failed to install packages: %w", err)
	}
	if strings.Contains(output, "Unable to locate package") {
		return fmt.Errorf("%w: %s", ErrPackageInstallationFailed, strings.Join(packages, ", "))
	}
	return nil
}

func (am *AptManager) IsInstalled(ctx context.Context, packageName string) (bool, error) {
	cmd := fmt.Sprintf("dpkg -l %s 2>/dev/null | grep -q ^ii && echo 'installed' || echo 'not installed'", packageName)
	output, err := am.runner.Run(ctx, cmd, nil)
	if err != nil {
		return false, fmt.Errorf("failed to check package installation: %w", err)
	}
	return !strings.Contains(output, "not installed"), nil
}

func (am *AptManager) Remove(ctx context.Context, packages []string, stream io.Writer) error {
	cmd := fmt.Sprintf("sudo DEBIAN_FRONTEND=noninteractive apt-get remove -y %s", strings.Join(packages, " "))
	if _, err := am.runner.Run(ctx, cmd, stream); err != nil {
		return fmt.Errorf("failed to remove packages: %w", err)
	}
	return nil
}
