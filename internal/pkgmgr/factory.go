package pkgmgr

import (
	"fmt"

	"vpsdeploy/internal/execx"
	"vpsdeploy/internal/logger"
	"vpsdeploy/internal/platform"
)

var pmlog = logger.PackageLogger("📦 PKG")

// New creates the package manager for a resolved platform family.
func New(family platform.PkgFamily, runner execx.Runner) (PackageManager, error) {
	switch family {
	case platform.Apt:
		return NewAptManager(runner), nil
	case platform.Dnf:
		return NewDnfManager(runner), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrPackageManagerNotSupported, family)
	}
}

// DetectFamily probes for package manager binaries when the OS id is
// not in the dispatch table.
func DetectFamily(runner execx.Runner) (platform.PkgFamily, error) {
	switch {
	case runner.Exists("apt-get"):
		pmlog.Debug("Detected apt-get on PATH")
		return platform.Apt, nil
	case runner.Exists("dnf"), runner.Exists("yum"):
		pmlog.Debug("Detected dnf/yum on PATH")
		return platform.Dnf, nil
	default:
		return "", fmt.Errorf("%w: no apt-get, dnf or yum binary found", ErrPackageManagerNotSupported)
	}
}
