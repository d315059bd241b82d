package noderuntime

import (
	"context"
	"fmt"
	"io"

	"vpsdeploy/internal/execx"
	"vpsdeploy/internal/logger"
	"vpsdeploy/internal/pkgmgr"
	"vpsdeploy/internal/platform"
)

var rlog = logger.PackageLogger("🟢 NODE")

// Install replaces any distro-packaged Node.js with a pinned major
// from the NodeSource repository. The replacement is destructive:
// whether other software depended on the old runtime is not checked.
func Install(ctx context.Context, runner execx.Runner, pm pkgmgr.PackageManager, plat platform.Platform, major int, stream io.Writer) error {
	installed, err := pm.IsInstalled(ctx, "nodejs")
	if err != nil {
		return fmt.Errorf("failed to check existing runtime: %w", err)
	}
	if installed {
		rlog.Warn("Removing previously installed nodejs package")
		if err := pm.Remove(ctx, []string{"nodejs"}, stream); err != nil {
			return &pkgmgr.InstallationError{Tool: "nodejs", Underlying: err}
		}
	}

	setupURL := fmt.Sprintf(plat.NodeSetupURL, major)
	bootstrap := fmt.Sprintf("curl -fsSL %s | sudo -E bash -", setupURL)
	if _, err := runner.Run(ctx, bootstrap, stream); err != nil {
		return &pkgmgr.InstallationError{Tool: "nodesource repository", Underlying: err}
	}

	if err := pm.Install(ctx, []string{"nodejs"}, stream); err != nil {
		return &pkgmgr.InstallationError{Tool: "nodejs", Underlying: err}
	}

	version, err := runner.Run(ctx, "node --version", nil)
	if err != nil {
		return fmt.Errorf("node installed but not runnable: %w", err)
	}
	rlog.Success("Node.js %s installed", trimmed(version))
	return nil
}

// InstallPM2 installs the process supervisor globally via npm.
func InstallPM2(ctx context.Context, runner execx.Runner, stream io.Writer) error {
	if runner.Exists("pm2") {
		rlog.Info("pm2 already installed, skipping")
		return nil
	}
	if _, err := runner.Run(ctx, "sudo npm install -g pm2", stream); err != nil {
		return &pkgmgr.InstallationError{Tool: "pm2", Underlying: err}
	}
	rlog.Success("pm2 installed globally")
	return nil
}

func trimmed(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
