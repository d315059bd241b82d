package npmdeps

import (
	"context"
	"fmt"
	"io"

	"vpsdeploy/internal/execx"
	"vpsdeploy/internal/logger"
	"vpsdeploy/internal/manifest"
)

var dlog = logger.PackageLogger("📦 DEPS")

// Install resolves project dependencies. With a lockfile it prefers
// the reproducible `npm ci`, falling back to `npm install` when the
// lockfile is missing or the reproducible path fails. The install runs
// as the project-owning user so the dependency tree is never
// root-owned.
func Install(ctx context.Context, runner execx.Runner, m *manifest.AppManifest, user string, stream io.Writer) error {
	if m.HasLockfile() {
		dlog.Info("Lockfile found, running reproducible install")
		if _, err := runner.RunAs(ctx, user, inDir(m.Dir(), "npm ci"), stream); err == nil {
			return nil
		}
		dlog.Warn("npm ci failed, falling back to npm install")
	} else {
		dlog.Info("No lockfile, running npm install")
	}

	if _, err := runner.RunAs(ctx, user, inDir(m.Dir(), "npm install"), stream); err != nil {
		return fmt.Errorf("dependency installation failed: %w", err)
	}
	return nil
}

func inDir(dir, cmd string) string {
	return fmt.Sprintf("cd %s && %s", dir, cmd)
}
