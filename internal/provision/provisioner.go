package provision

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"

	"vpsdeploy/internal/config"
	"vpsdeploy/internal/execx"
	"vpsdeploy/internal/firewall"
	"vpsdeploy/internal/logger"
	"vpsdeploy/internal/manifest"
	"vpsdeploy/internal/nginx"
	"vpsdeploy/internal/noderuntime"
	"vpsdeploy/internal/npmdeps"
	"vpsdeploy/internal/osrelease"
	"vpsdeploy/internal/pkgmgr"
	"vpsdeploy/internal/platform"
	"vpsdeploy/internal/pm2"
	"vpsdeploy/internal/preflight"
)

var provlog = logger.PackageLogger("🔧 PROVISION")

// Provisioner prepares a fresh host to run one Node.js application
// behind nginx under pm2. Steps run strictly in order and the first
// failure aborts the run.
type Provisioner struct {
	runner  execx.Runner
	cfg     *config.Config
	man     *manifest.AppManifest
	profile *osrelease.HostProfile
	stream  io.Writer

	// SkipPreflight disables the host resource report, used by tests.
	SkipPreflight bool
}

func New(runner execx.Runner, cfg *config.Config, man *manifest.AppManifest, profile *osrelease.HostProfile, stream io.Writer) *Provisioner {
	return &Provisioner{
		runner:  runner,
		cfg:     cfg,
		man:     man,
		profile: profile,
		stream:  stream,
	}
}

// AppName returns the config override when set, else the manifest name.
func (p *Provisioner) AppName() string {
	if p.cfg.App.Name != "" {
		return p.cfg.App.Name
	}
	return p.man.Name
}

// Run executes the full provisioning sequence.
func (p *Provisioner) Run(ctx context.Context) error {
	plat, err := p.resolvePlatform()
	if err != nil {
		return err
	}
	pm, err := pkgmgr.New(plat.Pkg, p.runner)
	if err != nil {
		return err
	}
	provlog.Info("Provisioning %s host (os=%s) for app %q", plat.Family, p.profile.ID, p.AppName())

	if !p.SkipPreflight {
		if err := p.step(ctx, "Host preflight", func() error {
			return preflightCheck()
		}); err != nil {
			return err
		}
	}

	steps := []struct {
		name string
		fn   func() error
	}{
		{"Update package index", func() error {
			return pm.Update(ctx, p.stream)
		}},
		{"Install base packages", func() error {
			return pm.Install(ctx, plat.BasePackages, p.stream)
		}},
		{"Install Node.js runtime", func() error {
			return noderuntime.Install(ctx, p.runner, pm, plat, p.cfg.Node.Major, p.stream)
		}},
		{"Install pm2 process manager", func() error {
			return noderuntime.InstallPM2(ctx, p.runner, p.stream)
		}},
		{"Install nginx", func() error {
			return pm.Install(ctx, []string{"nginx"}, p.stream)
		}},
		{"Configure reverse proxy", func() error {
			nc := nginx.New(p.runner, plat.Nginx)
			return nc.Configure(ctx, p.AppName(), p.cfg.App.Port, p.stream)
		}},
		{"Configure firewall", func() error {
			return firewall.Configure(ctx, p.runner, p.stream)
		}},
		{"Register pm2 startup hook", func() error {
			sup := pm2.New(p.runner, p.cfg.Deploy.User)
			return sup.RegisterStartup(ctx, homeDir(p.cfg.Deploy.User), p.stream)
		}},
		{"Install application dependencies", func() error {
			return npmdeps.Install(ctx, p.runner, p.man, p.cfg.Deploy.User, p.stream)
		}},
	}

	for _, s := range steps {
		if err := p.step(ctx, s.name, s.fn); err != nil {
			return err
		}
	}

	p.printSummary()
	return nil
}

func (p *Provisioner) step(ctx context.Context, name string, fn func() error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	logToStream(p.stream, "▶ "+name, color.FgYellow)
	if err := fn(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	logToStream(p.stream, "✓ "+name, color.FgGreen)
	return nil
}

// resolvePlatform dispatches on the detected OS id, falling back to
// probing for a package manager binary when the id is unrecognized.
func (p *Provisioner) resolvePlatform() (platform.Platform, error) {
	if plat, ok := platform.Resolve(p.profile); ok {
		return plat, nil
	}
	provlog.Warn("Unrecognized OS id %q, probing for a package manager", p.profile.ID)
	family, err := pkgmgr.DetectFamily(p.runner)
	if err != nil {
		return platform.Platform{}, err
	}
	return platform.ForFamily(family), nil
}

func (p *Provisioner) printSummary() {
	provlog.Success("Host provisioned for %s", p.AppName())
	summary := []string{
		"Next manual steps:",
		fmt.Sprintf("  1. Point your domain's DNS at this host (nginx listens on port 80, upstream %d).", p.cfg.App.Port),
		"  2. Run the pm2 startup command above with sudo if it printed one.",
		fmt.Sprintf("  3. Run 'vpsdeploy deploy' in the project directory to start %s.", p.AppName()),
	}
	for _, line := range summary {
		logToStream(p.stream, line, color.FgCyan)
	}
}

func preflightCheck() error {
	_, err := preflight.Check()
	return err
}

func homeDir(user string) string {
	if user == "root" {
		return "/root"
	}
	return "/home/" + user
}

func logToStream(stream io.Writer, message string, colorAttr color.Attribute) {
	if stream != nil {
		c := color.New(colorAttr)
		c.Fprintln(stream, message)
	}
}
