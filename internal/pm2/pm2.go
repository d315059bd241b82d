package pm2

import (
	"context"
	"errors"
	"fmt"
	"io"

	"vpsdeploy/internal/execx"
	"vpsdeploy/internal/logger"
)

var (
	// ErrNoStartAction means the process is not supervised yet and the
	// manifest declares no start script to launch it with.
	ErrNoStartAction = errors.New("process is not running and no start script is declared")

	plog = logger.PackageLogger("♻️ PM2")
)

// Supervisor wraps the pm2 command surface for one named process.
type Supervisor struct {
	runner execx.Runner
	user   string
}

func New(runner execx.Runner, user string) *Supervisor {
	return &Supervisor{runner: runner, user: user}
}

// Available reports whether the pm2 binary is installed.
func (s *Supervisor) Available() bool {
	return s.runner.Exists("pm2")
}

// IsManaged reports whether a process with this name is already
// supervised.
func (s *Supervisor) IsManaged(ctx context.Context, name string) bool {
	cmd := fmt.Sprintf("pm2 describe %s >/dev/null 2>&1", name)
	_, err := s.runner.RunAs(ctx, s.user, cmd, nil)
	return err == nil
}

// Restart issues an in-place restart of an already supervised process.
func (s *Supervisor) Restart(ctx context.Context, name string, stream io.Writer) error {
	if _, err := s.runner.RunAs(ctx, s.user, "pm2 restart "+name, stream); err != nil {
		return fmt.Errorf("pm2 restart failed: %w", err)
	}
	plog.Success("Restarted %s", name)
	return nil
}

// StartNpm launches the process fresh via the manifest's start script.
func (s *Supervisor) StartNpm(ctx context.Context, name, dir string, stream io.Writer) error {
	cmd := fmt.Sprintf("cd %s && pm2 start npm --name %s -- start", dir, name)
	if _, err := s.runner.RunAs(ctx, s.user, cmd, stream); err != nil {
		return fmt.Errorf("pm2 start failed: %w", err)
	}
	plog.Success("Started %s under pm2", name)
	return nil
}

// Delete removes a process from supervision, tolerating absence.
func (s *Supervisor) Delete(ctx context.Context, name string, stream io.Writer) error {
	cmd := fmt.Sprintf("pm2 delete %s || true", name)
	if _, err := s.runner.RunAs(ctx, s.user, cmd, stream); err != nil {
		return fmt.Errorf("pm2 delete failed: %w", err)
	}
	return nil
}

// Save persists the current process list so it survives reboots.
func (s *Supervisor) Save(ctx context.Context, stream io.Writer) error {
	if _, err := s.runner.RunAs(ctx, s.user, "pm2 save", stream); err != nil {
		return fmt.Errorf("pm2 save failed: %w", err)
	}
	return nil
}

// Logs dumps or streams recent log lines for a process.
func (s *Supervisor) Logs(ctx context.Context, name string, lines int, follow bool, stream io.Writer) error {
	cmd := fmt.Sprintf("pm2 logs %s --lines %d", name, lines)
	if !follow {
		cmd += " --nostream"
	}
	_, err := s.runner.RunAs(ctx, s.user, cmd, stream)
	return err
}

// RegisterStartup installs the boot-time hook so supervised processes
// come back after a reboot. The hook runs for the deploy user, not
// root. Whether registration actually took effect is not verified;
// the original tooling never checked either.
func (s *Supervisor) RegisterStartup(ctx context.Context, home string, stream io.Writer) error {
	cmd := fmt.Sprintf("pm2 startup systemd -u %s --hp %s", s.user, home)
	out, err := s.runner.Run(ctx, cmd, stream)
	if err != nil {
		return fmt.Errorf("pm2 startup registration failed: %w", err)
	}
	plog.Debug("pm2 startup output: %s", out)
	return nil
}
