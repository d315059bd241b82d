package firewall

import (
	"context"
	"fmt"
	"io"

	"vpsdeploy/internal/execx"
	"vpsdeploy/internal/logger"
)

var flog = logger.PackageLogger("🔥 FIREWALL")

// Configure opens ssh, http and https and persists the change. An
// absent firewall tool means there is nothing to configure, not an
// error.
func Configure(ctx context.Context, runner execx.Runner, stream io.Writer) error {
	switch {
	case runner.Exists("ufw"):
		return configureUfw(ctx, runner, stream)
	case runner.Exists("firewall-cmd"):
		return configureFirewalld(ctx, runner, stream)
	default:
		flog.Warn("No supported firewall tool found (ufw/firewall-cmd), skipping")
		return nil
	}
}

func configureUfw(ctx context.Context, runner execx.Runner, stream io.Writer) error {
	cmds := []string{
		"sudo ufw allow OpenSSH",
		"sudo ufw allow http",
		"sudo ufw allow https",
		"sudo ufw --force enable",
	}
	for _, cmd := range cmds {
		if _, err := runner.Run(ctx, cmd, stream); err != nil {
			return fmt.Errorf("ufw configuration failed: %w", err)
		}
	}
	flog.Success("ufw configured: ssh, http, https open")
	return nil
}

func configureFirewalld(ctx context.Context, runner execx.Runner, stream io.Writer) error {
	cmds := []string{
		"sudo firewall-cmd --permanent --add-service=ssh",
		"sudo firewall-cmd --permanent --add-service=http",
		"sudo firewall-cmd --permanent --add-service=https",
		"sudo firewall-cmd --reload",
	}
	for _, cmd := range cmds {
		if _, err := runner.Run(ctx, cmd, stream); err != nil {
			return fmt.Errorf("firewalld configuration failed: %w", err)
		}
	}
	flog.Success("firewalld configured: ssh, http, https open")
	return nil
}
