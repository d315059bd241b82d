package nginx

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"

	"vpsdeploy/internal/execx"
	"vpsdeploy/internal/logger"
	"vpsdeploy/internal/platform"
)

var nlog = logger.PackageLogger("🌐 NGINX")

// siteTemplate proxies public port 80 to the local application port.
const siteTemplate = `server {
    listen 80;
    server_name _;

    location / {
        proxy_pass http://127.0.0.1:%d;
        proxy_http_version 1.1;
        proxy_set_header Upgrade $http_upgrade;
        proxy_set_header Connection 'upgrade';
        proxy_set_header Host $host;
        proxy_set_header X-Real-IP $remote_addr;
        proxy_cache_bypass $http_upgrade;
    }
}
`

// Configurator renders and activates the reverse-proxy site config for
// one application.
type Configurator struct {
	runner execx.Runner
	layout platform.NginxLayout
}

func New(runner execx.Runner, layout platform.NginxLayout) *Configurator {
	return &Configurator{runner: runner, layout: layout}
}

// ConfigPath returns the convention path for the rendered site config.
func (nc *Configurator) ConfigPath(appName string) string {
	if nc.layout == platform.SitesEnabled {
		return filepath.Join("/etc/nginx/sites-available", appName)
	}
	return filepath.Join("/etc/nginx/conf.d", appName+".conf")
}

// Configure renders the site config, activates it, validates the
// daemon config and restarts nginx. The restart is never attempted
// when validation fails; a broken config must not be served.
func (nc *Configurator) Configure(ctx context.Context, appName string, port int, stream io.Writer) error {
	logToStream(stream, "Configuring nginx reverse proxy...", color.FgYellow)

	target := nc.ConfigPath(appName)
	if err := nc.render(ctx, target, port, stream); err != nil {
		return err
	}
	if err := nc.activate(ctx, appName, target, stream); err != nil {
		return err
	}

	if _, err := nc.runner.Run(ctx, "sudo nginx -t", stream); err != nil {
		return fmt.Errorf("nginx config validation failed, daemon left untouched: %w", err)
	}

	cmds := []string{
		"sudo systemctl enable nginx",
		"sudo systemctl restart nginx",
	}
	for _, cmd := range cmds {
		if _, err := nc.runner.Run(ctx, cmd, stream); err != nil {
			return fmt.Errorf("nginx activation failed: %w", err)
		}
	}

	logToStream(stream, fmt.Sprintf("✓ Nginx proxying port 80 -> %d for %s", port, appName), color.FgGreen)
	return nil
}

// render writes the config to a temp file and moves it into place, so
// the target path never holds a partial write.
func (nc *Configurator) render(ctx context.Context, target string, port int, stream io.Writer) error {
	content := fmt.Sprintf(siteTemplate, port)

	tmp, err := os.CreateTemp("", "vpsdeploy-nginx-*.conf")
	if err != nil {
		return fmt.Errorf("failed to stage nginx config: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to stage nginx config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to stage nginx config: %w", err)
	}

	cmd := fmt.Sprintf("sudo mv %s %s && sudo chmod 644 %s", tmpPath, target, target)
	if _, err := nc.runner.Run(ctx, cmd, stream); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to install nginx config at %s: %w", target, err)
	}
	nlog.Debug("Rendered site config at %s", target)
	return nil
}

// activate removes the distribution default site and enables the new
// one. On the Debian layout that is a symlink into sites-enabled; on
// the conf.d layout the rendered file is already live.
func (nc *Configurator) activate(ctx context.Context, appName, target string, stream io.Writer) error {
	var cmds []string
	if nc.layout == platform.SitesEnabled {
		cmds = []string{
			"sudo rm -f /etc/nginx/sites-enabled/default",
			fmt.Sprintf("sudo ln -sf %s /etc/nginx/sites-enabled/%s", target, appName),
		}
	} else {
		cmds = []string{
			"sudo rm -f /etc/nginx/conf.d/default.conf",
		}
	}
	for _, cmd := range cmds {
		if _, err := nc.runner.Run(ctx, cmd, stream); err != nil {
			return fmt.Errorf("failed to activate nginx config: %w", err)
		}
	}
	return nil
}

func logToStream(stream io.Writer, message string, colorAttr color.Attribute) {
	if stream != nil {
		c := color.New(colorAttr)
		c.Fprintln(stream, message)
	}
}
