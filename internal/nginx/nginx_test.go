package nginx

import (
	"context"
	"strings"
	"testing"

	"vpsdeploy/internal/execx"
	"vpsdeploy/internal/platform"
)

func TestConfigureValidatesBeforeRestart(t *testing.T) {
	runner := execx.NewScriptRunner()
	nc := New(runner, platform.SitesEnabled)

	if err := nc.Configure(context.Background(), "webapp", 3000, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	validate := runner.Index("nginx -t")
	restart := runner.Index("systemctl restart nginx")
	install := runner.Index("sudo mv")
	if validate < 0 || restart < 0 || install < 0 {
		t.Fatalf("missing expected commands, calls: %v", runner.Calls)
	}
	if !(install < validate && validate < restart) {
		t.Errorf("expected install < validate < restart ordering, got %d/%d/%d", install, validate, restart)
	}
}

func TestConfigureNeverRestartsOnFailedValidation(t *testing.T) {
	runner := execx.NewScriptRunner().Fail("nginx -t", "nginx: configuration file test failed")
	nc := New(runner, platform.SitesEnabled)

	err := nc.Configure(context.Background(), "webapp", 3000, nil)
	if err == nil {
		t.Fatal("expected validation failure to propagate")
	}
	if runner.Ran("systemctl restart nginx") {
		t.Error("daemon must not be restarted after failed validation")
	}
	if runner.Ran("systemctl enable nginx") {
		t.Error("daemon must not be enabled after failed validation")
	}
}

func TestConfigureDebianLayout(t *testing.T) {
	runner := execx.NewScriptRunner()
	nc := New(runner, platform.SitesEnabled)

	if got := nc.ConfigPath("webapp"); got != "/etc/nginx/sites-available/webapp" {
		t.Errorf("unexpected config path %q", got)
	}
	if err := nc.Configure(context.Background(), "webapp", 3000, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !runner.Ran("rm -f /etc/nginx/sites-enabled/default") {
		t.Error("default site must be removed")
	}
	if !runner.Ran("ln -sf /etc/nginx/sites-available/webapp /etc/nginx/sites-enabled/webapp") {
		t.Error("site must be activated by symlink")
	}
}

func TestConfigureConfDLayout(t *testing.T) {
	runner := execx.NewScriptRunner()
	nc := New(runner, platform.ConfD)

	if got := nc.ConfigPath("webapp"); got != "/etc/nginx/conf.d/webapp.conf" {
		t.Errorf("unexpected config path %q", got)
	}
	if err := nc.Configure(context.Background(), "webapp", 3000, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !runner.Ran("rm -f /etc/nginx/conf.d/default.conf") {
		t.Error("default conf must be removed")
	}
	if runner.Ran("ln -sf") {
		t.Error("conf.d layout must not symlink")
	}
}

func TestSiteTemplateUsesUpstreamPort(t *testing.T) {
	runner := execx.NewScriptRunner()
	nc := New(runner, platform.ConfD)

	if err := nc.Configure(context.Background(), "webapp", 4321, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// The rendered temp file is moved into place; the template itself
	// must carry the upstream port.
	if !strings.Contains(siteTemplate, "proxy_pass http://127.0.0.1:%d;") {
		t.Error("template must proxy to the local upstream port")
	}
}
