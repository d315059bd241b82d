package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"vpsdeploy/internal/logger"
)

// FileName is the optional per-project override file.
const FileName = "vpsdeploy.yml"

var clog = logger.PackageLogger("↪ CONFIG")

// Config holds the tunables both commands share. Everything has a
// working default; the yaml file only overrides.
type Config struct {
	App struct {
		// Name overrides the manifest name when set.
		Name string `yaml:"name"`
		// Port is the local upstream port nginx proxies to.
		Port int `yaml:"port"`
	} `yaml:"app"`
	Node struct {
		// Major is the pinned Node.js major version to install.
		Major int `yaml:"major"`
	} `yaml:"node"`
	Repository struct {
		// Branch is preferred; Fallback is tried when Branch has no
		// remote ref.
		Branch   string `yaml:"branch"`
		Fallback string `yaml:"fallback"`
	} `yaml:"repository"`
	Deploy struct {
		// User owns the project tree and the supervisor process list.
		User string `yaml:"user"`
	} `yaml:"deploy"`
}

// New creates a Config with default values.
func New() *Config {
	cfg := &Config{}
	cfg.App.Port = 3000
	cfg.Node.Major = 20
	cfg.Repository.Branch = "main"
	cfg.Repository.Fallback = "master"
	cfg.Deploy.User = deployUser()
	return cfg
}

// Load reads vpsdeploy.yml from the project directory when present.
// A missing file is not an error: defaults apply.
func Load(projectDir string) (*Config, error) {
	cfg := New()
	path := filepath.Join(projectDir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			clog.Debug("No %s, using defaults", FileName)
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	clog.Debug("Loaded overrides from %s", path)
	return cfg, nil
}

// deployUser picks the account that should own dependency trees and
// supervisor state: the invoking user behind sudo, not root.
func deployUser() string {
	if u := os.Getenv("SUDO_USER"); u != "" {
		return u
	}
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "root"
}
