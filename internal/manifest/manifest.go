package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"vpsdeploy/internal/logger"
)

var (
	ErrNoManifest = errors.New("no package.json found")
	ErrNoName     = errors.New("package.json declares no application name")

	mlog = logger.PackageLogger("📄 MANIFEST")
)

// AppManifest is the project descriptor read from package.json. It is
// read-only: name plus the lifecycle actions the deployer may use.
type AppManifest struct {
	Name    string            `json:"name"`
	Scripts map[string]string `json:"scripts"`

	dir string
}

// Load parses package.json in the project directory. A missing file or
// an empty name is a fatal precondition for every mutating step, so
// both are returned as errors rather than defaults.
func Load(projectDir string) (*AppManifest, error) {
	path := filepath.Join(projectDir, "package.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w in %s", ErrNoManifest, projectDir)
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	m := &AppManifest{dir: projectDir}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if m.Name == "" {
		return nil, ErrNoName
	}

	mlog.Debug("Loaded manifest for %q (%d scripts)", m.Name, len(m.Scripts))
	return m, nil
}

// HasBuild reports whether the project declares a build action.
// Absence is a normal skip, not an error.
func (m *AppManifest) HasBuild() bool {
	_, ok := m.Scripts["build"]
	return ok
}

// HasStart reports whether the project declares a start action.
func (m *AppManifest) HasStart() bool {
	_, ok := m.Scripts["start"]
	return ok
}

// HasLockfile reports whether a package-lock.json exists, enabling the
// reproducible install path.
func (m *AppManifest) HasLockfile() bool {
	_, err := os.Stat(filepath.Join(m.dir, "package-lock.json"))
	return err == nil
}

// Dir returns the project directory the manifest was loaded from.
func (m *AppManifest) Dir() string {
	return m.dir
}
