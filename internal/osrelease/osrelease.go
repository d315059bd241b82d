package osrelease

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"vpsdeploy/internal/logger"
)

const defaultPath = "/etc/os-release"

var (
	ErrUnsupportedPlatform = errors.New("unsupported platform: no os-release descriptor")

	oslog = logger.PackageLogger("🐧 OS")
)

// HostProfile holds the detected OS identity. It is detected exactly
// once per run; every later step branches on the same value.
type HostProfile struct {
	ID        string
	IDLike    []string
	VersionID string
}

// Detect reads /etc/os-release and builds the host profile.
func Detect() (*HostProfile, error) {
	return DetectFrom(defaultPath)
}

// DetectFrom parses an os-release style file at the given path.
func DetectFrom(path string) (*HostProfile, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, path)
		}
		return nil, fmt.Errorf("failed to read os-release: %w", err)
	}
	defer f.Close()

	profile := &HostProfile{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		value = strings.Trim(value, `"'`)
		switch key {
		case "ID":
			profile.ID = strings.ToLower(value)
		case "ID_LIKE":
			profile.IDLike = strings.Fields(strings.ToLower(value))
		case "VERSION_ID":
			profile.VersionID = value
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to parse os-release: %w", err)
	}
	if profile.ID == "" {
		return nil, fmt.Errorf("%w: missing ID field", ErrUnsupportedPlatform)
	}

	oslog.Debug("Detected host: id=%s like=%v version=%s", profile.ID, profile.IDLike, profile.VersionID)
	return profile, nil
}
