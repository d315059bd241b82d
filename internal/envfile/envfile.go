package envfile

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"vpsdeploy/internal/logger"
)

var elog = logger.PackageLogger("🔑 ENV")

// Load reads the project's .env into the process environment so the
// dependency install and build steps see it. A missing file is a
// normal skip.
func Load(projectDir string) error {
	path := filepath.Join(projectDir, ".env")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		elog.Debug("No .env in %s, skipping", projectDir)
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return err
	}
	elog.Debug("Loaded environment from %s", path)
	return nil
}
