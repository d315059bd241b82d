package failfast

import (
	"os"

	"vpsdeploy/internal/logger"
)

type ErrorLevel int

const (
	Ignore ErrorLevel = iota // do nothing, just log
	Warn                     // log a Warning
	Error                    // log an Error and exit with code 1
)

var failfastLogger = logger.PackageLogger("🚨 FAILFAST")

// Failfast enforces the error policy: every failure exits with code 1,
// every skip is logged. No retries, no distinct codes per failure kind.
func Failfast(err error, level ErrorLevel, message string) {
	if err == nil {
		return
	}
	switch level {
	case Ignore:
		failfastLogger.Debug("%s: %v (ignored)", message, err)
	case Warn:
		failfastLogger.Warn("%s: %v", message, err)
	case Error:
		failfastLogger.Error("%s: %v", message, err)
		os.Exit(1)
	}
}
