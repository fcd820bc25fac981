package dirnotify

import (
	"os"
)

const (
	// LogLevelEnvironmentVariable is the environment variable that overrides
	// the configured log level when set.
	LogLevelEnvironmentVariable = "DIRNOTIFY_LOG_LEVEL"
	// BackendEnvironmentVariable is the environment variable that overrides
	// the configured backend preference when set.
	BackendEnvironmentVariable = "DIRNOTIFY_BACKEND"
)

// LogLevelOverride is the log level name specified in the environment, if any.
// It is set automatically based on LogLevelEnvironmentVariable.
var LogLevelOverride string

// BackendOverride is the backend preference specified in the environment, if
// any. It is set automatically based on BackendEnvironmentVariable.
var BackendOverride string

func init() {
	LogLevelOverride = os.Getenv(LogLevelEnvironmentVariable)
	BackendOverride = os.Getenv(BackendEnvironmentVariable)
}
