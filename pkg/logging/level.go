package logging

// Level is a log level. Levels are ordered, so a logger emits a message if the
// message's level is less than or equal to the logger's level.
type Level uint

const (
	// LevelDisabled suppresses all output.
	LevelDisabled Level = iota
	// LevelError reports failures that stop an operation, such as a backend
	// that can't be constructed or a server loop exiting with an error.
	LevelError
	// LevelWarn additionally reports degraded operation, such as backend event
	// queue overflows and fallback to the unavailable backend.
	LevelWarn
	// LevelInfo additionally reports lifecycle information, such as the
	// selected backend.
	LevelInfo
	// LevelDebug additionally reports per-directory diagnostics, such as
	// discovery failures, dropped events and dropped records.
	LevelDebug
	// LevelTrace additionally reports every decoded backend event.
	LevelTrace
)

// levelNames are the names of each level, indexed by level.
var levelNames = [...]string{
	LevelDisabled: "disabled",
	LevelError:    "error",
	LevelWarn:     "warn",
	LevelInfo:     "info",
	LevelDebug:    "debug",
	LevelTrace:    "trace",
}

// LevelNames returns the names of all levels in increasing order of verbosity.
func LevelNames() []string {
	names := make([]string, len(levelNames))
	copy(names, levelNames[:])
	return names
}

// NameToLevel converts a level name, as used in configuration files and the
// DIRNOTIFY_LOG_LEVEL environment variable, to a Level. If the name isn't
// recognized, then LevelDisabled and false are returned.
func NameToLevel(name string) (Level, bool) {
	for level, candidate := range levelNames {
		if candidate == name {
			return Level(level), true
		}
	}
	return LevelDisabled, false
}

// String returns the level's name.
func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "unknown"
}
