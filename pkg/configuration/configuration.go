package configuration

import (
	"os"

	"github.com/pkg/errors"

	"github.com/mutagen-io/dirnotify/pkg/encoding"
	"github.com/mutagen-io/dirnotify/pkg/logging"
)

const (
	// DefaultLogLevel is the default log level name.
	DefaultLogLevel = "info"
	// DefaultBackendPreference is the default backend preference.
	DefaultBackendPreference = "auto"
	// DefaultEventBuffer is the default capacity of the channel used to relay
	// raw event batches from the modern backend to the request loop.
	DefaultEventBuffer = 64
)

// backendPreferences is the set of recognized backend preference names.
var backendPreferences = map[string]bool{
	"auto":     true,
	"inotify":  true,
	"fsnotify": true,
	"dnotify":  true,
	"none":     true,
}

// Configuration is the YAML configuration object type for the notification
// server.
type Configuration struct {
	// Logging is the logging configuration.
	Logging struct {
		// Level is the name of the log level.
		Level string `yaml:"level"`
	} `yaml:"logging"`
	// Backend is the notification backend configuration.
	Backend struct {
		// Preference is the backend preference. It must be one of auto,
		// inotify, fsnotify, dnotify, or none.
		Preference string `yaml:"preference"`
		// EventBuffer is the capacity of the raw event batch channel.
		EventBuffer int `yaml:"eventBuffer"`
	} `yaml:"backend"`
	// Watch is the per-watch configuration.
	Watch struct {
		// MaximumPendingRecords is the maximum number of undelivered change
		// records retained per watch. Records beyond this limit are dropped. A
		// value of 0 indicates no limit.
		MaximumPendingRecords int `yaml:"maximumPendingRecords"`
	} `yaml:"watch"`
}

// Default returns a configuration populated with default values.
func Default() *Configuration {
	result := &Configuration{}
	result.Logging.Level = DefaultLogLevel
	result.Backend.Preference = DefaultBackendPreference
	result.Backend.EventBuffer = DefaultEventBuffer
	return result
}

// Load attempts to load a YAML-based configuration file from the specified
// path. Values not specified in the file retain their defaults. If the file
// doesn't exist, then the default configuration is returned.
func Load(path string) (*Configuration, error) {
	// Create the target configuration object with defaults.
	result := Default()

	// Attempt to load.
	if err := encoding.LoadAndUnmarshalYAML(path, result); err != nil {
		if os.IsNotExist(err) {
			return result, nil
		}
		return nil, errors.Wrap(err, "unable to load configuration")
	}

	// Validate the result.
	if err := result.EnsureValid(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	// Success.
	return result, nil
}

// EnsureValid ensures that the configuration is valid.
func (c *Configuration) EnsureValid() error {
	// A nil configuration is not valid.
	if c == nil {
		return errors.New("nil configuration")
	}

	// Validate the log level.
	if _, ok := logging.NameToLevel(c.Logging.Level); !ok {
		return errors.Errorf("invalid log level: %s", c.Logging.Level)
	}

	// Validate the backend settings.
	if !backendPreferences[c.Backend.Preference] {
		return errors.Errorf("invalid backend preference: %s", c.Backend.Preference)
	} else if c.Backend.EventBuffer < 1 {
		return errors.New("event buffer capacity must be positive")
	}

	// Validate the watch settings.
	if c.Watch.MaximumPendingRecords < 0 {
		return errors.New("maximum pending records must be non-negative")
	}

	// Success.
	return nil
}

// LogLevel returns the configured log level. It should only be called on a
// validated configuration.
func (c *Configuration) LogLevel() logging.Level {
	level, _ := logging.NameToLevel(c.Logging.Level)
	return level
}
